package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at an empty directory so no real config is picked up
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(ConfigPathEnv, "")
	return home
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, DevelopmentBaseURL, cfg.BaseURL())
	assert.Equal(t, time.Duration(0), cfg.API.Timeout)
	assert.Equal(t, "fq-cli", cfg.API.UserAgent)
	assert.Equal(t, "~/.config/flipnote", cfg.Auth.SessionDir)
	assert.Equal(t, 30*time.Second, cfg.Auth.RefreshAhead)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Log.JSON)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		env      map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name: "file values",
			file: `
env: production
api:
  timeout: 15s
cache:
  backend: redis
  ttl: 1m
log:
  level: debug
  json: true
`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ProductionBaseURL, cfg.BaseURL())
				assert.Equal(t, 15*time.Second, cfg.API.Timeout)
				assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
				assert.Equal(t, time.Minute, cfg.Cache.TTL)
				assert.Equal(t, "debug", cfg.Log.Level)
				assert.True(t, cfg.Log.JSON)
				assert.Equal(t, "fq-cli", cfg.API.UserAgent)
			},
		},
		{
			name: "environment overrides file",
			file: "env: production\n",
			env: map[string]string{
				"FQ_ENV":       "development",
				"FQ_CACHE_TTL": "10s",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DevelopmentBaseURL, cfg.BaseURL())
				assert.Equal(t, 10*time.Second, cfg.Cache.TTL)
			},
		},
		{
			name: "explicit base url wins over environment",
			file: "env: production\napi:\n  base_url: https://staging.example.com/\n",
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://staging.example.com", cfg.BaseURL())
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Setup
			home := isolate(t)
			path := writeConfig(t, home, tc.file)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			// Execute
			cfg, err := Load(path)

			// Verify
			require.NoError(t, err)
			tc.validate(t, cfg)
		})
	}
}

func TestLoad_ConfigPathFromEnvironment(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, home, "auth:\n  refresh_ahead: 2m\n")
	t.Setenv(ConfigPathEnv, path)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Auth.RefreshAhead)
}

func TestLoad_DefaultPathIsUsedWhenPresent(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".config", "flipnote")
	require.NoError(t, os.MkdirAll(dir, 0700))
	writeConfig(t, dir, "cache:\n  ttl: 90s\n")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"unknown cache backend", "cache:\n  backend: memcached\n"},
		{"negative timeout", "api:\n  timeout: -1s\n"},
		{"negative ttl", "cache:\n  ttl: -5m\n"},
		{"malformed yaml", "api: [unterminated\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			home := isolate(t)
			path := writeConfig(t, home, tc.file)

			_, err := Load(path)

			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	home := isolate(t)

	_, err := Load(filepath.Join(home, "nope.yaml"))

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExpandHome(t *testing.T) {
	home := isolate(t)

	expanded, err := ExpandHome("~/.config/flipnote")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "flipnote"), expanded)

	unchanged, err := ExpandHome("/etc/flipnote")
	require.NoError(t, err)
	assert.Equal(t, "/etc/flipnote", unchanged)
}
