package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	ProductionBaseURL  = "https://flipnote-quizzer-backend.azurewebsites.net"
	DevelopmentBaseURL = "http://localhost:8000"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	// ConfigPathEnv points at an alternative config file
	ConfigPathEnv = "FQ_CONFIG_PATH"
)

// DefaultConfigPath is used when neither --config nor FQ_CONFIG_PATH is set.
const DefaultConfigPath = "~/.config/flipnote/config.yaml"

// Config is the client configuration. Values come from, in decreasing
// priority: command line flags, FQ_* environment variables, the YAML file
// and the defaults below.
type Config struct {
	Env   string      `yaml:"env" env:"FQ_ENV" env-default:"development"`
	API   APIConfig   `yaml:"api"`
	Auth  AuthConfig  `yaml:"auth"`
	Cache CacheConfig `yaml:"cache"`
	Log   LogConfig   `yaml:"log"`
}

type APIConfig struct {
	// BaseURL overrides the environment's backend
	BaseURL string `yaml:"base_url" env:"FQ_API_BASE_URL"`
	// Timeout bounds a single HTTP round trip; zero means no client timeout
	Timeout   time.Duration `yaml:"timeout" env:"FQ_API_TIMEOUT" env-default:"0s"`
	UserAgent string        `yaml:"user_agent" env:"FQ_API_USER_AGENT" env-default:"fq-cli"`
}

type AuthConfig struct {
	SessionDir   string        `yaml:"session_dir" env:"FQ_SESSION_DIR" env-default:"~/.config/flipnote"`
	RefreshAhead time.Duration `yaml:"refresh_ahead" env:"FQ_REFRESH_AHEAD" env-default:"30s"`
}

type CacheConfig struct {
	Backend     string        `yaml:"backend" env:"FQ_CACHE_BACKEND" env-default:"memory"`
	TTL         time.Duration `yaml:"ttl" env:"FQ_CACHE_TTL" env-default:"5m"`
	RedisURL    string        `yaml:"redis_url" env:"FQ_REDIS_URL" env-default:"redis://localhost:6379/0"`
	RedisPrefix string        `yaml:"redis_prefix" env:"FQ_REDIS_PREFIX" env-default:"flipnote:cache:"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"FQ_LOG_LEVEL" env-default:"warn"`
	JSON  bool   `yaml:"json" env:"FQ_LOG_JSON" env-default:"false"`
}

// BaseURL resolves the backend URL for the configured environment.
func (c *Config) BaseURL() string {
	if c.API.BaseURL != "" {
		return strings.TrimRight(c.API.BaseURL, "/")
	}
	if c.Env == EnvProduction {
		return ProductionBaseURL
	}
	return DevelopmentBaseURL
}

// Validate checks values cleanenv cannot express as tags.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("unknown cache backend %q (want %s or %s)", c.Cache.Backend, CacheBackendMemory, CacheBackendRedis)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	if c.Auth.RefreshAhead < 0 {
		return fmt.Errorf("auth.refresh_ahead must not be negative")
	}
	return nil
}

// Load reads the configuration. path is the --config flag value; when empty
// FQ_CONFIG_PATH and then DefaultConfigPath are tried. A missing default
// file is not an error, a missing explicit one is. A .env file in the
// working directory is loaded first without overriding the real
// environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	explicit := true
	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path == "" {
		path, explicit = DefaultConfigPath, false
	}

	resolved, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, statErr := os.Stat(resolved); statErr == nil {
		// ReadConfig overlays the environment on top of the file.
		if err := cleanenv.ReadConfig(resolved, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", resolved, err)
		}
	} else {
		if explicit {
			return nil, fmt.Errorf("config file %q: %w", resolved, statErr)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with only defaults and the environment applied.
func Default() *Config {
	var cfg Config
	_ = cleanenv.ReadEnv(&cfg)
	return &cfg
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
