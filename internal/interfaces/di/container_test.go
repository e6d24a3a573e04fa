package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"

	"flipnote.app/cli/internal/config"
	"flipnote.app/cli/internal/core/domain"
	"flipnote.app/cli/internal/infrastructure/auth"
	cachestore "flipnote.app/cli/internal/infrastructure/cache"
	"flipnote.app/cli/test/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env: config.EnvDevelopment,
		API: config.APIConfig{Timeout: 5 * time.Second, UserAgent: "fq-test"},
		Auth: config.AuthConfig{
			SessionDir:   filepath.Join(t.TempDir(), "flipnote"),
			RefreshAhead: 30 * time.Second,
		},
		Cache: config.CacheConfig{Backend: config.CacheBackendMemory, TTL: time.Minute},
		Log:   config.LogConfig{Level: "warn"},
	}
}

func TestNewContainerWithConfig_Overrides(t *testing.T) {
	tests := []struct {
		name            string
		opts            Options
		expectedBaseURL string
	}{
		{
			name:            "development default",
			expectedBaseURL: config.DevelopmentBaseURL,
		},
		{
			name:            "environment override",
			opts:            Options{Env: config.EnvProduction},
			expectedBaseURL: config.ProductionBaseURL,
		},
		{
			name:            "api url override wins",
			opts:            Options{Env: config.EnvProduction, APIURL: "http://localhost:5149"},
			expectedBaseURL: "http://localhost:5149",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			container, err := NewContainerWithConfig(context.Background(), testConfig(t), tt.opts)
			if err != nil {
				t.Fatalf("Failed to create container: %v", err)
			}

			if got := container.Client.Endpoint().BaseURL; got != tt.expectedBaseURL {
				t.Errorf("base URL = %q, want %q", got, tt.expectedBaseURL)
			}
			if container.AuthService == nil || container.QuizService == nil {
				t.Error("facade services were not wired")
			}
		})
	}
}

func TestNewContainerWithConfig_SessionStore(t *testing.T) {
	persistent, err := NewContainerWithConfig(context.Background(), testConfig(t), Options{})
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}
	if _, ok := persistent.SessionStore.(*auth.SecureFileSessionStore); !ok {
		t.Errorf("expected file session store, got %T", persistent.SessionStore)
	}

	ephemeral, err := NewContainerWithConfig(context.Background(), testConfig(t), Options{Ephemeral: true})
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}
	if _, ok := ephemeral.SessionStore.(*auth.MemorySessionStore); !ok {
		t.Errorf("expected memory session store, got %T", ephemeral.SessionStore)
	}
}

func TestNewContainerWithConfig_UnreachableRedisFallsBack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Backend = config.CacheBackendRedis
	cfg.Cache.RedisURL = "redis://127.0.0.1:1/0"

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	container, err := NewContainerWithConfig(ctx, cfg, Options{Ephemeral: true, Logger: hclog.NewNullLogger()})
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}

	if _, ok := container.CacheStore.(*cachestore.MemoryStore); !ok {
		t.Errorf("expected memory cache fallback, got %T", container.CacheStore)
	}
	if err := container.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() unexpected error: %v", err)
	}
}

// The wired graph handles login, a cached read, an expired token and logout
func TestContainer_EndToEnd(t *testing.T) {
	server := testutil.NewMockAPIServer(t).
		WithQuiz(testutil.FakeQuiz{ID: 1, Title: "Go basics"}).
		Build()

	container, err := NewContainerWithConfig(context.Background(), testConfig(t), Options{APIURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}
	ctx := context.Background()

	if _, err := container.AuthService.Login(ctx, testutil.DefaultEmail, testutil.DefaultPassword); err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		page, err := container.QuizService.ListMine(ctx, domain.Pagination{})
		if err != nil {
			t.Fatalf("ListMine() unexpected error: %v", err)
		}
		if len(page.Results) != 1 {
			t.Fatalf("ListMine() returned %d quizzes, want 1", len(page.Results))
		}
	}
	if n := server.GetRequestCount("GET", "/quizzes"); n != 1 {
		t.Errorf("expected one listing request, got %d", n)
	}

	server.ExpireAccessTokens()
	if _, err := container.QuizService.Get(ctx, "1"); err != nil {
		t.Fatalf("Get() after expiry unexpected error: %v", err)
	}
	if n := server.RefreshCount(); n != 1 {
		t.Errorf("expected one refresh, got %d", n)
	}

	if err := container.AuthService.Logout(ctx); err != nil {
		t.Fatalf("Logout() unexpected error: %v", err)
	}
	if container.AuthService.Status().Authenticated() {
		t.Error("session still authenticated after logout")
	}
}
