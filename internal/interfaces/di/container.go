package di

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"flipnote.app/cli/internal/application/cache"
	apphttp "flipnote.app/cli/internal/application/http"
	"flipnote.app/cli/internal/application/services"
	"flipnote.app/cli/internal/config"
	httpdomain "flipnote.app/cli/internal/core/domain/http"
	"flipnote.app/cli/internal/core/ports"
	"flipnote.app/cli/internal/infrastructure/auth"
	cachestore "flipnote.app/cli/internal/infrastructure/cache"
	httpinfra "flipnote.app/cli/internal/infrastructure/http"
	"flipnote.app/cli/internal/logging"
)

// Options are the command line overrides applied on top of the loaded config
type Options struct {
	ConfigPath string
	APIURL     string
	Env        string
	Debug      bool
	// Ephemeral keeps the session in memory only
	Ephemeral bool
	// Logger replaces the configured logger when set
	Logger hclog.Logger
}

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger hclog.Logger

	// Infrastructure
	SessionStore ports.SessionStore
	CacheStore   ports.CacheStore
	Requester    *httpinfra.StdHttpRequester

	// Core services
	Cache     *cache.ResponseCache
	Refresher *services.RefreshCoordinator
	Client    *apphttp.BackendClient

	// Facade
	AuthService *services.AuthService
	QuizService *services.QuizService

	redis *cachestore.RedisStore
}

// NewContainer loads the configuration and wires every component
func NewContainer(ctx context.Context, opts Options) (*Container, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewContainerWithConfig(ctx, cfg, opts)
}

// NewContainerWithConfig wires every component from an already loaded configuration
func NewContainerWithConfig(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	if opts.APIURL != "" {
		cfg.API.BaseURL = opts.APIURL
	}
	if opts.Env != "" {
		cfg.Env = opts.Env
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.New(cfg.Log, opts.Debug)
	}

	c := &Container{Config: cfg, Logger: logger}
	if err := c.initializeComponents(ctx, opts); err != nil {
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}
	return c, nil
}

// initializeComponents builds the graph leaves first
func (c *Container) initializeComponents(ctx context.Context, opts Options) error {
	cfg := c.Config

	// 1. Session store
	if opts.Ephemeral {
		c.SessionStore = auth.NewMemorySessionStore()
	} else {
		store, err := auth.NewSecureFileSessionStore(cfg.Auth.SessionDir, c.Logger)
		if err != nil {
			return err
		}
		c.SessionStore = store
	}

	endpoint := httpdomain.BackendEndpoint{BaseURL: cfg.BaseURL(), UserAgent: cfg.API.UserAgent}

	// 2. Response cache, namespaced per backend and user
	c.CacheStore = c.newCacheStore(ctx)
	c.Cache = cache.NewResponseCache(c.CacheStore,
		cache.WithScope(cache.SessionScope(endpoint.BaseURL, c.SessionStore)),
		cache.WithPolicy(cache.DefaultPolicy(cfg.Cache.TTL)),
		cache.WithLogger(c.Logger),
	)

	// 3. Transport and refresh
	c.Requester = httpinfra.NewStdHttpRequester(cfg.API.Timeout, c.Logger)

	responseCache := c.Cache
	c.Refresher = services.NewRefreshCoordinator(
		c.SessionStore,
		auth.NewHTTPTokenProvider(endpoint, c.Requester),
		c.Logger,
		services.RefreshConfig{
			RefreshAhead:     cfg.Auth.RefreshAhead,
			OnSessionExpired: func(ctx context.Context) { responseCache.Clear(ctx) },
		},
	)

	// 4. Client and facade
	c.Client = apphttp.NewBackendClient(
		endpoint,
		c.Requester,
		apphttp.NewAuthHeaderService(c.SessionStore, cfg.API.UserAgent),
		c.Refresher,
		c.Logger,
	)
	c.AuthService = services.NewAuthService(c.Client, c.SessionStore, c.Cache, c.Logger)
	c.QuizService = services.NewQuizService(c.Client, c.Cache, c.Logger)

	c.Logger.Debug("container initialized", "base_url", endpoint.BaseURL, "cache", cfg.Cache.Backend, "ephemeral", opts.Ephemeral)
	return nil
}

// newCacheStore picks the configured backend. An unreachable Redis falls
// back to the in-process store.
func (c *Container) newCacheStore(ctx context.Context) ports.CacheStore {
	cfg := c.Config.Cache
	if cfg.Backend != config.CacheBackendRedis {
		return cachestore.NewMemoryStore()
	}

	store, err := cachestore.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix, cfg.TTL)
	if err != nil {
		c.Logger.Warn("redis cache unavailable, using memory cache", "error", err)
		return cachestore.NewMemoryStore()
	}
	c.redis = store
	return store
}

// Shutdown releases external connections
func (c *Container) Shutdown(ctx context.Context) error {
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			return fmt.Errorf("failed to close redis: %w", err)
		}
	}
	return nil
}
