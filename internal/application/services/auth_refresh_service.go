package services

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"

	"flipnote.app/cli/internal/core/domain"
	httpdomain "flipnote.app/cli/internal/core/domain/http"
	"flipnote.app/cli/internal/core/ports"
	httpports "flipnote.app/cli/internal/core/ports/http"
)

// DefaultRefreshAhead is how close to expiry a JWT access token is refreshed proactively.
const DefaultRefreshAhead = 30 * time.Second

const refreshKey = "refresh"

// RefreshConfig configures the refresh coordinator
type RefreshConfig struct {
	RefreshAhead time.Duration
	Now          func() time.Time
	// OnSessionExpired runs after a failed refresh, just before the session
	// is cleared, so it still sees whose session expired.
	OnSessionExpired func(ctx context.Context)
}

// RefreshCoordinator makes sure at most one refresh call is in flight and
// that every caller waiting on it sees the same outcome.
type RefreshCoordinator struct {
	store    ports.SessionStore
	provider ports.TokenProvider
	config   RefreshConfig
	logger   hclog.Logger
	group    singleflight.Group
}

// NewRefreshCoordinator creates a coordinator over the session store and token provider
func NewRefreshCoordinator(store ports.SessionStore, provider ports.TokenProvider, logger hclog.Logger, config RefreshConfig) *RefreshCoordinator {
	if config.Now == nil {
		config.Now = time.Now
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &RefreshCoordinator{
		store:    store,
		provider: provider,
		config:   config,
		logger:   logger.Named("refresh"),
	}
}

// Refresh returns a usable access token after a request carrying staleAccess
// was rejected with 401. Concurrent callers share one refresh call. The
// shared call is detached from any single caller's cancellation; each
// caller stops waiting when its own ctx is done.
func (c *RefreshCoordinator) Refresh(ctx context.Context, staleAccess string) (string, error) {
	if current := c.store.Load().AccessToken(); current != "" && current != staleAccess {
		return current, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(refreshKey, func() (interface{}, error) {
		return c.refresh(detached, staleAccess)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// EnsureFresh refreshes ahead of time when the stored access token is a JWT
// about to expire.
func (c *RefreshCoordinator) EnsureFresh(ctx context.Context) error {
	access := c.store.Load().AccessToken()
	if access == "" || !domain.ShouldRefresh(access, c.config.RefreshAhead, c.config.Now()) {
		return nil
	}
	c.logger.Debug("access token close to expiry, refreshing proactively")
	_, err := c.Refresh(ctx, access)
	return err
}

func (c *RefreshCoordinator) refresh(ctx context.Context, staleAccess string) (string, error) {
	session := c.store.Load()

	// Another refresh may have completed between the caller's check and
	// this call becoming the leader.
	if current := session.AccessToken(); current != "" && current != staleAccess {
		return current, nil
	}

	refreshToken := session.RefreshToken()
	// Credentials are stored as a pair, so there is nothing left to clear.
	if refreshToken == "" {
		return "", httpdomain.ErrNotLoggedIn
	}

	c.logger.Debug("refreshing access token", "stale", domain.RedactToken(staleAccess))
	access, err := c.provider.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		c.logger.Warn("token refresh failed, clearing session", "error", err)
		c.expire(ctx)
		return "", fmt.Errorf("%w: %w", httpdomain.ErrSessionExpired, err)
	}

	if err := c.store.UpdateAccessToken(access); err != nil {
		c.logger.Warn("failed to persist refreshed access token", "error", err)
	}
	c.logger.Debug("access token refreshed", "access", domain.RedactToken(access))
	return access, nil
}

func (c *RefreshCoordinator) expire(ctx context.Context) {
	if c.config.OnSessionExpired != nil {
		c.config.OnSessionExpired(ctx)
	}
	if err := c.store.Clear(); err != nil {
		c.logger.Error("failed to clear session", "error", err)
	}
}

var _ httpports.TokenRefresher = (*RefreshCoordinator)(nil)
