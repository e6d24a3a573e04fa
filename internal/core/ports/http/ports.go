package httpports

import (
	"context"

	httpdomain "flipnote.app/cli/internal/core/domain/http"
)

// HttpRequester performs a single round trip against the backend.
type HttpRequester interface {
	Do(ctx context.Context, endpoint httpdomain.BackendEndpoint, req httpdomain.RequestContext) (*httpdomain.Response, error)
}

// AuthHeaderProvider derives request headers from the current session.
// explicitToken, when non-empty, takes precedence over the stored token.
type AuthHeaderProvider interface {
	Headers(ctx context.Context, explicitToken string) map[string]string
}

// TokenRefresher resolves a 401 by minting a new access token.
// staleAccess is the token the failing request carried.
type TokenRefresher interface {
	Refresh(ctx context.Context, staleAccess string) (string, error)
	EnsureFresh(ctx context.Context) error
}
