package apphttp

import (
	"context"

	"flipnote.app/cli/internal/core/ports"
	httpports "flipnote.app/cli/internal/core/ports/http"
)

// AuthHeaderService emits the Authorization header for the current session:
//   - an explicit token wins (used right after login, before the store is updated)
//   - otherwise the stored access token is used
//   - no token means no Authorization header; public endpoints accept that
type AuthHeaderService struct {
	store     ports.SessionStore
	userAgent string
}

func NewAuthHeaderService(store ports.SessionStore, userAgent string) *AuthHeaderService {
	return &AuthHeaderService{store: store, userAgent: userAgent}
}

func (s *AuthHeaderService) Headers(ctx context.Context, explicitToken string) map[string]string {
	h := map[string]string{}
	if s.userAgent != "" {
		h["User-Agent"] = s.userAgent
	}

	token := explicitToken
	if token == "" {
		token = s.store.Load().AccessToken()
	}
	if token != "" {
		h["Authorization"] = BearerPrefix + token
	}
	return h
}

// BearerPrefix precedes the token in the Authorization header
const BearerPrefix = "Bearer "

// TokenFromHeader strips the bearer prefix, returning "" for anything else.
func TokenFromHeader(value string) string {
	if len(value) > len(BearerPrefix) && value[:len(BearerPrefix)] == BearerPrefix {
		return value[len(BearerPrefix):]
	}
	return ""
}

var _ httpports.AuthHeaderProvider = (*AuthHeaderService)(nil)
