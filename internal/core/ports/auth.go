package ports

import (
	"context"

	"flipnote.app/cli/internal/core/domain"
)

// SessionStore persists the login session. Load never fails: missing or
// corrupt data reads as an empty session.
type SessionStore interface {
	Load() domain.Session
	Save(session domain.Session) error
	UpdateAccessToken(access string) error
	Clear() error
}

// TokenProvider performs the raw token endpoint call.
type TokenProvider interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
}
