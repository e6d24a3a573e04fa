package domain

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrIncompleteCredentials is returned when one half of a credential pair is missing.
var ErrIncompleteCredentials = errors.New("credential pair must carry both access and refresh tokens")

// CredentialPair is the access/refresh token pair issued by the backend.
type CredentialPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Validate checks that both tokens are present.
func (c CredentialPair) Validate() error {
	if c.Access == "" || c.Refresh == "" {
		return ErrIncompleteCredentials
	}
	return nil
}

// WithAccess returns a copy of the pair with a new access token and the same refresh token.
func (c CredentialPair) WithAccess(access string) CredentialPair {
	return CredentialPair{Access: access, Refresh: c.Refresh}
}

// TokenResponse is the body returned by the login endpoint.
type TokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// ToCredentials converts the response to a credential pair
func (r *TokenResponse) ToCredentials() CredentialPair {
	return CredentialPair{Access: r.Access, Refresh: r.Refresh}
}

// RefreshResponse is the body returned by the token refresh endpoint.
type RefreshResponse struct {
	Access string `json:"access"`
}

// AccessTokenExpiry reads the exp claim of a JWT access token without
// verifying its signature. ok is false for opaque tokens or tokens without exp.
func AccessTokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// ShouldRefresh reports whether the token expires within refreshAhead of now.
// Tokens whose expiry cannot be read never need a proactive refresh.
func ShouldRefresh(token string, refreshAhead time.Duration, now time.Time) bool {
	exp, ok := AccessTokenExpiry(token)
	if !ok {
		return false
	}
	return !now.Before(exp.Add(-refreshAhead))
}

// RedactToken keeps a short prefix of a token for log output.
func RedactToken(token string) string {
	if token == "" {
		return "<none>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:6] + "..."
}
