package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"flipnote.app/cli/internal/application/cache"
	apphttp "flipnote.app/cli/internal/application/http"
	"flipnote.app/cli/internal/core/domain"
	"flipnote.app/cli/internal/core/ports"
)

const (
	loginPath    = "/auth/login/"
	registerPath = "/auth/register/"
	profilePath  = "/auth/profile/"
)

// Registration is the sign-up form sent to the backend.
type Registration struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password2"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

// AuthService creates and destroys the local session.
type AuthService struct {
	client *apphttp.BackendClient
	store  ports.SessionStore
	cache  *cache.ResponseCache
	logger hclog.Logger
}

// NewAuthService creates the auth facade
func NewAuthService(client *apphttp.BackendClient, store ports.SessionStore, responseCache *cache.ResponseCache, logger hclog.Logger) *AuthService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &AuthService{client: client, store: store, cache: responseCache, logger: logger.Named("auth")}
}

// Login exchanges credentials for a token pair, loads the profile with the
// new access token and persists both together.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.UserProfile, error) {
	var tokens domain.TokenResponse
	err := s.client.DoJSON(ctx, apphttp.Request{
		Method: "POST",
		Path:   loginPath,
		JSON:   map[string]string{"email": email, "password": password},
		Public: true,
	}, &tokens)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return s.establish(ctx, tokens.ToCredentials())
}

// Register signs up a new user and opens a session for it. When the
// backend does not hand out tokens on registration, it logs in with the
// same credentials.
func (s *AuthService) Register(ctx context.Context, reg Registration) (*domain.UserProfile, error) {
	resp, err := s.client.Do(ctx, apphttp.Request{
		Method: "POST",
		Path:   registerPath,
		JSON:   reg,
		Public: true,
	})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	var tokens domain.TokenResponse
	if json.Unmarshal(resp.Body, &tokens) == nil && tokens.ToCredentials().Validate() == nil {
		return s.establish(ctx, tokens.ToCredentials())
	}
	s.logger.Debug("registration returned no tokens, logging in")
	return s.Login(ctx, reg.Email, reg.Password)
}

// Logout removes the stored session and the responses cached for it.
func (s *AuthService) Logout(ctx context.Context) error {
	// The cache namespace follows the session, so it goes first.
	s.cache.Clear(ctx)
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.logger.Debug("logged out")
	return nil
}

// Profile fetches the current user's profile from the backend.
func (s *AuthService) Profile(ctx context.Context) (*domain.UserProfile, error) {
	return s.fetchProfile(ctx, "")
}

// Status returns the locally stored session without touching the network.
func (s *AuthService) Status() domain.Session {
	return s.store.Load()
}

func (s *AuthService) establish(ctx context.Context, creds domain.CredentialPair) (*domain.UserProfile, error) {
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("unexpected token response: %w", err)
	}

	profile, err := s.fetchProfile(ctx, creds.Access)
	if err != nil {
		return nil, err
	}

	// Drop the outgoing session's entries and any left over for the incoming one.
	s.cache.Clear(ctx)
	if err := s.store.Save(domain.Session{User: profile, Credentials: &creds}); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	s.cache.Clear(ctx)
	s.logger.Debug("session established", "user", profile.Username)
	return profile, nil
}

func (s *AuthService) fetchProfile(ctx context.Context, token string) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	if err := s.client.DoJSON(ctx, apphttp.Request{Method: "GET", Path: profilePath, Token: token}, &profile); err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &profile, nil
}
