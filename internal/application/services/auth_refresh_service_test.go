package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"flipnote.app/cli/internal/core/domain"
	httpdomain "flipnote.app/cli/internal/core/domain/http"
	"flipnote.app/cli/internal/infrastructure/auth"
)

// Mock token provider
type MockTokenProvider struct {
	mock.Mock
}

func (m *MockTokenProvider) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

// Helper functions
func loggedInStore(t *testing.T, access, refresh string) *auth.MemorySessionStore {
	t.Helper()
	store := auth.NewMemorySessionStore()
	require.NoError(t, store.Save(domain.Session{
		User:        &domain.UserProfile{Email: "ada@example.com", Username: "ada"},
		Credentials: &domain.CredentialPair{Access: access, Refresh: refresh},
	}))
	return store
}

func createTestJWT(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return token
}

func TestRefreshCoordinator_Refresh(t *testing.T) {
	tests := []struct {
		name               string
		storedAccess       string
		storedRefresh      string
		staleAccess        string
		providerResponse   string
		providerError      error
		expectedToken      string
		expectProviderCall bool
		expectErr          error
		expectCleared      bool
	}{
		{
			name:               "successful refresh",
			storedAccess:       "old",
			storedRefresh:      "r1",
			staleAccess:        "old",
			providerResponse:   "new",
			expectedToken:      "new",
			expectProviderCall: true,
		},
		{
			name:          "token already refreshed by someone else",
			storedAccess:  "newer",
			storedRefresh: "r1",
			staleAccess:   "old",
			expectedToken: "newer",
		},
		{
			name:               "refresh rejected",
			storedAccess:       "old",
			storedRefresh:      "r1",
			staleAccess:        "old",
			providerError:      errors.New("401 token_not_valid"),
			expectProviderCall: true,
			expectErr:          httpdomain.ErrSessionExpired,
			expectCleared:      true,
		},
		{
			name:        "not logged in",
			staleAccess: "",
			expectErr:   httpdomain.ErrNotLoggedIn,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Setup
			mockProvider := new(MockTokenProvider)
			store := auth.NewMemorySessionStore()
			if tc.storedAccess != "" {
				store = loggedInStore(t, tc.storedAccess, tc.storedRefresh)
			}
			if tc.expectProviderCall {
				mockProvider.On("RefreshAccessToken", mock.Anything, tc.storedRefresh).
					Return(tc.providerResponse, tc.providerError).Once()
			}

			expired := 0
			coordinator := NewRefreshCoordinator(store, mockProvider, nil, RefreshConfig{
				OnSessionExpired: func(context.Context) { expired++ },
			})

			// Execute
			token, err := coordinator.Refresh(context.Background(), tc.staleAccess)

			// Verify
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				assert.Empty(t, token)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expectedToken, token)
				assert.Equal(t, tc.expectedToken, store.Load().AccessToken())
				assert.Equal(t, tc.storedRefresh, store.Load().RefreshToken())
			}
			if tc.expectCleared {
				assert.False(t, store.HasRecord())
				assert.Equal(t, 1, expired)
			} else {
				assert.Equal(t, 0, expired)
			}

			mockProvider.AssertExpectations(t)
		})
	}
}

func TestRefreshCoordinator_ConcurrentCallersShareOneRefresh(t *testing.T) {
	// Setup
	store := loggedInStore(t, "stale", "r1")
	release := make(chan struct{})
	var calls int32

	provider := providerFunc(func(ctx context.Context, refresh string) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "fresh", nil
	})
	coordinator := NewRefreshCoordinator(store, provider, nil, RefreshConfig{})

	// Execute
	const callers = 20
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = coordinator.Refresh(context.Background(), "stale")
		}(i)
	}

	// Let every caller reach the coordinator before the refresh resolves.
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	// Verify
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "fresh", results[i])
	}

	// A late 401 for the old token reuses the new one.
	token, err := coordinator.Refresh(context.Background(), "stale")
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRefreshCoordinator_FailureReachesEveryWaiter(t *testing.T) {
	// Setup
	store := loggedInStore(t, "stale", "r1")
	release := make(chan struct{})
	var calls int32
	provider := providerFunc(func(ctx context.Context, refresh string) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "", errors.New("refresh token expired")
	})
	coordinator := NewRefreshCoordinator(store, provider, nil, RefreshConfig{})

	// Execute
	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = coordinator.Refresh(context.Background(), "stale")
		}(i)
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	// Verify
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, err := range errs {
		assert.ErrorIs(t, err, httpdomain.ErrSessionExpired)
	}
	assert.False(t, store.HasRecord())
}

func TestRefreshCoordinator_WaiterCancellationDoesNotAbortRefresh(t *testing.T) {
	// Setup
	store := loggedInStore(t, "stale", "r1")
	release := make(chan struct{})
	provider := providerFunc(func(ctx context.Context, refresh string) (string, error) {
		<-release
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "fresh", nil
	})
	coordinator := NewRefreshCoordinator(store, provider, nil, RefreshConfig{})

	impatient, cancel := context.WithCancel(context.Background())
	impatientErr := make(chan error, 1)
	go func() {
		_, err := coordinator.Refresh(impatient, "stale")
		impatientErr <- err
	}()

	patientResult := make(chan string, 1)
	go func() {
		token, _ := coordinator.Refresh(context.Background(), "stale")
		patientResult <- token
	}()

	// Execute
	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-impatientErr, context.Canceled)
	close(release)

	// Verify
	assert.Equal(t, "fresh", <-patientResult)
	assert.Equal(t, "fresh", store.Load().AccessToken())
}

func TestRefreshCoordinator_EnsureFresh(t *testing.T) {
	tests := []struct {
		name         string
		access       func(t *testing.T) string
		expectCall   bool
		refreshAhead time.Duration
	}{
		{
			name:         "jwt far from expiry",
			access:       func(t *testing.T) string { return createTestJWT(t, time.Hour) },
			refreshAhead: 30 * time.Second,
		},
		{
			name:         "jwt about to expire",
			access:       func(t *testing.T) string { return createTestJWT(t, 10*time.Second) },
			refreshAhead: 30 * time.Second,
			expectCall:   true,
		},
		{
			name:         "jwt already expired",
			access:       func(t *testing.T) string { return createTestJWT(t, -time.Minute) },
			refreshAhead: 30 * time.Second,
			expectCall:   true,
		},
		{
			name:         "opaque token is never refreshed ahead",
			access:       func(t *testing.T) string { return "opaque-token" },
			refreshAhead: time.Hour,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Setup
			mockProvider := new(MockTokenProvider)
			store := loggedInStore(t, tc.access(t), "r1")
			if tc.expectCall {
				mockProvider.On("RefreshAccessToken", mock.Anything, "r1").Return("renewed", nil).Once()
			}
			coordinator := NewRefreshCoordinator(store, mockProvider, nil, RefreshConfig{RefreshAhead: tc.refreshAhead})

			// Execute
			err := coordinator.EnsureFresh(context.Background())

			// Verify
			require.NoError(t, err)
			if tc.expectCall {
				assert.Equal(t, "renewed", store.Load().AccessToken())
			}
			mockProvider.AssertExpectations(t)
		})
	}
}

func TestRefreshCoordinator_EnsureFreshWithoutSession(t *testing.T) {
	mockProvider := new(MockTokenProvider)
	coordinator := NewRefreshCoordinator(auth.NewMemorySessionStore(), mockProvider, nil, RefreshConfig{})

	assert.NoError(t, coordinator.EnsureFresh(context.Background()))
	mockProvider.AssertNotCalled(t, "RefreshAccessToken", mock.Anything, mock.Anything)
}

type providerFunc func(ctx context.Context, refresh string) (string, error)

func (f providerFunc) RefreshAccessToken(ctx context.Context, refresh string) (string, error) {
	return f(ctx, refresh)
}
