package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flipnote.app/cli/internal/application/cache"
	apphttp "flipnote.app/cli/internal/application/http"
	"flipnote.app/cli/internal/core/domain"
	httpdomain "flipnote.app/cli/internal/core/domain/http"
	"flipnote.app/cli/internal/infrastructure/auth"
	cachestore "flipnote.app/cli/internal/infrastructure/cache"
	httpinfra "flipnote.app/cli/internal/infrastructure/http"
	"flipnote.app/cli/test/testutil"
)

// testStack is the client wired the way the DI container wires it, against a fake backend
type testStack struct {
	server    *testutil.MockAPIServer
	store     *auth.MemorySessionStore
	cacheMem  *cachestore.MemoryStore
	cache     *cache.ResponseCache
	refresher *RefreshCoordinator
	client    *apphttp.BackendClient
	auth      *AuthService
	quizzes   *QuizService
	now       time.Time
}

func newTestStack(t *testing.T, server *testutil.MockAPIServer) *testStack {
	t.Helper()
	return newSharedCacheStack(t, server, cachestore.NewMemoryStore())
}

// newSharedCacheStack builds a stack with its own session over cacheMem,
// the way two CLI invocations share one Redis
func newSharedCacheStack(t *testing.T, server *testutil.MockAPIServer, cacheMem *cachestore.MemoryStore) *testStack {
	t.Helper()

	s := &testStack{
		server:   server,
		store:    auth.NewMemorySessionStore(),
		cacheMem: cacheMem,
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	s.cache = cache.NewResponseCache(s.cacheMem,
		cache.WithScope(cache.SessionScope(server.URL, s.store)),
		cache.WithClock(func() time.Time { return s.now }),
	)

	endpoint := httpdomain.BackendEndpoint{BaseURL: server.URL, UserAgent: "fq-test"}
	requester := httpinfra.NewStdHttpRequester(5*time.Second, nil)
	s.refresher = NewRefreshCoordinator(s.store, auth.NewHTTPTokenProvider(endpoint, requester), nil, RefreshConfig{
		OnSessionExpired: func(ctx context.Context) { s.cache.Clear(ctx) },
	})
	s.client = apphttp.NewBackendClient(endpoint, requester, apphttp.NewAuthHeaderService(s.store, "fq-test"), s.refresher, nil)
	s.auth = NewAuthService(s.client, s.store, s.cache, nil)
	s.quizzes = NewQuizService(s.client, s.cache, nil)
	return s
}

// loginDirect stores a fresh token pair issued by the fake backend
func (s *testStack) loginDirect(t *testing.T) (access, refresh string) {
	t.Helper()
	return s.loginAs(t, domain.UserProfile{Email: testutil.DefaultEmail, Username: "ada"})
}

// loginAs stores a fresh token pair under the given profile
func (s *testStack) loginAs(t *testing.T, user domain.UserProfile) (access, refresh string) {
	t.Helper()
	access, refresh = s.server.IssueTokens()
	require.NoError(t, s.store.Save(domain.Session{
		User:        &user,
		Credentials: &domain.CredentialPair{Access: access, Refresh: refresh},
	}))
	return access, refresh
}

func (s *testStack) advance(d time.Duration) {
	s.now = s.now.Add(d)
}
