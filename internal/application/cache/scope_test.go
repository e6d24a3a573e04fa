package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flipnote.app/cli/internal/core/domain"
	"flipnote.app/cli/internal/infrastructure/auth"
	cachestore "flipnote.app/cli/internal/infrastructure/cache"
)

func login(t *testing.T, sessions *auth.MemorySessionStore, username string) {
	t.Helper()
	require.NoError(t, sessions.Save(domain.Session{
		User:        &domain.UserProfile{Username: username, Email: username + "@example.com"},
		Credentials: &domain.CredentialPair{Access: "access-" + username, Refresh: "refresh-" + username},
	}))
}

func TestSessionScope_Keys(t *testing.T) {
	tests := []struct {
		name        string
		baseA       string
		userA       string
		baseB       string
		userB       string
		key         string
		expectEqual bool
	}{
		{"same user and backend", "https://api.example.com", "ada", "https://api.example.com", "ada", DetailKey("1"), true},
		{"trailing slash is the same backend", "https://api.example.com/", "ada", "https://api.example.com", "ada", DetailKey("1"), true},
		{"different users", "https://api.example.com", "ada", "https://api.example.com", "grace", DetailKey("1"), false},
		{"logged out", "https://api.example.com", "ada", "https://api.example.com", "", DetailKey("1"), false},
		{"different backends", "http://localhost:8000", "ada", "https://api.example.com", "ada", DetailKey("1"), false},
		{"public listing across users", "https://api.example.com", "ada", "https://api.example.com", "", CollectionKey("public", nil), true},
		{"public listing across backends", "http://localhost:8000", "ada", "https://api.example.com", "ada", CollectionKey("public", nil), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Setup
			sessionsA, sessionsB := auth.NewMemorySessionStore(), auth.NewMemorySessionStore()
			if tc.userA != "" {
				login(t, sessionsA, tc.userA)
			}
			if tc.userB != "" {
				login(t, sessionsB, tc.userB)
			}

			// Execute
			keyA := SessionScope(tc.baseA, sessionsA).key(tc.key)
			keyB := SessionScope(tc.baseB, sessionsB).key(tc.key)

			// Verify
			assert.Equal(t, tc.expectEqual, keyA == keyB, "%s vs %s", keyA, keyB)
			assert.Contains(t, keyA, tc.key)
		})
	}
}

func TestSessionScope_FollowsLogin(t *testing.T) {
	sessions := auth.NewMemorySessionStore()
	scope := SessionScope("https://api.example.com", sessions)

	anon := scope.key(DetailKey("1"))
	login(t, sessions, "ada")

	assert.NotEqual(t, anon, scope.key(DetailKey("1")))
}

func TestResponseCache_SharedStoreIsolation(t *testing.T) {
	// Setup
	ctx := context.Background()
	store := cachestore.NewMemoryStore()
	adaSessions, graceSessions := auth.NewMemorySessionStore(), auth.NewMemorySessionStore()
	login(t, adaSessions, "ada")
	login(t, graceSessions, "grace")
	ada := NewResponseCache(store, WithScope(SessionScope("https://api.example.com", adaSessions)))
	grace := NewResponseCache(store, WithScope(SessionScope("https://api.example.com", graceSessions)))

	ada.Set(ctx, DetailKey("1"), []byte(`"ada"`))
	ada.Set(ctx, CollectionKey("mine", nil), []byte(`"ada mine"`))
	grace.Set(ctx, CollectionKey("mine", nil), []byte(`"grace mine"`))
	grace.Set(ctx, CollectionKey("public", nil), []byte(`"public"`))

	// Execute and verify reads
	_, ok := grace.Get(ctx, DetailKey("1"))
	assert.False(t, ok)
	mine, ok := grace.Get(ctx, CollectionKey("mine", nil))
	require.True(t, ok)
	assert.Equal(t, `"grace mine"`, string(mine))
	_, ok = ada.Get(ctx, CollectionKey("public", nil))
	assert.True(t, ok)

	// Invalidating listings reaches the shared public page but not grace's own
	ada.Invalidate(ctx, QuizzesPrefix)
	_, ok = grace.Get(ctx, CollectionKey("public", nil))
	assert.False(t, ok)
	_, ok = grace.Get(ctx, CollectionKey("mine", nil))
	assert.True(t, ok)
	_, ok = ada.Get(ctx, DetailKey("1"))
	assert.True(t, ok)

	// Clear drops only the caller's namespace
	ada.Clear(ctx)
	_, ok = ada.Get(ctx, DetailKey("1"))
	assert.False(t, ok)
	_, ok = grace.Get(ctx, CollectionKey("mine", nil))
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())
}
