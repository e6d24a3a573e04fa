package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flipnote.app/cli/internal/core/ports"
)

func exerciseStore(t *testing.T, store ports.CacheStore) {
	t.Helper()
	ctx := context.Background()
	storedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// Miss
	_, _, found, err := store.Get(ctx, "quiz/1/detail")
	require.NoError(t, err)
	assert.False(t, found)

	// Round trip keeps the store time
	require.NoError(t, store.Set(ctx, "quiz/1/detail", []byte(`{"id":"1"}`), storedAt))
	value, at, found, err := store.Get(ctx, "quiz/1/detail")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte(`{"id":"1"}`), value)
	assert.True(t, storedAt.Equal(at))

	// Prefix deletion respects the trailing slash and literal query characters
	require.NoError(t, store.Set(ctx, "quiz/12/detail", []byte("12"), storedAt))
	require.NoError(t, store.Set(ctx, "quizzes/mine?page=1&page_size=10", []byte("mine"), storedAt))
	require.NoError(t, store.Set(ctx, "quizzes/search?q=go", []byte("search"), storedAt))

	require.NoError(t, store.DeletePrefix(ctx, "quiz/1/"))
	_, _, found, _ = store.Get(ctx, "quiz/1/detail")
	assert.False(t, found)
	_, _, found, _ = store.Get(ctx, "quiz/12/detail")
	assert.True(t, found)

	require.NoError(t, store.DeletePrefix(ctx, "quizzes/mine?"))
	_, _, found, _ = store.Get(ctx, "quizzes/mine?page=1&page_size=10")
	assert.False(t, found)
	_, _, found, _ = store.Get(ctx, "quizzes/search?q=go")
	assert.True(t, found)

	require.NoError(t, store.Clear(ctx))
	_, _, found, _ = store.Get(ctx, "quiz/12/detail")
	assert.False(t, found)
	_, _, found, _ = store.Get(ctx, "quizzes/search?q=go")
	assert.False(t, found)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	value := []byte("abc")

	require.NoError(t, store.Set(ctx, "k", value, time.Now()))
	value[0] = 'z'

	got, _, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[1] = 'z'
	again, _, _, _ := store.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
	assert.Equal(t, 1, store.Len())
}

// Runs against a real server when FQ_TEST_REDIS_URL is set, e.g.
// FQ_TEST_REDIS_URL=redis://localhost:6379/15
func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("FQ_TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("FQ_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	store, err := NewRedisStore(ctx, redisURL, "fq-test:"+t.Name()+":", time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Clear(ctx)
		_ = store.Close()
	})

	exerciseStore(t, store)
}

func TestNewRedisStore_Errors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, "not a url", "", time.Minute)
	assert.ErrorContains(t, err, "invalid redis url")

	_, err = NewRedisStore(ctx, "redis://127.0.0.1:1/0", "", time.Minute)
	assert.ErrorContains(t, err, "failed to reach redis")
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		prefix   string
		expected string
	}{
		{"flipnote:cache:", "flipnote:cache:*"},
		{"flipnote:cache:quiz/1/", "flipnote:cache:quiz/1/*"},
		{"flipnote:cache:quizzes/mine?page=1", `flipnote:cache:quizzes/mine\?page=1*`},
		{"a*b[c]", `a\*b\[c\]*`},
		{`back\slash`, `back\\slash*`},
	}

	for _, tc := range tests {
		t.Run(tc.prefix, func(t *testing.T) {
			assert.Equal(t, tc.expected, MatchPattern(tc.prefix))
		})
	}
}
