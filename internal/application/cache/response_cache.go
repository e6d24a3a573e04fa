package cache

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"flipnote.app/cli/internal/core/ports"
)

// Key namespaces. Collection keys share the QuizzesPrefix so one
// invalidation covers every listing; item keys end in "/" so "quiz/1/"
// never matches "quiz/12/".
const (
	QuizzesPrefix  = "quizzes/"
	HistoryKey     = QuizzesPrefix + "history"
	PublicPrefix   = QuizzesPrefix + "public"
	itemPrefixRoot = "quiz/"
)

// DefaultTTL is used for list and search results.
const DefaultTTL = 5 * time.Minute

// TTLPolicy returns how long an entry under key stays valid. Zero means
// the entry is always treated as expired.
type TTLPolicy func(key string) time.Duration

// DefaultPolicy applies ttl to everything except history, which is always refetched.
func DefaultPolicy(ttl time.Duration) TTLPolicy {
	return func(key string) time.Duration {
		if strings.HasPrefix(key, HistoryKey) {
			return 0
		}
		return ttl
	}
}

// ResponseCache memoizes successful read responses with per-key TTL and
// namespace-prefix invalidation. Store failures degrade to misses.
type ResponseCache struct {
	store  ports.CacheStore
	scope  Scope
	policy TTLPolicy
	now    func() time.Time
	logger hclog.Logger
}

// Option configures a ResponseCache
type Option func(*ResponseCache)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *ResponseCache) { c.now = now }
}

// WithPolicy overrides the TTL policy
func WithPolicy(p TTLPolicy) Option {
	return func(c *ResponseCache) { c.policy = p }
}

// WithScope namespaces every key. Without it keys are stored as given.
func WithScope(scope Scope) Option {
	return func(c *ResponseCache) { c.scope = scope }
}

// WithLogger sets the logger
func WithLogger(l hclog.Logger) Option {
	return func(c *ResponseCache) { c.logger = l.Named("cache") }
}

// NewResponseCache creates a cache over store.
func NewResponseCache(store ports.CacheStore, opts ...Option) *ResponseCache {
	c := &ResponseCache{
		store:  store,
		policy: DefaultPolicy(DefaultTTL),
		now:    time.Now,
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value under key if present and still within its TTL.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ttl := c.policy(key)
	if ttl <= 0 {
		return nil, false
	}

	value, storedAt, found, err := c.store.Get(ctx, c.scope.key(key))
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	if c.now().Sub(storedAt) >= ttl {
		c.logger.Trace("cache entry expired", "key", key)
		return nil, false
	}
	c.logger.Trace("cache hit", "key", key)
	return value, true
}

// Set stores value under key, overwriting any existing entry. Keys whose
// TTL is zero are never read back and are not written.
func (c *ResponseCache) Set(ctx context.Context, key string, value []byte) {
	if c.policy(key) <= 0 {
		return
	}
	if err := c.store.Set(ctx, c.scope.key(key), value, c.now()); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// Invalidate removes every entry of the current session whose key starts
// with prefix, plus the matching shared entries.
func (c *ResponseCache) Invalidate(ctx context.Context, prefix string) {
	for _, p := range c.scope.prefixes(prefix) {
		if err := c.store.DeletePrefix(ctx, p); err != nil {
			c.logger.Warn("cache invalidation failed", "prefix", prefix, "error", err)
			return
		}
	}
	c.logger.Debug("cache invalidated", "prefix", prefix)
}

// Clear removes every entry of the current session. Unscoped caches drop
// everything.
func (c *ResponseCache) Clear(ctx context.Context) {
	ns := c.scope.private()
	var err error
	if ns == "" {
		err = c.store.Clear(ctx)
	} else {
		err = c.store.DeletePrefix(ctx, ns)
	}
	if err != nil {
		c.logger.Warn("cache clear failed", "error", err)
	}
}

// CollectionKey builds a deterministic key for a listing endpoint.
// url.Values.Encode sorts parameters by name.
func CollectionKey(name string, query url.Values) string {
	key := QuizzesPrefix + name
	if len(query) > 0 {
		key += "?" + query.Encode()
	}
	return key
}

// ItemPrefix is the namespace of everything cached about one quiz
func ItemPrefix(quizID string) string {
	return itemPrefixRoot + quizID + "/"
}

// DetailKey is the key of a quiz with its questions
func DetailKey(quizID string) string {
	return ItemPrefix(quizID) + "detail"
}
