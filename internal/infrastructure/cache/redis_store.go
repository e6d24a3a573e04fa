package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"flipnote.app/cli/internal/core/ports"
)

const defaultRedisPrefix = "flipnote:cache:"

// RedisStore shares the response cache between CLI invocations.
type RedisStore struct {
	client *redis.Client
	prefix string
	expiry time.Duration
}

type redisEntry struct {
	Value    []byte    `json:"v"`
	StoredAt time.Time `json:"t"`
}

// NewRedisStore connects to redisURL (e.g. redis://:pass@host:6379/0).
// expiry bounds how long Redis keeps an entry; the response cache applies
// its own TTL on read.
func NewRedisStore(ctx context.Context, redisURL, prefix string, expiry time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return NewRedisStoreWithClient(client, prefix, expiry), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, prefix string, expiry time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, expiry: expiry}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("malformed cache entry: %w", err)
	}
	return e.Value, e.StoredAt, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, storedAt time.Time) error {
	raw, err := json.Marshal(redisEntry{Value: value, StoredAt: storedAt})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), raw, s.expiry).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) error {
	return s.deleteMatching(ctx, MatchPattern(s.key(prefix)))
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.deleteMatching(ctx, MatchPattern(s.prefix))
}

func (s *RedisStore) deleteMatching(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache entries: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache entries: %w", err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache entries: %w", err)
		}
	}
	return nil
}

// Close releases the redis connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MatchPattern turns a literal key prefix into a SCAN MATCH pattern.
// Cache keys carry query strings, so '?' and friends must be escaped.
func MatchPattern(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		switch r {
		case '*', '?', '[', ']', '\\', '^', '-':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	b.WriteRune('*')
	return b.String()
}

var _ ports.CacheStore = (*RedisStore)(nil)
