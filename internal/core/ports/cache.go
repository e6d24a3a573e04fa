package ports

import (
	"context"
	"time"
)

// CacheStore is the storage backend of the response cache.
type CacheStore interface {
	Get(ctx context.Context, key string) (value []byte, storedAt time.Time, found bool, err error)
	Set(ctx context.Context, key string, value []byte, storedAt time.Time) error
	DeletePrefix(ctx context.Context, prefix string) error
	Clear(ctx context.Context) error
}
