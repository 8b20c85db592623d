package repository

import (
	"context"
	"time"
)

// CacheRepository is a key-value cache. Two instances exist: management and customer-facing.
type CacheRepository interface {
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	SetMulti(ctx context.Context, items map[string]string, expiration time.Duration) error
	DeleteMulti(ctx context.Context, keys []string) error
	// IsNotFound reports whether err means the key does not exist.
	IsNotFound(err error) bool
}
