package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface. Values are JSON encoded by every
// implementation so a Get always decodes into the caller's dest.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Expire(ctx context.Context, key string, expiration time.Duration) (bool, error)
	Close() error
}

// GetTyped retrieves a key and decodes it into a new T.
func GetTyped[T any](ctx context.Context, c Service, key string) (T, error) {
	var obj T
	if err := c.Get(ctx, key, &obj); err != nil {
		return obj, err
	}
	return obj, nil
}
