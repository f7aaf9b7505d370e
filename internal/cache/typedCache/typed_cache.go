package typedCache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CryptoLens_MarketData/internal/cache"
)

// rebuilder is implemented by values holding derived state that JSON does not carry
type rebuilder interface {
	Rebuild()
}

// Cache is a type-safe view over a generic cache.Service for values of type T
type Cache[T any] struct {
	cache cache.Service
}

// New creates a typed view over c
func New[T any](c cache.Service) *Cache[T] {
	return &Cache[T]{cache: c}
}

// Get retrieves a value of type T. Memory caches hand back the stored value
// itself; Redis hands back a JSON string that is decoded here.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T

	value, err := c.cache.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	switch v := value.(type) {
	case T:
		return v, nil
	case *T:
		if v == nil {
			return zero, fmt.Errorf("nil value in cache for key %s", key)
		}
		return *v, nil
	case string:
		var decoded T
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return zero, fmt.Errorf("failed to unmarshal cached value for key %s: %w", key, err)
		}
		if r, ok := any(decoded).(rebuilder); ok {
			r.Rebuild()
		} else if r, ok := any(&decoded).(rebuilder); ok {
			r.Rebuild()
		}
		return decoded, nil
	default:
		return zero, fmt.Errorf("unexpected type in cache for key %s: %T", key, v)
	}
}

// Set stores a value of type T
func (c *Cache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	return c.cache.Set(ctx, key, value, ttl)
}

// Has reports whether key holds a valid entry
func (c *Cache[T]) Has(ctx context.Context, key string) bool {
	return c.cache.Has(ctx, key)
}

// Delete removes the entry for key
func (c *Cache[T]) Delete(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}
