package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedResolver memoises resolutions in Redis for a short TTL. A stale
// entry can only delay a deactivation taking effect for at most the TTL; it
// never resurrects an id the inner resolver does not know.
type CachedResolver struct {
	inner  Resolver
	client *redis.Client
	ttl    time.Duration
}

// NewCachedResolver wraps inner with a Redis cache.
func NewCachedResolver(inner Resolver, client *redis.Client, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedResolver{inner: inner, client: client, ttl: ttl}
}

func (c *CachedResolver) ResolveProduct(ctx context.Context, productID, variationID int64) (Resolution, error) {
	key := fmt.Sprintf("catalog:product:%d:%d", productID, variationID)
	return c.resolve(ctx, key, func() (Resolution, error) {
		return c.inner.ResolveProduct(ctx, productID, variationID)
	})
}

func (c *CachedResolver) ResolveSupplier(ctx context.Context, supplierID int64) (Resolution, error) {
	key := fmt.Sprintf("catalog:supplier:%d", supplierID)
	return c.resolve(ctx, key, func() (Resolution, error) {
		return c.inner.ResolveSupplier(ctx, supplierID)
	})
}

func (c *CachedResolver) resolve(ctx context.Context, key string, lookup func() (Resolution, error)) (Resolution, error) {
	if val, err := c.client.Get(ctx, key).Result(); err == nil {
		if res, ok := decodeResolution(val); ok {
			return res, nil
		}
	} else if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
		// Cache being down is not a reason to fail the movement.
		return lookup()
	}
	res, err := lookup()
	if err != nil {
		return Resolution{}, err
	}
	_ = c.client.Set(ctx, key, encodeResolution(res), c.ttl).Err()
	return res, nil
}

func encodeResolution(res Resolution) string {
	switch {
	case res.OK():
		return "active"
	case res.Exists:
		return "inactive"
	default:
		return "missing"
	}
}

func decodeResolution(val string) (Resolution, bool) {
	switch val {
	case "active":
		return Resolution{Exists: true, Active: true}, true
	case "inactive":
		return Resolution{Exists: true, Active: false}, true
	case "missing":
		return Resolution{}, true
	default:
		return Resolution{}, false
	}
}
