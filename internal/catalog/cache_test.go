package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type countingResolver struct {
	products  map[[2]int64]Resolution
	suppliers map[int64]Resolution
	calls     int
}

func (r *countingResolver) ResolveProduct(_ context.Context, productID, variationID int64) (Resolution, error) {
	r.calls++
	return r.products[[2]int64{productID, variationID}], nil
}

func (r *countingResolver) ResolveSupplier(_ context.Context, supplierID int64) (Resolution, error) {
	r.calls++
	return r.suppliers[supplierID], nil
}

func newCacheFixture(t *testing.T, ttl time.Duration) (*CachedResolver, *countingResolver, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	inner := &countingResolver{
		products:  map[[2]int64]Resolution{},
		suppliers: map[int64]Resolution{},
	}
	return NewCachedResolver(inner, client, ttl), inner, srv
}

func TestCachedResolverMemoisesProductLookups(t *testing.T) {
	cached, inner, _ := newCacheFixture(t, time.Minute)
	inner.products[[2]int64{10, 0}] = Resolution{Exists: true, Active: true}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := cached.ResolveProduct(ctx, 10, 0)
		require.NoError(t, err)
		require.True(t, res.OK())
	}
	require.Equal(t, 1, inner.calls)
}

func TestCachedResolverCachesNegativeResults(t *testing.T) {
	cached, inner, _ := newCacheFixture(t, time.Minute)

	ctx := context.Background()
	res, err := cached.ResolveSupplier(ctx, 99)
	require.NoError(t, err)
	require.False(t, res.Exists)

	res, err = cached.ResolveSupplier(ctx, 99)
	require.NoError(t, err)
	require.False(t, res.Exists)
	require.Equal(t, 1, inner.calls)
}

func TestCachedResolverExpiryRefetches(t *testing.T) {
	cached, inner, srv := newCacheFixture(t, time.Second)
	inner.suppliers[7] = Resolution{Exists: true, Active: true}

	ctx := context.Background()
	_, err := cached.ResolveSupplier(ctx, 7)
	require.NoError(t, err)

	// Deactivation becomes visible after the TTL elapses.
	inner.suppliers[7] = Resolution{Exists: true, Active: false}
	srv.FastForward(2 * time.Second)

	res, err := cached.ResolveSupplier(ctx, 7)
	require.NoError(t, err)
	require.True(t, res.Exists)
	require.False(t, res.Active)
	require.Equal(t, 2, inner.calls)
}

func TestCachedResolverFallsThroughWhenRedisDown(t *testing.T) {
	cached, inner, srv := newCacheFixture(t, time.Minute)
	inner.products[[2]int64{1, 2}] = Resolution{Exists: true, Active: true}
	srv.Close()

	res, err := cached.ResolveProduct(context.Background(), 1, 2)
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Equal(t, 1, inner.calls)
}
