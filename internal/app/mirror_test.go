package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"review_insights/internal/app"
	"review_insights/internal/domain"
)

type fakeCache struct {
	mu    sync.Mutex
	store map[string]any
	ttls  map[string]int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if d, ok := dst.(*domain.AggregateStats); ok {
		*d = v.(domain.AggregateStats)
	}
	return true, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store, c.ttls = map[string]any{}, map[string]int{}
	}
	c.store[key] = v
	c.ttls[key] = ttlSec
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error { return nil }

func TestMirrorStats_WritesEveryPublish(t *testing.T) {
	ctrl := startController(t)
	cache := &fakeCache{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.MirrorStats(ctx, ctrl, cache, time.Minute) }()

	require.NoError(t, ctrl.Append(context.Background(), records(5, 5, 4, 3, 2)...))

	require.Eventually(t, func() bool {
		var got domain.AggregateStats
		ok, _ := cache.Get(context.Background(), app.StatsKey, &got)
		return ok && got.TotalReviews == 5 && got.AverageRating == 3.8
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	cache.mu.Lock()
	require.Equal(t, 60, cache.ttls[app.StatsKey])
	cache.mu.Unlock()
}
