package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bamul/packline-analytics/internal/production/domain"
	"github.com/bamul/packline-analytics/internal/production/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingQueries records how often each query reaches the service
type countingQueries struct {
	Queries
	stats atomic.Int64
	fail  error
	gate  chan struct{}
}

func (q *countingQueries) DashboardStats(ctx context.Context) (domain.Snapshot, error) {
	q.stats.Add(1)
	if q.gate != nil {
		<-q.gate
	}
	if q.fail != nil {
		return domain.Snapshot{}, q.fail
	}
	return q.Queries.DashboardStats(ctx)
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	ctx := context.Background()
	err = client.Ping(ctx).Err()
	require.NoError(t, err)

	return client, mr
}

func seededService() *QueryService {
	return newService(repository.NewMemoryStore(
		trayAt("a", midnight.Add(6*time.Hour), "1", "half", 120),
		trayAt("b", midnight.Add(7*time.Hour), "2", "one", 90),
		opticalAt("c1", midnight.Add(8*time.Hour), "1", 500, 500),
	))
}

func TestCachedQueries_HitAfterMiss(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	inner := &countingQueries{Queries: seededService()}
	cache := NewCachedQueries(inner, client, 30*time.Second, ist, zap.NewNop()).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	first, err := cache.DashboardStats(ctx)
	require.NoError(t, err)
	second, err := cache.DashboardStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.stats.Load())
	assert.True(t, mr.Exists("analytics:2024-06-15:stats"))
	assert.Equal(t, 30*time.Second, mr.TTL("analytics:2024-06-15:stats"))

	mr.FastForward(31 * time.Second)
	_, err = cache.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inner.stats.Load())
}

func TestCachedQueries_ExpiresAtMidnight(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	clock := midnight.Add(24*time.Hour - 10*time.Second)
	inner := &countingQueries{Queries: seededService()}
	cache := NewCachedQueries(inner, client, time.Minute, ist, zap.NewNop()).
		WithClock(func() time.Time { return clock })

	_, err := cache.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, mr.TTL("analytics:2024-06-15:stats"))

	// the next day reads a different key even before the old one expires
	clock = midnight.Add(24 * time.Hour)
	_, err = cache.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), inner.stats.Load())
	assert.True(t, mr.Exists("analytics:2024-06-16:stats"))
}

func TestCachedQueries_RoundTripsBuckets(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCachedQueries(seededService(), client, time.Minute, ist, zap.NewNop()).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	fresh, err := cache.HourlySeries(ctx, domain.EventOpticalCount, []string{domain.DimLine})
	require.NoError(t, err)
	hit, err := cache.HourlySeries(ctx, domain.EventOpticalCount, []string{domain.DimLine})
	require.NoError(t, err)

	require.Len(t, hit, len(fresh))
	for i := range fresh {
		assert.True(t, fresh[i].WindowStart.Equal(hit[i].WindowStart))
		assert.Equal(t, fresh[i].Sum, hit[i].Sum)
		assert.Equal(t, fresh[i].Key.ID(), hit[i].Key.ID())
	}

	list, err := cache.ListToday(ctx, domain.EventTray)
	require.NoError(t, err)
	cachedList, err := cache.ListToday(ctx, domain.EventTray)
	require.NoError(t, err)
	assert.Equal(t, len(list.Items), len(cachedList.Items))
	assert.Equal(t, list.Items[0].ID, cachedList.Items[0].ID)

	n, err := cache.LatestDerivedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(500), n)
	assert.True(t, mr.Exists("analytics:2024-06-15:total-packets"))
}

func TestCachedQueries_ErrorsAreNotCached(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	inner := &countingQueries{Queries: seededService(), fail: domain.StoreError("query trays", errors.New("timeout"))}
	cache := NewCachedQueries(inner, client, time.Minute, ist, zap.NewNop()).
		WithClock(func() time.Time { return now })

	_, err := cache.DashboardStats(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.False(t, mr.Exists("analytics:2024-06-15:stats"))
}

func TestCachedQueries_RedisDownFallsThrough(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()
	mr.Close()

	inner := &countingQueries{Queries: seededService()}
	cache := NewCachedQueries(inner, client, time.Minute, ist, zap.NewNop()).
		WithClock(func() time.Time { return now })

	snap, err := cache.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(210), snap.TotalQuantity)
}

func TestCachedQueries_CollapsesConcurrentMisses(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	inner := &countingQueries{Queries: seededService(), gate: make(chan struct{})}
	cache := NewCachedQueries(inner, client, time.Minute, ist, zap.NewNop()).
		WithClock(func() time.Time { return now })

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.DashboardStats(context.Background())
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return inner.stats.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(inner.gate)
	wg.Wait()

	assert.Equal(t, int64(1), inner.stats.Load())
}
