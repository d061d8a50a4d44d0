package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingCompute(calls *int32) func(context.Context) (*DashboardSummary, error) {
	return func(context.Context) (*DashboardSummary, error) {
		n := atomic.AddInt32(calls, 1)
		return &DashboardSummary{Summary: SummaryCard{Total: int64(n)}}, nil
	}
}

func TestSummaryCache_HitWithinTTL(t *testing.T) {
	clock := newFakeClock(testNow)
	cache := NewSummaryCache(clock.Now, 10*time.Second, nil)
	var calls int32

	first, err := cache.Get(context.Background(), countingCompute(&calls))
	require.NoError(t, err)

	clock.Advance(9 * time.Second)
	second, err := cache.Get(context.Background(), countingCompute(&calls))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSummaryCache_RecomputesAfterTTL(t *testing.T) {
	clock := newFakeClock(testNow)
	cache := NewSummaryCache(clock.Now, 10*time.Second, nil)
	var calls int32

	first, err := cache.Get(context.Background(), countingCompute(&calls))
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	second, err := cache.Get(context.Background(), countingCompute(&calls))
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.EqualValues(t, 2, second.Summary.Total)
}

func TestSummaryCache_ErrorsAreNotCached(t *testing.T) {
	cache := NewSummaryCache(newFakeClock(testNow).Now, 10*time.Second, nil)
	boom := errors.New("boom")

	_, err := cache.Get(context.Background(), func(context.Context) (*DashboardSummary, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	var calls int32
	v, err := cache.Get(context.Background(), countingCompute(&calls))
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Summary.Total)
}

func TestSummaryCache_ConcurrentMissesComputeOnce(t *testing.T) {
	cache := NewSummaryCache(newFakeClock(testNow).Now, 10*time.Second, nil)

	var calls int32
	release := make(chan struct{})
	compute := func(context.Context) (*DashboardSummary, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &DashboardSummary{}, nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]*DashboardSummary, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := cache.Get(context.Background(), compute)
			if err != nil {
				t.Errorf("Get() error = %v", err)
				return
			}
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for i := 1; i < n; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestSummaryCache_WaitersSurviveFirstCallerCancel(t *testing.T) {
	cache := NewSummaryCache(newFakeClock(testNow).Now, 10*time.Second, nil)
	started := make(chan struct{})
	release := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := cache.Get(ctx, func(ctx context.Context) (*DashboardSummary, error) {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return &DashboardSummary{}, nil
		})
		first <- err
	}()

	<-started
	cancel()
	close(release)

	require.NoError(t, <-first)
	v, err := cache.Get(context.Background(), func(context.Context) (*DashboardSummary, error) {
		t.Error("compute should not run again within the TTL")
		return nil, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, v)
}
