package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeDesk/internal/domain/models"
)

func testConfig() Config {
	return Config{
		RequestsPerWindow: 1000,
		Window:            time.Second,
		MaxRetries:        2,
		RetryBackoff:      10 * time.Millisecond,
		QueueSize:         64,
	}
}

func TestSubmitReturnsResponse(t *testing.T) {
	g := New(testConfig(), nil, nil)
	defer g.Close()

	v, err := g.Submit(context.Background(), "quote", func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestFIFOOrderingAndNoConcurrency(t *testing.T) {
	g := New(testConfig(), nil, nil)
	defer g.Close()

	var mu sync.Mutex
	var order []int
	var inFlight, maxInFlight int32

	var wg sync.WaitGroup
	for i := 1; i <= 3; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Submit(context.Background(), "order", func(ctx context.Context) (interface{}, error) {
				n := atomic.AddInt32(&inFlight, 1)
				if n > atomic.LoadInt32(&maxInFlight) {
					atomic.StoreInt32(&maxInFlight, n)
				}
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				atomic.AddInt32(&inFlight, -1)
				return nil, nil
			})
			assert.NoError(t, err)
		}()
		// Stagger submissions so arrival order is deterministic.
		time.Sleep(2 * time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, int32(1), maxInFlight, "requests must never execute concurrently")
}

func TestRateLimitRetriesThenSucceeds(t *testing.T) {
	g := New(testConfig(), nil, nil)
	defer g.Close()

	var calls int32
	v, err := g.Submit(context.Background(), "order", func(ctx context.Context) (interface{}, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, models.ErrRateLimited
		}
		return "filled", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "filled", v)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRateLimitExhaustsRetries(t *testing.T) {
	g := New(testConfig(), nil, nil)
	defer g.Close()

	_, err := g.Submit(context.Background(), "order", func(ctx context.Context) (interface{}, error) {
		return nil, models.ErrRateLimited
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRateLimited)
}

func TestThrottleDelaysProcessing(t *testing.T) {
	g := New(testConfig(), nil, nil)
	defer g.Close()

	g.Throttle(80 * time.Millisecond)
	st := g.Stats()
	assert.True(t, st.IsThrottled)
	assert.Greater(t, st.ThrottleTimeRemaining, int64(0))

	start := time.Now()
	_, err := g.Submit(context.Background(), "quote", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestClearQueueFailsPendingCallers(t *testing.T) {
	g := New(testConfig(), nil, nil)
	defer g.Close()

	release := make(chan struct{})
	go func() {
		_, _ = g.Submit(context.Background(), "slow", func(ctx context.Context) (interface{}, error) {
			<-release
			return nil, nil
		})
	}()
	time.Sleep(10 * time.Millisecond) // let the slow call start

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := g.Submit(context.Background(), "pending", func(ctx context.Context) (interface{}, error) {
				return nil, nil
			})
			errs <- err
		}()
	}
	time.Sleep(10 * time.Millisecond) // both queued behind the slow call

	n := g.ClearQueue()
	close(release)

	assert.Equal(t, 2, n)
	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, <-errs, models.ErrQueueCleared)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	g := New(testConfig(), nil, nil)
	g.Close()

	_, err := g.Submit(context.Background(), "quote", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, models.ErrGatewayClosed)
}

func TestStatsIdle(t *testing.T) {
	g := New(testConfig(), nil, nil)
	defer g.Close()

	st := g.Stats()
	assert.Zero(t, st.QueueLength)
	assert.False(t, st.IsThrottled)
	assert.False(t, st.Processing)
}
