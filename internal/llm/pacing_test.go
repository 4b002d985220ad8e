package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallPacer_BurstThenMetered(t *testing.T) {
	// 5 requests per 100ms window: the full burst goes through at once,
	// the next request has to wait for accrual.
	p := newCallPacerWithWindow(5, 100*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, p.wait(ctx))
	}

	start := time.Now()
	require.NoError(t, p.wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond,
		"request beyond the burst should wait for accrual")
}

func TestCallPacer_AcquireReportsDelay(t *testing.T) {
	p := newCallPacerWithWindow(2, time.Hour)

	granted, _ := p.acquire()
	assert.True(t, granted)
	granted, _ = p.acquire()
	assert.True(t, granted)

	granted, delay := p.acquire()
	assert.False(t, granted)
	assert.Greater(t, delay, time.Duration(0))
	assert.LessOrEqual(t, delay, time.Hour/2)
}

func TestCallPacer_ContextCancellation(t *testing.T) {
	p := newCallPacerWithWindow(1, time.Hour)
	require.NoError(t, p.wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.wait(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCallPacer_Reset(t *testing.T) {
	p := newCallPacerWithWindow(3, time.Hour)

	for i := 0; i < 3; i++ {
		granted, _ := p.acquire()
		require.True(t, granted)
	}
	granted, _ := p.acquire()
	assert.False(t, granted)

	p.reset()

	granted, _ = p.acquire()
	assert.True(t, granted)
}

func TestCallPacer_DefaultBudget(t *testing.T) {
	p := newCallPacer(0)

	for i := 0; i < defaultRequestsPerMinute; i++ {
		granted, _ := p.acquire()
		require.True(t, granted, "default budget should allow request %d", i+1)
	}
}

func TestCallPacer_ConcurrentAccess(t *testing.T) {
	p := newCallPacerWithWindow(100, time.Hour)
	ctx := context.Background()

	var mu sync.Mutex
	acquired := 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if err := p.wait(ctx); err == nil {
					mu.Lock()
					acquired++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, acquired)
}
