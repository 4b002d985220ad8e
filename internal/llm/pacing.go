package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// callPacer spaces provider requests to stay inside a requests-per-minute
// budget. Batch cleanup can push hundreds of unmatched payees at the
// fallback in one run; the pacer lets a burst up to the full budget through
// and then meters the rest. Allowance accrues from elapsed time on each
// acquisition attempt, so an idle cleaner runs no background work.
type callPacer struct {
	lastAccrual time.Time
	interval    time.Duration
	allowance   float64
	burst       float64
	mu          sync.Mutex
}

// defaultRequestsPerMinute is used when no budget is configured.
const defaultRequestsPerMinute = 60

func newCallPacer(requestsPerMinute int) *callPacer {
	return newCallPacerWithWindow(requestsPerMinute, time.Minute)
}

// newCallPacerWithWindow shrinks the accrual window for tests.
func newCallPacerWithWindow(requests int, window time.Duration) *callPacer {
	if requests <= 0 {
		requests = defaultRequestsPerMinute
	}
	return &callPacer{
		interval:    window / time.Duration(requests),
		allowance:   float64(requests),
		burst:       float64(requests),
		lastAccrual: time.Now(),
	}
}

// wait blocks until the pacer grants a request or the context ends.
func (p *callPacer) wait(ctx context.Context) error {
	for {
		granted, delay := p.acquire()
		if granted {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("canceled while pacing LLM requests: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
}

// acquire spends one request from the allowance. When the allowance is
// exhausted it reports how long until the next request accrues.
func (p *callPacer) acquire() (bool, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(p.lastAccrual)
	p.lastAccrual = now
	p.allowance += float64(elapsed) / float64(p.interval)
	if p.allowance > p.burst {
		p.allowance = p.burst
	}

	if p.allowance >= 1 {
		p.allowance--
		return true, 0
	}

	missing := 1 - p.allowance
	return false, time.Duration(missing * float64(p.interval))
}

// reset restores the full burst allowance, for use after a provider-side
// rate limit window has clearly elapsed.
func (p *callPacer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowance = p.burst
	p.lastAccrual = time.Now()
}
