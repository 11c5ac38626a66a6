package main

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	maxBackoff   = 10 * time.Second
	jitterWindow = 250 * time.Millisecond
)

// poller tracks the delay between outbox polls.
type poller struct {
	interval time.Duration
	backoff  time.Duration
}

func newPoller(interval time.Duration) *poller {
	if interval <= 0 {
		interval = defaultPollMs * time.Millisecond
	}
	return &poller{interval: interval, backoff: interval}
}

func (p *poller) reset() { p.backoff = p.interval }

func (p *poller) idle(ctx context.Context) error {
	p.reset()
	return sleep(ctx, withJitter(p.interval))
}

func (p *poller) failure(ctx context.Context) error {
	p.backoff = nextBackoff(p.backoff, p.interval, maxBackoff)
	return sleep(ctx, withJitter(p.backoff))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, max)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
