// Package ratelimit enforces the fixed pre-request delay required by the upstream catalogs.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/malcrawl/internal/metrics"
)

// Pauser blocks for a duration or until ctx is done.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration) error
}

// Limiter waits a fixed delay before every outbound request.
type Limiter struct {
	delay  time.Duration
	pauser Pauser
}

// New creates a Limiter with the given per-request delay. Negative delays are treated as zero.
func New(delay time.Duration) *Limiter {
	return NewWithPauser(delay, timerPauser{})
}

// NewWithPauser creates a Limiter that blocks through pauser (primarily for testing).
func NewWithPauser(delay time.Duration, pauser Pauser) *Limiter {
	if delay < 0 {
		delay = 0
	}
	if pauser == nil {
		pauser = timerPauser{}
	}
	return &Limiter{delay: delay, pauser: pauser}
}

// Delay reports the configured per-request delay.
func (l *Limiter) Delay() time.Duration {
	return l.delay
}

// WaitTurn blocks for the configured delay. It only returns early when ctx is done.
func (l *Limiter) WaitTurn(ctx context.Context) error {
	if l.delay == 0 {
		return nil
	}
	start := time.Now()
	if err := l.pauser.Pause(ctx, l.delay); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	metrics.ObserveRateLimitWait(time.Since(start))
	return nil
}

type timerPauser struct{}

func (timerPauser) Pause(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
