// Package ratelimit paces sequential requests against the review API.
//
// The API publishes no rate-limit headers, so pacing is a fixed pause between
// pages. The pause length comes from a Strategy so tests can stub it to zero.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	pacerWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steam_pacer_wait_seconds_total",
		Help: "Total seconds spent pausing between review page requests",
	})

	pacerInterruptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steam_pacer_interrupts_total",
		Help: "Pauses cut short by context cancellation",
	})
)

// Strategy decides how long to pause after the given request attempt.
// attempt counts completed requests in the session, starting at 1.
type Strategy interface {
	Wait(attempt int) time.Duration
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(attempt int) time.Duration

// Wait implements Strategy.
func (f StrategyFunc) Wait(attempt int) time.Duration {
	return f(attempt)
}

// Fixed pauses for the same duration after every request.
func Fixed(d time.Duration) Strategy {
	return StrategyFunc(func(int) time.Duration { return d })
}

// None never pauses.
func None() Strategy {
	return Fixed(0)
}

// Pacer applies a Strategy by blocking the caller.
type Pacer struct {
	strategy Strategy
	logger   zerolog.Logger
}

// NewPacer creates a pacer. A nil strategy never pauses.
func NewPacer(strategy Strategy, logger zerolog.Logger) *Pacer {
	if strategy == nil {
		strategy = None()
	}
	return &Pacer{
		strategy: strategy,
		logger:   logger,
	}
}

// Pause blocks for the strategy's duration after the given attempt.
// It returns ctx.Err() if the context ends first.
func (p *Pacer) Pause(ctx context.Context, attempt int) error {
	d := p.strategy.Wait(attempt)
	if d <= 0 {
		return ctx.Err()
	}

	p.logger.Debug().
		Int("attempt", attempt).
		Dur("delay", d).
		Msg("Pausing before next page")

	start := time.Now()
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		pacerWaitSeconds.Add(time.Since(start).Seconds())
		pacerInterruptsTotal.Inc()
		return ctx.Err()
	case <-t.C:
		pacerWaitSeconds.Add(d.Seconds())
		return nil
	}
}
