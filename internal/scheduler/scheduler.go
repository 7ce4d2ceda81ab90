package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked once per cycle.
type TickFunc func(ctx context.Context) error

// IntervalFunc returns the wait before the next tick. It is called once per
// cycle so a changed interval applies from the next wait.
type IntervalFunc func(ctx context.Context) time.Duration

// Options tune scheduler behaviour.
type Options struct {
	Interval         IntervalFunc
	FallbackInterval time.Duration
	StartupDelay     time.Duration
}

// Scheduler runs one tick at a time, sleeping between ticks.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.FallbackInterval <= 0 {
		panic("scheduler fallback interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, ticking immediately and then after every interval until ctx is
// cancelled. A failing or panicking tick is logged and the loop carries on.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if err := s.sleep(ctx, s.opts.StartupDelay); err != nil {
		return err
	}

	for {
		started := time.Now()
		if err := s.safeTick(ctx, tick); err != nil {
			s.logger.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("tick execution failed")
		}

		delay := s.interval(ctx)
		s.logger.Debug().Dur("delay", delay).Msg("waiting for next tick")
		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (s *Scheduler) safeTick(ctx context.Context, tick TickFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
		}
	}()
	return tick(ctx)
}

func (s *Scheduler) interval(ctx context.Context) time.Duration {
	if s.opts.Interval == nil {
		return s.opts.FallbackInterval
	}
	d := s.opts.Interval(ctx)
	if d <= 0 {
		return s.opts.FallbackInterval
	}
	return d
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil || d <= 0 {
		return err
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
