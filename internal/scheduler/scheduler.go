package scheduler

import (
	"context"
	"time"

	"foldersync/internal/logger"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type TickFunc func(ctx context.Context) error

// Scheduler runs a tick once right away and then once per interval.
// Ticks run one at a time on the Run goroutine; intervals that pass while
// a tick is still running are dropped.
type Scheduler struct {
	clock    clockwork.Clock
	interval time.Duration
	tick     TickFunc
	trigger  chan struct{}
}

func New(clock clockwork.Clock, interval time.Duration, tick TickFunc) *Scheduler {
	return &Scheduler{
		clock:    clock,
		interval: interval,
		tick:     tick,
		trigger:  make(chan struct{}, 1),
	}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.runTick(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.runTick(ctx, "interval")
		case <-s.trigger:
			s.runTick(ctx, "trigger")
		}
	}
}

// Trigger asks for an extra tick. Requests made while one is already
// pending are merged.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) runTick(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}

	// tick failures are already reported by the tick itself
	if err := s.tick(ctx); err != nil {
		logger.Log.Debug("tick failed",
			zap.String("reason", reason),
			zap.Error(err))
	}
}
