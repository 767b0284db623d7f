/*
scheduler.go - Balance increment scheduler

PURPOSE:

	Periodically applies each leave type's increment policy (every
	IncrementGapMonths months, add IncrementCount days to every active
	employee) via leave.Engine.ApplyIncrements.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - The engine records the last run per type, so checking more often than
    the policy gap is harmless

USAGE:

	scheduler := NewIncrementScheduler(engine, time.Hour, logger)
	scheduler.Start()
	// ... later
	scheduler.Stop()

SEE ALSO:
  - leave/increment.go: ApplyIncrements
  - handlers.go: RunIncrements endpoint (manual trigger)
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// Incrementer is the part of leave.Engine the scheduler drives.
type Incrementer interface {
	ApplyIncrements(ctx context.Context, today generic.TimePoint) (leave.IncrementResult, error)
}

// IncrementScheduler handles automated balance increments.
type IncrementScheduler struct {
	Engine        Incrementer
	CheckInterval time.Duration
	Enabled       bool
	Today         func() generic.TimePoint

	log    *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewIncrementScheduler creates a new scheduler. A non-positive interval
// disables it.
func NewIncrementScheduler(engine Incrementer, interval time.Duration, logger ...*zap.Logger) *IncrementScheduler {
	log := zap.L()
	if len(logger) > 0 && logger[0] != nil {
		log = logger[0]
	}
	return &IncrementScheduler{
		Engine:        engine,
		CheckInterval: interval,
		Enabled:       interval > 0,
		Today:         generic.Today,
		log:           log.Named("api.scheduler"),
	}
}

// Start begins the scheduler.
func (s *IncrementScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.log.Info("increment scheduler disabled")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	s.log.Info("increment scheduler started", zap.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *IncrementScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.log.Info("increment scheduler stopped")
}

func (s *IncrementScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.RunNow(context.Background())
	for {
		select {
		case <-ticker.C:
			s.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow applies due increments once.
func (s *IncrementScheduler) RunNow(ctx context.Context) (leave.IncrementResult, error) {
	res, err := s.Engine.ApplyIncrements(ctx, s.Today())
	if err != nil {
		s.log.Error("increment run failed", zap.Error(err))
		return res, err
	}
	if len(res.TypesApplied) > 0 {
		s.log.Info("increments applied",
			zap.Int("types", len(res.TypesApplied)),
			zap.Int("balances", res.BalancesUpdated),
		)
	}
	return res, nil
}
