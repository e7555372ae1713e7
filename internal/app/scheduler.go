package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/queueship/internal/domain"
	"github.com/bft-labs/queueship/pkg/log"
)

// SchedulerConfig contains the timing of periodic processing.
type SchedulerConfig struct {
	Interval time.Duration

	// RetryBackoffMax enables exponential backoff after failed cycles,
	// capped at this value. Zero disables it except when the remote asks
	// for backoff.
	RetryBackoffMax time.Duration
}

// Cycler runs one batch cycle.
type Cycler interface {
	RunCycle(ctx context.Context) domain.Outcome
}

// Scheduler runs cycles periodically. The next cycle is armed only after the
// previous one has reported, so cycles never overlap.
type Scheduler struct {
	mu              sync.Mutex
	config          SchedulerConfig
	cycler          Cycler
	lifecycle       *Lifecycle
	logger          log.Logger
	shutdownTimeout time.Duration
}

// NewScheduler creates a scheduler in StateIdle.
func NewScheduler(cfg SchedulerConfig, cycler Cycler, lifecycle *Lifecycle, logger log.Logger) *Scheduler {
	return &Scheduler{
		config:          cfg,
		cycler:          cycler,
		lifecycle:       lifecycle,
		logger:          logger,
		shutdownTimeout: ShutdownTimeout,
	}
}

// State returns the scheduler state.
func (s *Scheduler) State() State {
	return s.lifecycle.State()
}

// SetConfig replaces the timing. Returns ErrAlreadyRunning unless stopped.
func (s *Scheduler) SetConfig(cfg SchedulerConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	s.config = cfg
	return nil
}

// Start runs the first cycle immediately and keeps scheduling until Stop is
// called or ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lifecycle.TransitionTo(StateCycleRunning, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.lifecycle.SetCancel(cancel)

	s.logger.Info("scheduler started",
		log.Duration("interval", s.config.Interval),
		log.Duration("retry_backoff_max", s.config.RetryBackoffMax),
	)

	s.lifecycle.AddWorker()
	go s.run(runCtx, cancel, s.config)
	return nil
}

// Stop disables the scheduler. An in-flight cycle runs to completion; its
// send is not canceled. Returns ErrShutdownTimeout if the cycle does not
// finish within the shutdown timeout.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if _, err := s.lifecycle.BeginStop("Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	s.lifecycle.Cancel()
	timeout := s.shutdownTimeout
	s.mu.Unlock()

	if err := s.lifecycle.WaitWithTimeout(timeout); err != nil {
		return err
	}
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) run(ctx context.Context, cancel context.CancelFunc, cfg SchedulerConfig) {
	defer s.lifecycle.WorkerDone()
	defer cancel()

	maxBackoff := cfg.RetryBackoffMax
	if maxBackoff <= 0 {
		maxBackoff = DefaultBackoffMax
	}
	b := newBackoff(cfg.Interval, maxBackoff)

	for {
		outcome := s.cycler.RunCycle(context.WithoutCancel(ctx))
		delay := nextDelay(cfg, b, outcome)

		if !s.lifecycle.TransitionFrom(StateCycleRunning, StateWaiting, "cycle complete") {
			s.lifecycle.TransitionFrom(StateStopping, StateStopped, "in-flight cycle finished")
			return
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.lifecycle.TransitionFrom(StateWaiting, StateStopped, "context done")
			return
		case <-timer.C:
		}

		if ctx.Err() != nil {
			s.lifecycle.TransitionFrom(StateWaiting, StateStopped, "context done")
			return
		}
		if !s.lifecycle.TransitionFrom(StateWaiting, StateCycleRunning, "interval elapsed") {
			return
		}
	}
}

// nextDelay returns the wait before the next cycle: the interval, or the
// retry backoff when it is enabled (or requested by the remote) and longer.
func nextDelay(cfg SchedulerConfig, b *backoff, outcome domain.Outcome) time.Duration {
	if outcome.Err == nil {
		b.Reset()
		return cfg.Interval
	}
	if cfg.RetryBackoffMax <= 0 && !domain.ShouldBackoff(outcome.Err) {
		return cfg.Interval
	}
	if d := b.Next(); d > cfg.Interval {
		return d
	}
	return cfg.Interval
}
