package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/queueship/internal/domain"
	"github.com/bft-labs/queueship/pkg/log"
)

// ShutdownTimeout is the maximum time Stop waits for an in-flight cycle.
const ShutdownTimeout = 30 * time.Second

// State represents the scheduler state.
type State int

const (
	StateIdle State = iota
	StateCycleRunning
	StateWaiting
	StateStopping
	StateStopped
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCycleRunning:
		return "CycleRunning"
	case StateWaiting:
		return "Waiting"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Enabled reports whether the scheduler is armed in this state.
func (s State) Enabled() bool {
	return s == StateCycleRunning || s == StateWaiting
}

// validTransitions lists the allowed next states for each state.
var validTransitions = map[State][]State{
	StateIdle:         {StateCycleRunning},
	StateCycleRunning: {StateWaiting, StateStopping},
	StateWaiting:      {StateCycleRunning, StateStopped},
	StateStopping:     {StateStopped},
	StateStopped:      {StateCycleRunning},
}

// Lifecycle manages the scheduler state machine.
type Lifecycle struct {
	mu           sync.RWMutex
	state        State
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	logger       log.Logger
	eventEmitter EventEmitter
}

// EventEmitter is called when the scheduler state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// NewLifecycle creates a lifecycle in StateIdle.
func NewLifecycle(logger log.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:        StateIdle,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to transition to a new state.
// Returns ErrNotRunning when leaving a disabled state other than by starting,
// and ErrAlreadyRunning for any other invalid transition.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state
	if !allowed(oldState, newState) {
		l.mu.Unlock()
		return transitionError(oldState)
	}
	l.state = newState
	l.mu.Unlock()

	l.emit(oldState, newState, reason)
	return nil
}

// TransitionFrom moves from expected to newState only if the current state is
// expected. It returns false, without error, when the state moved on meanwhile.
func (l *Lifecycle) TransitionFrom(expected, newState State, reason string) bool {
	l.mu.Lock()
	if l.state != expected || !allowed(expected, newState) {
		l.mu.Unlock()
		return false
	}
	l.state = newState
	l.mu.Unlock()

	l.emit(expected, newState, reason)
	return true
}

// BeginStop disables the scheduler. A running cycle moves to StateStopping
// and finishes on its own; a waiting scheduler stops immediately.
// Returns the resulting state, or ErrNotRunning.
func (l *Lifecycle) BeginStop(reason string) (State, error) {
	l.mu.Lock()
	oldState := l.state
	var newState State
	switch oldState {
	case StateCycleRunning:
		newState = StateStopping
	case StateWaiting:
		newState = StateStopped
	default:
		l.mu.Unlock()
		return oldState, domain.ErrNotRunning
	}
	l.state = newState
	l.mu.Unlock()

	l.emit(oldState, newState, reason)
	return newState, nil
}

func (l *Lifecycle) emit(oldState, newState State, reason string) {
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Debug("state transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)
}

func allowed(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transitionError(from State) error {
	if from == StateIdle || from == StateStopped {
		return domain.ErrNotRunning
	}
	return domain.ErrAlreadyRunning
}

// CanStart returns true if Start() can be called.
func (l *Lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateIdle || l.state == StateStopped
}

// CanStop returns true if Stop() can be called.
func (l *Lifecycle) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Enabled()
}

// SetCancel stores the cancel function that wakes a waiting scheduler.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel calls the stored cancel function.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// AddWorker increments the worker count.
func (l *Lifecycle) AddWorker() {
	l.wg.Add(1)
}

// WorkerDone decrements the worker count.
func (l *Lifecycle) WorkerDone() {
	l.wg.Done()
}

// WaitWithTimeout waits for all workers to finish with a timeout.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		l.logger.Warn("shutdown timeout, in-flight cycle still running",
			log.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
