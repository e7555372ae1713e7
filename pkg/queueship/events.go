package queueship

import (
	"time"

	"github.com/bft-labs/queueship/internal/app"
	"github.com/bft-labs/queueship/internal/domain"
)

// State is the scheduler state of a Queueship instance.
type State int

const (
	// StateIdle means the scheduler has never been started.
	StateIdle State = iota

	// StateCycleRunning means a scheduled cycle is in flight.
	StateCycleRunning

	// StateWaiting means the scheduler is armed and waiting for the interval.
	StateWaiting

	// StateStopping means Stop was called while a cycle was in flight.
	StateStopping

	// StateStopped means the scheduler was stopped.
	StateStopped
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	return app.State(s).String()
}

// Running reports whether the scheduler is enabled.
func (s State) Running() bool {
	return s == StateCycleRunning || s == StateWaiting
}

// StateChangeEvent is emitted on every scheduler state transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// SendSuccessEvent is emitted after a batch was delivered.
type SendSuccessEvent struct {
	PacketCount int
	BytesSent   int64
	Duration    time.Duration
}

// SendErrorEvent is emitted after a batch failed to send. The packets stay
// queued.
type SendErrorEvent struct {
	Error       error
	PacketCount int
	Retryable   bool
}

// EventHandler receives Queueship events.
// Methods are called synchronously from the cycle goroutine and should
// return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)

	// OnCycleComplete receives the outcome of every scheduled cycle.
	OnCycleComplete(outcome Outcome)

	OnSendSuccess(event SendSuccessEvent)
	OnSendError(event SendErrorEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnCycleComplete(Outcome)        {}
func (BaseEventHandler) OnSendSuccess(SendSuccessEvent) {}
func (BaseEventHandler) OnSendError(SendErrorEvent)     {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: State(previous),
		Current:  State(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnCycleComplete(outcome domain.Outcome) {
	if e.handler == nil {
		return
	}
	e.handler.OnCycleComplete(outcome)
}

func (e *eventEmitterWrapper) OnSendSuccess(packetCount int, bytesSent int64, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendSuccess(SendSuccessEvent{
		PacketCount: packetCount,
		BytesSent:   bytesSent,
		Duration:    duration,
	})
}

func (e *eventEmitterWrapper) OnSendError(err error, packetCount int, retryable bool) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendError(SendErrorEvent{
		Error:       err,
		PacketCount: packetCount,
		Retryable:   retryable,
	})
}
