package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/queueship/internal/domain"
	"github.com/bft-labs/queueship/pkg/log"
)

// mockEmitter tracks state change events for testing.
type mockEmitter struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

func newTestLifecycle(emitter EventEmitter) *Lifecycle {
	return NewLifecycle(log.NewNoopLogger(), emitter)
}

func TestNewLifecycle(t *testing.T) {
	l := newTestLifecycle(nil)

	if l.State() != StateIdle {
		t.Errorf("initial state = %v, want StateIdle", l.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "Idle"},
		{StateCycleRunning, "CycleRunning"},
		{StateWaiting, "Waiting"},
		{StateStopping, "Stopping"},
		{StateStopped, "Stopped"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestLifecycle_TransitionTo_ValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"idle to cycle", StateIdle, StateCycleRunning},
		{"stopped to cycle", StateStopped, StateCycleRunning},
		{"cycle to waiting", StateCycleRunning, StateWaiting},
		{"waiting to cycle", StateWaiting, StateCycleRunning},
		{"cycle to stopping", StateCycleRunning, StateStopping},
		{"stopping to stopped", StateStopping, StateStopped},
		{"waiting to stopped", StateWaiting, StateStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLifecycle(nil)
			l.state = tt.from

			if err := l.TransitionTo(tt.to, "test"); err != nil {
				t.Fatalf("TransitionTo() error = %v", err)
			}
			if l.State() != tt.to {
				t.Errorf("state = %v after transition, want %v", l.State(), tt.to)
			}
		})
	}
}

func TestLifecycle_TransitionTo_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr error
	}{
		{"idle to waiting", StateIdle, StateWaiting, domain.ErrNotRunning},
		{"idle to stopping", StateIdle, StateStopping, domain.ErrNotRunning},
		{"stopped to stopped", StateStopped, StateStopped, domain.ErrNotRunning},
		{"cycle to cycle", StateCycleRunning, StateCycleRunning, domain.ErrAlreadyRunning},
		{"cycle to stopped", StateCycleRunning, StateStopped, domain.ErrAlreadyRunning},
		{"waiting to stopping", StateWaiting, StateStopping, domain.ErrAlreadyRunning},
		{"stopping to cycle", StateStopping, StateCycleRunning, domain.ErrAlreadyRunning},
		{"stopping to waiting", StateStopping, StateWaiting, domain.ErrAlreadyRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLifecycle(nil)
			l.state = tt.from

			err := l.TransitionTo(tt.to, "test")

			if err != tt.wantErr {
				t.Errorf("TransitionTo() error = %v, want %v", err, tt.wantErr)
			}
			if l.State() != tt.from {
				t.Errorf("state changed to %v on invalid transition, want %v", l.State(), tt.from)
			}
		})
	}
}

func TestLifecycle_TransitionFrom(t *testing.T) {
	l := newTestLifecycle(nil)
	l.state = StateStopped

	// A stale re-arm must not restart a stopped scheduler.
	if l.TransitionFrom(StateWaiting, StateCycleRunning, "interval elapsed") {
		t.Error("TransitionFrom succeeded from unexpected state")
	}
	if l.State() != StateStopped {
		t.Errorf("state = %v, want Stopped", l.State())
	}

	l.state = StateWaiting
	if !l.TransitionFrom(StateWaiting, StateCycleRunning, "interval elapsed") {
		t.Error("TransitionFrom failed from expected state")
	}
	if l.State() != StateCycleRunning {
		t.Errorf("state = %v, want CycleRunning", l.State())
	}
}

func TestLifecycle_BeginStop(t *testing.T) {
	tests := []struct {
		from    State
		want    State
		wantErr error
	}{
		{StateCycleRunning, StateStopping, nil},
		{StateWaiting, StateStopped, nil},
		{StateIdle, StateIdle, domain.ErrNotRunning},
		{StateStopping, StateStopping, domain.ErrNotRunning},
		{StateStopped, StateStopped, domain.ErrNotRunning},
	}

	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			l := newTestLifecycle(nil)
			l.state = tt.from

			got, err := l.BeginStop("test")
			if err != tt.wantErr {
				t.Errorf("BeginStop() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want || l.State() != tt.want {
				t.Errorf("BeginStop() = %v, state %v, want %v", got, l.State(), tt.want)
			}
		})
	}
}

func TestLifecycle_TransitionTo_EmitsEvents(t *testing.T) {
	emitter := &mockEmitter{}
	l := newTestLifecycle(emitter)

	_ = l.TransitionTo(StateCycleRunning, "start")
	_ = l.TransitionTo(StateWaiting, "cycle complete")
	_ = l.TransitionTo(StateWaiting, "invalid")

	events := emitter.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].previous != StateIdle || events[0].current != StateCycleRunning {
		t.Errorf("event 0: got %v->%v, want Idle->CycleRunning", events[0].previous, events[0].current)
	}
	if events[1].previous != StateCycleRunning || events[1].current != StateWaiting || events[1].reason != "cycle complete" {
		t.Errorf("event 1: got %+v", events[1])
	}
}

func TestLifecycle_CanStartCanStop(t *testing.T) {
	tests := []struct {
		state     State
		wantStart bool
		wantStop  bool
	}{
		{StateIdle, true, false},
		{StateCycleRunning, false, true},
		{StateWaiting, false, true},
		{StateStopping, false, false},
		{StateStopped, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			l := newTestLifecycle(nil)
			l.state = tt.state

			if got := l.CanStart(); got != tt.wantStart {
				t.Errorf("CanStart() = %v, want %v", got, tt.wantStart)
			}
			if got := l.CanStop(); got != tt.wantStop {
				t.Errorf("CanStop() = %v, want %v", got, tt.wantStop)
			}
		})
	}
}

func TestLifecycle_SetCancel_And_Cancel(t *testing.T) {
	l := newTestLifecycle(nil)

	ctx, cancel := context.WithCancel(context.Background())
	l.SetCancel(cancel)

	select {
	case <-ctx.Done():
		t.Error("context should not be canceled before Cancel()")
	default:
	}

	l.Cancel()

	select {
	case <-ctx.Done():
	default:
		t.Error("context should be canceled after Cancel()")
	}
}

func TestLifecycle_Cancel_NilSafe(t *testing.T) {
	l := newTestLifecycle(nil)
	l.Cancel()
}

func TestLifecycle_WaitWithTimeout_Success(t *testing.T) {
	l := newTestLifecycle(nil)

	l.AddWorker()
	go func() {
		time.Sleep(10 * time.Millisecond)
		l.WorkerDone()
	}()

	if err := l.WaitWithTimeout(time.Second); err != nil {
		t.Errorf("WaitWithTimeout() = %v, want nil", err)
	}
}

func TestLifecycle_WaitWithTimeout_Timeout(t *testing.T) {
	l := newTestLifecycle(nil)

	l.AddWorker()

	err := l.WaitWithTimeout(10 * time.Millisecond)
	if err != domain.ErrShutdownTimeout {
		t.Errorf("WaitWithTimeout() = %v, want ErrShutdownTimeout", err)
	}

	l.WorkerDone()
}

func TestLifecycle_Concurrency(t *testing.T) {
	l := newTestLifecycle(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = l.State()
				_ = l.CanStart()
				_ = l.CanStop()
			}
		}()
	}

	started := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TransitionTo(StateCycleRunning, "test") == nil {
				started <- struct{}{}
			}
		}()
	}

	wg.Wait()
	close(started)

	n := 0
	for range started {
		n++
	}
	if n != 1 {
		t.Errorf("%d concurrent starts succeeded, want 1", n)
	}
}
