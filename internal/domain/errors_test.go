package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_IsMatchesKindSentinel(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		sentinel error
	}{
		{KindCapacityExceeded, ErrCapacityExceeded},
		{KindConfigurationInvalid, ErrConfigurationInvalid},
		{KindTransportFailure, ErrTransportFailure},
		{KindNoPeerAvailable, ErrNoPeerAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("outer: %w", NewError(tt.kind, "detail"))
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
			if errors.Is(err, ErrAlreadyRunning) {
				t.Error("matched unrelated sentinel")
			}
			if got := KindOf(err); got != tt.kind {
				t.Errorf("KindOf() = %v, want %v", got, tt.kind)
			}
		})
	}
}

func TestKindOf_BareSentinel(t *testing.T) {
	err := fmt.Errorf("dial: %w", ErrNoPeerAvailable)
	if got := KindOf(err); got != KindNoPeerAvailable {
		t.Errorf("KindOf() = %v, want NoPeerAvailable", got)
	}
	if got := KindOf(errors.New("boom")); got != KindUnknown {
		t.Errorf("KindOf() = %v, want Unknown", got)
	}
}

func TestWrapError_CarriesCodeAndBackoff(t *testing.T) {
	cause := &Error{Kind: KindTransportFailure, Detail: "503", Code: CodeHTTPStatus + 503, Backoff: true}
	wrapped := WrapError(KindTransportFailure, fmt.Errorf("send: %w", cause))

	if wrapped.Code != 1503 {
		t.Errorf("Code = %d, want 1503", wrapped.Code)
	}
	if !ShouldBackoff(wrapped) {
		t.Error("ShouldBackoff() = false, want true")
	}
	if !errors.Is(wrapped, ErrTransportFailure) {
		t.Error("wrapped error does not match ErrTransportFailure")
	}
}

func TestWrapError_PlainCause(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := WrapError(KindTransportFailure, cause)

	if wrapped.Code != CodeUnknown {
		t.Errorf("Code = %d, want %d", wrapped.Code, CodeUnknown)
	}
	if ShouldBackoff(wrapped) {
		t.Error("ShouldBackoff() = true for plain cause")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if got, want := wrapped.Error(), "TransportFailure: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_Message(t *testing.T) {
	err := NewError(KindCapacityExceeded, "queue full (%d packets)", 10)
	if got, want := err.Error(), "CapacityExceeded: queue full (10 packets)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
