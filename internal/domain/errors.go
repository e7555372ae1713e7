package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the queueship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running scheduler.
	ErrAlreadyRunning = errors.New("queueship: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped scheduler.
	ErrNotRunning = errors.New("queueship: not running")

	// ErrShutdownTimeout is returned when the in-flight cycle does not finish in time.
	ErrShutdownTimeout = errors.New("queueship: shutdown timeout")

	// ErrCapacityExceeded is matched by errors of kind KindCapacityExceeded.
	ErrCapacityExceeded = errors.New("queueship: capacity exceeded")

	// ErrConfigurationInvalid is matched by errors of kind KindConfigurationInvalid.
	ErrConfigurationInvalid = errors.New("queueship: invalid configuration")

	// ErrTransportFailure is matched by errors of kind KindTransportFailure.
	ErrTransportFailure = errors.New("queueship: transport failure")

	// ErrNoPeerAvailable is matched by errors of kind KindNoPeerAvailable.
	ErrNoPeerAvailable = errors.New("queueship: no peer available")
)

// Error codes. HTTP status failures use CodeHTTPStatus plus the status code,
// e.g. 404 becomes 1404.
const (
	CodeUnknown     = -1
	CodeHTTPStatus  = 1000
	CodeClient      = 2000
	CodeTransaction = 3000
)

// ErrorKind classifies a failed outcome.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindCapacityExceeded
	KindConfigurationInvalid
	KindTransportFailure
	KindNoPeerAvailable
)

// String returns a human-readable representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindCapacityExceeded:
		return "CapacityExceeded"
	case KindConfigurationInvalid:
		return "ConfigurationInvalid"
	case KindTransportFailure:
		return "TransportFailure"
	case KindNoPeerAvailable:
		return "NoPeerAvailable"
	default:
		return "Unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindCapacityExceeded:
		return ErrCapacityExceeded
	case KindConfigurationInvalid:
		return ErrConfigurationInvalid
	case KindTransportFailure:
		return ErrTransportFailure
	case KindNoPeerAvailable:
		return ErrNoPeerAvailable
	default:
		return nil
	}
}

// Error is the failure carried by an Outcome.
type Error struct {
	Kind   ErrorKind
	Detail string

	// Code is one of the Code* constants, or CodeHTTPStatus+status.
	Code int

	// Backoff is set when the remote asked the client to slow down.
	Backoff bool

	// Rejected and Evicted are set for enqueue failures.
	Rejected int
	Evicted  int

	// Err is the underlying cause, if any.
	Err error
}

// NewError creates an error of the given kind.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Code: CodeUnknown}
}

// WrapError wraps cause into an error of the given kind.
func WrapError(kind ErrorKind, cause error) *Error {
	e := &Error{Kind: kind, Code: CodeUnknown, Err: cause}
	var de *Error
	if errors.As(cause, &de) {
		e.Code = de.Code
		e.Backoff = de.Backoff
	}
	return e
}

// Error implements error.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, k := range []ErrorKind{KindCapacityExceeded, KindConfigurationInvalid, KindTransportFailure, KindNoPeerAvailable} {
		if errors.Is(err, k.sentinel()) {
			return k
		}
	}
	return KindUnknown
}

// ShouldBackoff reports whether err asks for retry backoff.
func ShouldBackoff(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Backoff
}
