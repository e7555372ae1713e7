package queueship

import (
	"github.com/bft-labs/queueship/internal/domain"
	"github.com/bft-labs/queueship/internal/ports"
)

// Re-exported domain types.
type (
	// DataPacket is a single unit of data destined for the remote endpoint.
	DataPacket = domain.DataPacket

	// QueueStatus is a snapshot of the queue's occupancy.
	QueueStatus = domain.QueueStatus

	// Outcome is the result of one queue operation. Exactly one of Status
	// or Err is set.
	Outcome = domain.Outcome

	// Error is the failure carried by an Outcome.
	Error = domain.Error

	// ErrorKind classifies a failed Outcome.
	ErrorKind = domain.ErrorKind

	// Batch is the set of packets handed to a Transport in one attempt.
	Batch = domain.Batch

	// StatusSnapshot is the persisted form of the last reported status.
	StatusSnapshot = domain.StatusSnapshot
)

// Re-exported ports for dependency injection.
type (
	// Transport delivers batches to the remote service.
	Transport = ports.Transport

	// TransportFunc adapts a function to Transport.
	TransportFunc = ports.TransportFunc

	// SendMetadata provides context for one send attempt.
	SendMetadata = ports.SendMetadata

	// HTTPClient is the interface for making HTTP requests.
	// *http.Client satisfies this interface.
	HTTPClient = ports.HTTPClient

	// Metrics records queue and delivery instrumentation.
	Metrics = ports.Metrics

	// SendGate is consulted before each scheduled send.
	SendGate = ports.SendGate

	// StatusRepository persists the last reported status.
	StatusRepository = ports.StatusRepository

	// Clock is the time source for admission stamps and expiry.
	Clock = ports.Clock
)

// Error kinds.
const (
	KindUnknown              = domain.KindUnknown
	KindCapacityExceeded     = domain.KindCapacityExceeded
	KindConfigurationInvalid = domain.KindConfigurationInvalid
	KindTransportFailure     = domain.KindTransportFailure
	KindNoPeerAvailable      = domain.KindNoPeerAvailable
)

// Errors returned by Queueship, for use with errors.Is.
var (
	ErrAlreadyRunning       = domain.ErrAlreadyRunning
	ErrNotRunning           = domain.ErrNotRunning
	ErrShutdownTimeout      = domain.ErrShutdownTimeout
	ErrCapacityExceeded     = domain.ErrCapacityExceeded
	ErrConfigurationInvalid = domain.ErrConfigurationInvalid
	ErrTransportFailure     = domain.ErrTransportFailure
	ErrNoPeerAvailable      = domain.ErrNoPeerAvailable
)

// NewDataPacket creates a packet from attributes and payload. The attribute
// map is copied and a "uuid" attribute is added if missing.
func NewDataPacket(attributes map[string]string, payload []byte) DataPacket {
	return domain.NewDataPacket(attributes, payload)
}

// NewStringPacket creates a packet whose payload is s.
func NewStringPacket(s string) DataPacket {
	return domain.NewStringPacket(s)
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	return domain.KindOf(err)
}
