package ports

import (
	"context"

	"github.com/bft-labs/queueship/internal/domain"
)

// Transport delivers packet batches to the remote ingestion service.
// This is the queue's only blocking dependency; it is always called outside
// the store lock.
type Transport interface {
	// Send transmits a batch to the remote service.
	// Returns nil when the batch was delivered. Any error means the whole
	// batch was not delivered and will be retried. Errors wrapping
	// domain.ErrNoPeerAvailable mean no endpoint could be resolved.
	// Timeouts are the implementation's responsibility.
	Send(ctx context.Context, batch *domain.Batch, metadata SendMetadata) error
}

// SendMetadata provides context for one send attempt.
type SendMetadata struct {
	// PortName is the name of the remote input port
	PortName string

	// PortID is the identifier of the remote input port
	PortID string

	// TransactionID uniquely identifies the attempt
	TransactionID string

	// Hostname is the client's hostname
	Hostname string

	// OSArch is the operating system and architecture (e.g., "linux/amd64")
	OSArch string
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, batch *domain.Batch, metadata SendMetadata) error

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, batch *domain.Batch, metadata SendMetadata) error {
	return f(ctx, batch, metadata)
}
