package ports

import (
	"time"

	"github.com/bft-labs/queueship/internal/domain"
)

// Metrics records queue and delivery instrumentation.
type Metrics interface {
	SetQueueStatus(status domain.QueueStatus)
	PacketsEnqueued(n int)
	PacketsRejected(n int)
	PacketsEvicted(reason string, n int)
	PacketsSent(n int, bytes int64)
	BatchFailed(kind domain.ErrorKind)
	ObserveSend(d time.Duration)
}

// Eviction reasons reported to Metrics.
const (
	EvictReasonExpired  = "expired"
	EvictReasonCapacity = "capacity"
)

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

func (NoopMetrics) SetQueueStatus(domain.QueueStatus) {}
func (NoopMetrics) PacketsEnqueued(int)               {}
func (NoopMetrics) PacketsRejected(int)               {}
func (NoopMetrics) PacketsEvicted(string, int)        {}
func (NoopMetrics) PacketsSent(int, int64)            {}
func (NoopMetrics) BatchFailed(domain.ErrorKind)      {}
func (NoopMetrics) ObserveSend(time.Duration)         {}
