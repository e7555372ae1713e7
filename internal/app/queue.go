package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/queueship/internal/domain"
	"github.com/bft-labs/queueship/internal/ports"
	"github.com/bft-labs/queueship/internal/store"
	"github.com/bft-labs/queueship/pkg/log"
)

// QueueConfig contains the per-run settings of the queue service.
type QueueConfig struct {
	PreferredBatchCount int
	PreferredBatchBytes int64

	// HardInterval forces a scheduled send through a closed gate once this
	// much time has passed since the last delivery. Zero disables it.
	HardInterval time.Duration

	// Metadata for send operations
	PortName string
	PortID   string
	Hostname string
	OSArch   string
}

// SendEventEmitter is called on send success or failure.
type SendEventEmitter interface {
	OnSendSuccess(packetCount int, bytesSent int64, duration time.Duration)
	OnSendError(err error, packetCount int, retryable bool)
}

// QueueDeps are the collaborators of a Queue. Gate, Emitter, Metrics and
// Clock are optional.
type QueueDeps struct {
	Store     *store.Store
	Transport ports.Transport
	Reporter  *Reporter
	Gate      ports.SendGate
	Emitter   SendEventEmitter
	Metrics   ports.Metrics
	Clock     ports.Clock
	Logger    log.Logger
}

// Queue implements the enqueue, cleanup and batch processing operations on
// top of the packet store. At most one batch cycle runs at a time, whether
// triggered by the scheduler or by ProcessBatch.
type Queue struct {
	store     *store.Store
	transport ports.Transport
	reporter  *Reporter
	gate      ports.SendGate
	emitter   SendEventEmitter
	metrics   ports.Metrics
	clock     ports.Clock
	logger    log.Logger

	cycleMu sync.Mutex
	config  QueueConfig // guarded by cycleMu

	mu        sync.Mutex
	lastSend  time.Time
	gateSince time.Time
}

// NewQueue creates a queue service.
func NewQueue(cfg QueueConfig, deps QueueDeps) *Queue {
	if deps.Metrics == nil {
		deps.Metrics = ports.NoopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = log.NewNoopLogger()
	}
	if deps.Reporter == nil {
		deps.Reporter = NewReporter(deps.Logger, deps.Metrics, nil, nil, deps.Clock)
	}
	return &Queue{
		store:     deps.Store,
		transport: deps.Transport,
		reporter:  deps.Reporter,
		gate:      deps.Gate,
		emitter:   deps.Emitter,
		metrics:   deps.Metrics,
		clock:     deps.Clock,
		logger:    deps.Logger,
		config:    cfg,
		gateSince: deps.Clock.Now(),
	}
}

// SetConfig replaces the queue settings. It waits for an in-flight cycle.
func (q *Queue) SetConfig(cfg QueueConfig) {
	q.cycleMu.Lock()
	defer q.cycleMu.Unlock()
	q.config = cfg
}

// Reconfigure waits for an in-flight cycle to settle its batch, then runs
// apply while no cycle can start. When apply succeeds, cfg and t become the
// settings of the next cycle.
func (q *Queue) Reconfigure(cfg QueueConfig, t ports.Transport, apply func() error) error {
	q.cycleMu.Lock()
	defer q.cycleMu.Unlock()

	if err := apply(); err != nil {
		return err
	}
	q.config = cfg
	q.transport = t
	return nil
}

// Enqueue admits packets in order. The outcome carries the resulting status
// when every packet was admitted, and a CapacityExceeded error otherwise.
func (q *Queue) Enqueue(ctx context.Context, packets []domain.DataPacket) domain.Outcome {
	res := q.store.AdmitAll(packets, q.clock.Now())

	q.metrics.PacketsEnqueued(res.Accepted)
	q.recordEvictions(res.Expired, res.Displaced)

	status := q.store.Snapshot()
	if res.Rejected > 0 || res.OwnDisplaced > 0 {
		q.metrics.PacketsRejected(res.Rejected)
		return q.reporter.Report(ctx, OpEnqueue, domain.FailureOutcome(rejectionError(res, len(packets))), status, q.LastSend())
	}
	return q.reporter.Report(ctx, OpEnqueue, domain.StatusOutcome(status), status, q.LastSend())
}

// Cleanup evicts expired packets.
func (q *Queue) Cleanup(ctx context.Context) domain.Outcome {
	if n := q.store.RemoveExpired(q.clock.Now()); n > 0 {
		q.recordEvictions(n, 0)
	}
	status := q.store.Snapshot()
	return q.reporter.Report(ctx, OpCleanup, domain.StatusOutcome(status), status, q.LastSend())
}

// ProcessBatch runs one cycle immediately: eviction, planning and sending.
// The send gate is not consulted.
func (q *Queue) ProcessBatch(ctx context.Context) domain.Outcome {
	return q.cycle(ctx, OpProcessBatch, false)
}

// RunCycle runs one scheduled cycle. A closed send gate limits the cycle to
// eviction unless the hard interval has elapsed.
func (q *Queue) RunCycle(ctx context.Context) domain.Outcome {
	return q.cycle(ctx, OpCycle, true)
}

// Status returns the current store status.
func (q *Queue) Status() domain.QueueStatus {
	return q.store.Snapshot()
}

// LastSend returns the time of the last delivered batch, zero if none.
func (q *Queue) LastSend() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastSend
}

func (q *Queue) cycle(ctx context.Context, op Operation, gated bool) domain.Outcome {
	q.cycleMu.Lock()
	defer q.cycleMu.Unlock()

	now := q.clock.Now()
	if n := q.store.RemoveExpired(now); n > 0 {
		q.recordEvictions(n, 0)
	}

	if gated && !q.sendAllowed(now) {
		status := q.store.Snapshot()
		return q.reporter.Report(ctx, op, domain.StatusOutcome(status), status, q.LastSend())
	}

	b := q.store.TakeUpTo(q.config.PreferredBatchCount, q.config.PreferredBatchBytes)
	if b.Empty() {
		status := q.store.Snapshot()
		return q.reporter.Report(ctx, op, domain.StatusOutcome(status), status, q.LastSend())
	}

	if err := q.send(ctx, b); err != nil {
		return q.reporter.Report(ctx, op, domain.FailureOutcome(err), q.store.Snapshot(), q.LastSend())
	}
	status := q.store.Snapshot()
	return q.reporter.Report(ctx, op, domain.StatusOutcome(status), status, q.LastSend())
}

// send transmits a reserved batch and settles the reservation: delivered
// packets are removed, failed ones released for the next cycle.
func (q *Queue) send(ctx context.Context, b *domain.Batch) error {
	metadata := ports.SendMetadata{
		PortName:      q.config.PortName,
		PortID:        q.config.PortID,
		TransactionID: uuid.NewString(),
		Hostname:      q.config.Hostname,
		OSArch:        q.config.OSArch,
	}

	start := time.Now()
	err := q.transport.Send(ctx, b, metadata)
	duration := time.Since(start)
	q.metrics.ObserveSend(duration)

	if err != nil {
		q.store.Release(b.IDs())
		failure := classifySendError(err)
		q.metrics.BatchFailed(failure.Kind)

		q.logger.Error("send failed",
			log.Err(err),
			log.String("transaction", metadata.TransactionID),
			log.Int("packets", b.Size()),
			log.Int64("bytes", b.TotalBytes),
		)
		if q.emitter != nil {
			q.emitter.OnSendError(failure, b.Size(), true)
		}
		return failure
	}

	removed := q.store.Remove(b.IDs())
	q.metrics.PacketsSent(b.Size(), b.TotalBytes)

	q.mu.Lock()
	q.lastSend = q.clock.Now()
	q.gateSince = q.lastSend
	q.mu.Unlock()

	q.logger.Info("sent batch",
		log.String("transaction", metadata.TransactionID),
		log.Int("packets", b.Size()),
		log.Int64("bytes", b.TotalBytes),
		log.Duration("duration", duration),
	)
	if removed < b.Size() {
		// Packets can expire while their batch is in flight.
		q.logger.Debug("batch packets expired during send", log.Int("expired", b.Size()-removed))
	}

	if q.emitter != nil {
		q.emitter.OnSendSuccess(b.Size(), b.TotalBytes, duration)
	}
	return nil
}

// sendAllowed consults the gate, overriding it after HardInterval.
func (q *Queue) sendAllowed(now time.Time) bool {
	if q.gate == nil || q.gate.OK() {
		return true
	}

	q.mu.Lock()
	since := now.Sub(q.gateSince)
	q.mu.Unlock()

	if q.config.HardInterval > 0 && since >= q.config.HardInterval {
		q.logger.Info("hard interval reached, sending despite gate",
			log.Duration("since_last_send", since),
		)
		return true
	}

	q.logger.Debug("send gated")
	return false
}

func (q *Queue) recordEvictions(expired, displaced int) {
	if expired > 0 {
		q.metrics.PacketsEvicted(ports.EvictReasonExpired, expired)
		q.logger.Debug("evicted expired packets", log.Int("count", expired))
	}
	if displaced > 0 {
		q.metrics.PacketsEvicted(ports.EvictReasonCapacity, displaced)
		q.logger.Warn("evicted oldest packets to make room", log.Int("count", displaced))
	}
}

// classifySendError maps a transport error onto a failure kind.
func classifySendError(err error) *domain.Error {
	kind := domain.KindTransportFailure
	if errors.Is(err, domain.ErrNoPeerAvailable) {
		kind = domain.KindNoPeerAvailable
	}
	if de, ok := err.(*domain.Error); ok && de.Kind == kind {
		return de
	}
	return domain.WrapError(kind, err)
}

func rejectionError(res store.AdmitResult, total int) *domain.Error {
	var e *domain.Error
	if res.Rejected > 0 {
		e = domain.NewError(domain.KindCapacityExceeded, "%d of %d packets rejected", res.Rejected, total)
		var cause *domain.Error
		if errors.As(res.Reason, &cause) && cause.Detail != "" {
			e.Detail += ": " + cause.Detail
		}
	} else {
		e = domain.NewError(domain.KindCapacityExceeded,
			"%d of %d packets displaced by later packets of the same call", res.OwnDisplaced, total)
	}
	e.Rejected = res.Rejected
	e.Evicted = res.Expired + res.Displaced
	return e
}
