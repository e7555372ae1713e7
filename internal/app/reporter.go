package app

import (
	"context"
	"time"

	"github.com/bft-labs/queueship/internal/domain"
	"github.com/bft-labs/queueship/internal/ports"
	"github.com/bft-labs/queueship/pkg/log"
)

// Operation names the queue operation an outcome belongs to.
type Operation string

const (
	OpEnqueue      Operation = "enqueue"
	OpCleanup      Operation = "cleanup"
	OpProcessBatch Operation = "process_batch"
	OpCycle        Operation = "cycle"
)

// CycleEventEmitter is called once per scheduled cycle with its outcome.
type CycleEventEmitter interface {
	OnCycleComplete(outcome domain.Outcome)
}

// Reporter turns operation results into outcomes and fans them out to the
// log, metrics, the status repository and, for scheduled cycles, the cycle
// emitter.
type Reporter struct {
	logger  log.Logger
	metrics ports.Metrics
	repo    ports.StatusRepository
	emitter CycleEventEmitter
	clock   ports.Clock
}

// NewReporter creates a reporter. repo and emitter may be nil.
func NewReporter(logger log.Logger, metrics ports.Metrics, repo ports.StatusRepository, emitter CycleEventEmitter, clock ports.Clock) *Reporter {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Reporter{
		logger:  logger,
		metrics: metrics,
		repo:    repo,
		emitter: emitter,
		clock:   clock,
	}
}

// Report publishes the outcome of op. current is the store status after the
// operation, reported even when the outcome is a failure. lastSend is the time
// of the last delivered batch, zero if none.
func (r *Reporter) Report(ctx context.Context, op Operation, outcome domain.Outcome, current domain.QueueStatus, lastSend time.Time) domain.Outcome {
	r.metrics.SetQueueStatus(current)

	if outcome.Err != nil {
		r.logger.Warn("queue operation failed",
			log.String("op", string(op)),
			log.String("kind", domain.KindOf(outcome.Err).String()),
			log.Stringer("status", current),
			log.Err(outcome.Err),
		)
	} else {
		r.logger.Debug("queue operation complete",
			log.String("op", string(op)),
			log.Int("queued", current.QueuedPacketCount),
			log.Int64("queued_bytes", current.QueuedPacketSizeBytes),
			log.Bool("full", current.IsFull),
		)
	}

	if r.repo != nil {
		snapshot := domain.StatusSnapshot{
			Status:     current,
			Operation:  string(op),
			LastSendAt: lastSend,
			UpdatedAt:  r.clock.Now(),
		}
		if outcome.Err != nil {
			snapshot.LastError = outcome.Err.Error()
		}
		if err := r.repo.Save(ctx, snapshot); err != nil {
			r.logger.Error("failed to save status", log.Err(err))
		}
	}

	if op == OpCycle && r.emitter != nil {
		r.emitter.OnCycleComplete(outcome)
	}
	return outcome
}

// Deliver returns a completed single-use channel holding outcome.
func Deliver(outcome domain.Outcome) <-chan domain.Outcome {
	ch := make(chan domain.Outcome, 1)
	ch <- outcome
	close(ch)
	return ch
}
