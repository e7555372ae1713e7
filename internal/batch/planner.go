// Package batch selects the packets that go into one transmission attempt.
package batch

import "github.com/bft-labs/queueship/internal/domain"

// Planner sizes batches from the preferred count and byte bounds.
type Planner struct {
	preferredCount int
	preferredBytes int64
}

// NewPlanner creates a planner. Non-positive bounds are treated as unbounded.
func NewPlanner(preferredCount int, preferredBytes int64) Planner {
	return Planner{
		preferredCount: preferredCount,
		preferredBytes: preferredBytes,
	}
}

// Plan takes a prefix of candidates, which must already be in delivery order.
// It stops at the first candidate that would push the batch past either bound.
// A first candidate that alone exceeds the byte bound is returned by itself so
// that an oversized packet cannot block the queue forever.
func (p Planner) Plan(candidates []domain.DataPacket) *domain.Batch {
	b := domain.NewBatch()
	for _, c := range candidates {
		if p.preferredCount > 0 && b.Size() >= p.preferredCount {
			break
		}
		if p.preferredBytes > 0 && b.TotalBytes+c.Size() > p.preferredBytes {
			if b.Empty() {
				// Oversized packet: send alone
				b.Add(c)
			}
			break
		}
		b.Add(c)
	}
	return b
}
