package prioritizer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bft-labs/queueship/internal/domain"
)

// Prioritizer decides packet expiry and delivery order.
type Prioritizer interface {
	// IsExpired reports whether p must be evicted at now.
	IsExpired(p domain.DataPacket, now time.Time) bool

	// Compare orders a before b when negative and b before a when positive.
	// Zero keeps admission (FIFO) order.
	Compare(a, b domain.DataPacket) int
}

// FixedTTL expires packets once they have been queued for TTL.
// Delivery order is FIFO.
type FixedTTL struct {
	TTL time.Duration
}

// NewFixedTTL returns a FixedTTL prioritizer.
func NewFixedTTL(ttl time.Duration) FixedTTL {
	return FixedTTL{TTL: ttl}
}

// IsExpired reports whether now - EnqueuedAt >= TTL.
func (f FixedTTL) IsExpired(p domain.DataPacket, now time.Time) bool {
	return expired(p, now, f.TTL)
}

// Compare keeps FIFO order.
func (FixedTTL) Compare(a, b domain.DataPacket) int { return 0 }

// String returns the policy description.
func (f FixedTTL) String() string {
	return fmt.Sprintf("fixed-ttl(%s)", f.TTL)
}

// ByAttribute delivers packets with a higher integer value of Key first.
// Missing or non-integer values count as 0. Expiry is a fixed TTL.
type ByAttribute struct {
	Key string
	TTL time.Duration
}

// IsExpired reports whether now - EnqueuedAt >= TTL.
func (b ByAttribute) IsExpired(p domain.DataPacket, now time.Time) bool {
	return expired(p, now, b.TTL)
}

// Compare orders higher attribute values first.
func (b ByAttribute) Compare(x, y domain.DataPacket) int {
	px, py := b.priority(x), b.priority(y)
	switch {
	case px > py:
		return -1
	case px < py:
		return 1
	default:
		return 0
	}
}

func (b ByAttribute) priority(p domain.DataPacket) int64 {
	v, err := strconv.ParseInt(p.Attribute(b.Key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// String returns the policy description.
func (b ByAttribute) String() string {
	return fmt.Sprintf("attribute(%s, ttl=%s)", b.Key, b.TTL)
}

// Custom delegates to caller-supplied functions.
// A nil Expired never expires packets; a nil Less keeps FIFO order.
type Custom struct {
	Expired func(p domain.DataPacket, now time.Time) bool
	Less    func(a, b domain.DataPacket) bool
}

// IsExpired calls Expired.
func (c Custom) IsExpired(p domain.DataPacket, now time.Time) bool {
	if c.Expired == nil {
		return false
	}
	return c.Expired(p, now)
}

// Compare derives an ordering from Less.
func (c Custom) Compare(a, b domain.DataPacket) int {
	if c.Less == nil {
		return 0
	}
	if c.Less(a, b) {
		return -1
	}
	if c.Less(b, a) {
		return 1
	}
	return 0
}

func expired(p domain.DataPacket, now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return p.Age(now) >= ttl
}
