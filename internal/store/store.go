// Package store holds the bounded, ordered collection of packets waiting for
// delivery.
//
// All operations take a single mutex; none of them block on I/O. Packets
// selected for a send attempt are reserved rather than removed: they keep
// counting against the limits until the attempt's outcome is known, and are
// then either removed (delivered) or released (failed, retried later).
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bft-labs/queueship/internal/batch"
	"github.com/bft-labs/queueship/internal/domain"
	"github.com/bft-labs/queueship/pkg/prioritizer"
)

// OverflowPolicy decides what happens when a packet does not fit even after
// expired packets were evicted.
type OverflowPolicy int

const (
	// OverflowEvictOldest evicts the oldest unreserved packets to make room.
	OverflowEvictOldest OverflowPolicy = iota

	// OverflowReject rejects the new packet.
	OverflowReject
)

// String returns the policy name used in configuration.
func (p OverflowPolicy) String() string {
	switch p {
	case OverflowEvictOldest:
		return "evict-oldest"
	case OverflowReject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseOverflowPolicy parses a policy name.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "", "evict-oldest":
		return OverflowEvictOldest, nil
	case "reject":
		return OverflowReject, nil
	default:
		return 0, fmt.Errorf("unknown overflow policy %q", s)
	}
}

// Limits bounds the store's contents.
type Limits struct {
	MaxCount int
	MaxBytes int64
}

// AdmitResult describes the admission of one or more packets.
type AdmitResult struct {
	Accepted int
	Rejected int

	// Expired is the number of expired packets evicted during admission.
	Expired int

	// Displaced is the number of unexpired packets evicted for capacity.
	Displaced int

	// OwnDisplaced counts the Displaced packets that were admitted earlier
	// in the same call.
	OwnDisplaced int

	// Reason is the last rejection cause, nil if nothing was rejected.
	Reason error
}

type entry struct {
	packet   domain.DataPacket
	reserved bool
}

// Store is an ordered, bounded packet collection.
type Store struct {
	mu          sync.Mutex
	entries     []*entry // admission order
	count       int
	bytes       int64
	limits      Limits
	overflow    OverflowPolicy
	prioritizer prioritizer.Prioritizer
	nextID      uint64
}

// New creates an empty store.
func New(limits Limits, p prioritizer.Prioritizer, overflow OverflowPolicy) *Store {
	return &Store{
		entries:     make([]*entry, 0),
		limits:      limits,
		overflow:    overflow,
		prioritizer: p,
	}
}

// Admit adds one packet, evicting as the overflow policy allows.
func (s *Store) Admit(p domain.DataPacket, now time.Time) AdmitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res AdmitResult
	s.admitLocked(p, now, s.nextID, &res)
	return res
}

// AdmitAll admits packets one at a time in the given order. Each packet is
// subject to the admission rules independently.
func (s *Store) AdmitAll(packets []domain.DataPacket, now time.Time) AdmitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res AdmitResult
	floor := s.nextID
	for _, p := range packets {
		s.admitLocked(p, now, floor, &res)
	}
	return res
}

// admitLocked admits p. Packets with an ID above floor belong to the current
// call.
func (s *Store) admitLocked(p domain.DataPacket, now time.Time, floor uint64, res *AdmitResult) {
	size := p.Size()
	if size > s.limits.MaxBytes {
		res.Rejected++
		res.Reason = domain.NewError(domain.KindCapacityExceeded,
			"packet of %d bytes exceeds max queued size of %d bytes", size, s.limits.MaxBytes)
		return
	}

	if !s.fitsLocked(size) {
		res.Expired += s.removeExpiredLocked(now)
	}

	if !s.fitsLocked(size) {
		if s.overflow != OverflowEvictOldest || !s.canFreeLocked(size) {
			res.Rejected++
			res.Reason = domain.NewError(domain.KindCapacityExceeded,
				"queue full (%d packets, %d bytes)", s.count, s.bytes)
			return
		}
		evicted, own := s.evictOldestLocked(floor, func() bool { return s.fitsLocked(size) })
		res.Displaced += evicted
		res.OwnDisplaced += own
	}

	s.nextID++
	p.ID = s.nextID
	p.EnqueuedAt = now
	p.Attributes = cloneAttributes(p.Attributes)
	s.entries = append(s.entries, &entry{packet: p})
	s.count++
	s.bytes += size
	res.Accepted++
}

// fitsLocked reports whether a packet of size bytes fits without eviction.
func (s *Store) fitsLocked(size int64) bool {
	return s.count+1 <= s.limits.MaxCount && s.bytes+size <= s.limits.MaxBytes
}

// canFreeLocked reports whether evicting every unreserved packet would make
// room for a packet of size bytes.
func (s *Store) canFreeLocked(size int64) bool {
	count, bytes := s.count, s.bytes
	for _, e := range s.entries {
		if e.reserved {
			continue
		}
		count--
		bytes -= e.packet.Size()
	}
	return count+1 <= s.limits.MaxCount && bytes+size <= s.limits.MaxBytes
}

// evictOldestLocked removes unreserved packets in admission order until done
// returns true. Returns the number removed and how many of them have an ID
// above floor.
func (s *Store) evictOldestLocked(floor uint64, done func() bool) (evicted, own int) {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if !e.reserved && !done() {
			s.count--
			s.bytes -= e.packet.Size()
			evicted++
			if e.packet.ID > floor {
				own++
			}
			continue
		}
		kept = append(kept, e)
	}
	s.truncate(kept)
	return evicted, own
}

// RemoveExpired evicts every packet the prioritizer reports as expired at now,
// including reserved ones. Returns the number removed.
func (s *Store) RemoveExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeExpiredLocked(now)
}

func (s *Store) removeExpiredLocked(now time.Time) int {
	removed := 0
	kept := s.entries[:0]
	for _, e := range s.entries {
		if s.prioritizer.IsExpired(e.packet, now) {
			s.count--
			s.bytes -= e.packet.Size()
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.truncate(kept)
	return removed
}

// TakeUpTo reserves and returns the next batch in delivery order. The packets
// stay in the store until Remove or Release is called with their IDs.
func (s *Store) TakeUpTo(maxCount int, maxBytes int64) *domain.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.reserved {
			candidates = append(candidates, e)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return s.prioritizer.Compare(candidates[i].packet, candidates[j].packet) < 0
	})

	ordered := make([]domain.DataPacket, len(candidates))
	for i, e := range candidates {
		ordered[i] = e.packet
	}
	b := batch.NewPlanner(maxCount, maxBytes).Plan(ordered)

	for i := 0; i < b.Size(); i++ {
		candidates[i].reserved = true
	}
	return b
}

// Remove deletes the packets with the given IDs. IDs no longer present
// (evicted meanwhile) are ignored. Returns the number removed.
func (s *Store) Remove(ids []uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := idSet(ids)
	removed := 0
	kept := s.entries[:0]
	for _, e := range s.entries {
		if _, ok := set[e.packet.ID]; ok {
			s.count--
			s.bytes -= e.packet.Size()
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.truncate(kept)
	return removed
}

// Release clears the reservation of the packets with the given IDs so they
// are eligible for the next batch. Returns the number released.
func (s *Store) Release(ids []uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := idSet(ids)
	released := 0
	for _, e := range s.entries {
		if _, ok := set[e.packet.ID]; ok && e.reserved {
			e.reserved = false
			released++
		}
	}
	return released
}

// SetLimits replaces the limits and evicts the oldest unreserved packets until
// they hold. Returns the number evicted.
func (s *Store) SetLimits(limits Limits) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.limits = limits
	evicted, _ := s.evictOldestLocked(s.nextID, func() bool {
		return s.count <= s.limits.MaxCount && s.bytes <= s.limits.MaxBytes
	})
	return evicted
}

// SetPrioritizer replaces the expiry and ordering policy.
func (s *Store) SetPrioritizer(p prioritizer.Prioritizer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prioritizer = p
}

// SetOverflowPolicy replaces the overflow policy.
func (s *Store) SetOverflowPolicy(p OverflowPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overflow = p
}

// Snapshot returns the current status.
func (s *Store) Snapshot() domain.QueueStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.QueueStatus{
		QueuedPacketCount:     s.count,
		QueuedPacketSizeBytes: s.bytes,
		IsFull:                s.count >= s.limits.MaxCount || s.bytes >= s.limits.MaxBytes,
	}
}

// Reserved returns the number of packets held by an in-flight batch.
func (s *Store) Reserved() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.reserved {
			n++
		}
	}
	return n
}

// Packets returns a copy of the stored packets in admission order.
func (s *Store) Packets() []domain.DataPacket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DataPacket, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.packet
	}
	return out
}

// Verify recomputes the bookkeeping from the contents and checks the
// capacity invariant.
func (s *Store) Verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bytes int64
	for _, e := range s.entries {
		bytes += e.packet.Size()
	}
	if s.count != len(s.entries) {
		return fmt.Errorf("count %d != %d stored packets", s.count, len(s.entries))
	}
	if s.bytes != bytes {
		return fmt.Errorf("size %d != %d stored bytes", s.bytes, bytes)
	}
	if s.count > s.limits.MaxCount {
		return fmt.Errorf("count %d exceeds limit %d", s.count, s.limits.MaxCount)
	}
	if s.bytes > s.limits.MaxBytes {
		return fmt.Errorf("size %d exceeds limit %d", s.bytes, s.limits.MaxBytes)
	}
	return nil
}

// truncate installs kept as the entry slice, clearing the tail so removed
// entries can be collected.
func (s *Store) truncate(kept []*entry) {
	for i := len(kept); i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = kept
}

func idSet(ids []uint64) map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func cloneAttributes(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
