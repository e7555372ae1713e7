// Package prioritizer provides the policies that decide which queued packets
// are expired and in which order packets are delivered.
//
// A [Prioritizer] is selected once per queue configuration. Three variants
// are provided:
//
//   - [FixedTTL]: packets expire a fixed duration after admission, delivery is FIFO
//   - [ByAttribute]: fixed TTL expiry, delivery ordered by an integer attribute
//   - [Custom]: caller-supplied expiry and ordering functions
//
// Any other type implementing [Prioritizer] can be used as well; the store
// does not depend on the concrete variant.
package prioritizer
