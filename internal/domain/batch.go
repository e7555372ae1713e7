package domain

// Batch is an ordered set of packets selected for one transmission attempt.
// It maintains the invariant that TotalBytes is the sum of the packet sizes.
type Batch struct {
	// Packets in delivery order
	Packets []DataPacket

	// TotalBytes is the sum of all packet sizes
	TotalBytes int64
}

// NewBatch creates a new empty batch.
func NewBatch() *Batch {
	return &Batch{
		Packets: make([]DataPacket, 0),
	}
}

// Add appends a packet to the batch.
func (b *Batch) Add(p DataPacket) {
	b.Packets = append(b.Packets, p)
	b.TotalBytes += p.Size()
}

// Size returns the number of packets in the batch.
func (b *Batch) Size() int {
	return len(b.Packets)
}

// Empty returns true if the batch has no packets.
func (b *Batch) Empty() bool {
	return len(b.Packets) == 0
}

// IDs returns the store IDs of the packets in the batch.
func (b *Batch) IDs() []uint64 {
	ids := make([]uint64, len(b.Packets))
	for i, p := range b.Packets {
		ids[i] = p.ID
	}
	return ids
}

// Reset clears the batch for reuse.
func (b *Batch) Reset() {
	b.Packets = b.Packets[:0]
	b.TotalBytes = 0
}
