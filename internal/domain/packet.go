package domain

import (
	"time"

	"github.com/google/uuid"
)

// AttributeUUID is the attribute key holding the packet's unique identifier.
const AttributeUUID = "uuid"

// DataPacket is a single unit of data destined for the remote endpoint.
// Once admitted, a packet is owned by the store until it is sent, evicted or expired.
type DataPacket struct {
	// ID is assigned by the store at admission. Zero means not yet admitted.
	ID uint64

	// Attributes is caller-supplied metadata.
	Attributes map[string]string

	// Payload is the opaque content of the packet.
	Payload []byte

	// EnqueuedAt is stamped by the store at admission.
	EnqueuedAt time.Time
}

// NewDataPacket creates a packet from attributes and payload.
// The attribute map is copied. A uuid attribute is added if missing.
func NewDataPacket(attributes map[string]string, payload []byte) DataPacket {
	attrs := make(map[string]string, len(attributes)+1)
	for k, v := range attributes {
		attrs[k] = v
	}
	if attrs[AttributeUUID] == "" {
		attrs[AttributeUUID] = uuid.NewString()
	}
	return DataPacket{
		Attributes: attrs,
		Payload:    payload,
	}
}

// NewStringPacket creates a packet whose payload is the UTF-8 bytes of s.
func NewStringPacket(s string) DataPacket {
	return NewDataPacket(nil, []byte(s))
}

// Size returns the number of bytes the packet counts against queue limits.
// Only the payload is counted.
func (p DataPacket) Size() int64 {
	return int64(len(p.Payload))
}

// Attribute returns the value of an attribute, or "" if unset.
func (p DataPacket) Attribute(key string) string {
	return p.Attributes[key]
}

// SetAttribute sets an attribute value. An empty value removes the key.
func (p *DataPacket) SetAttribute(key, value string) {
	if value == "" {
		delete(p.Attributes, key)
		return
	}
	if p.Attributes == nil {
		p.Attributes = make(map[string]string)
	}
	p.Attributes[key] = value
}

// Age returns how long the packet has been queued at now.
func (p DataPacket) Age(now time.Time) time.Duration {
	return now.Sub(p.EnqueuedAt)
}
