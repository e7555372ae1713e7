package domain

import (
	"fmt"
	"time"
)

// QueueStatus is a snapshot of the queue's occupancy.
type QueueStatus struct {
	QueuedPacketCount     int   `json:"queued_packet_count"`
	QueuedPacketSizeBytes int64 `json:"queued_packet_size_bytes"`
	IsFull                bool  `json:"is_full"`
}

// String formats the status for logs.
func (s QueueStatus) String() string {
	return fmt.Sprintf("count=%d size=%dB full=%t", s.QueuedPacketCount, s.QueuedPacketSizeBytes, s.IsFull)
}

// Outcome is the result of one queue operation.
// Exactly one of Status or Err is set.
type Outcome struct {
	Status *QueueStatus
	Err    error
}

// StatusOutcome returns a successful outcome carrying s.
func StatusOutcome(s QueueStatus) Outcome {
	return Outcome{Status: &s}
}

// FailureOutcome returns a failed outcome carrying err.
func FailureOutcome(err error) Outcome {
	return Outcome{Err: err}
}

// OK returns true if the outcome carries a status.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Status != nil
}

// StatusSnapshot is the last reported state of the queue, as persisted
// for external observers.
type StatusSnapshot struct {
	Status     QueueStatus `json:"status"`
	Operation  string      `json:"operation"`
	LastError  string      `json:"last_error,omitempty"`
	LastSendAt time.Time   `json:"last_send_at,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
