// Package domain contains the core domain entities and value objects for queueship.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (HTTP, file system, logging) and
// contains only the data model of the delivery queue.
//
// # Entities
//
//   - [DataPacket]: A unit of attributes plus opaque payload bytes
//   - [Batch]: A bounded, ordered subset of queued packets for one send attempt
//   - [QueueStatus]: Count, size and fullness of the queue at one instant
//   - [Outcome]: The single result of one queue operation (status or failure)
//
// # Errors
//
// Every failure reported through an [Outcome] is an [*Error] carrying an
// [ErrorKind]. Callers match kinds with errors.Is against the sentinel errors
// declared in errors.go.
package domain
