// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Transport]: Delivers a batch of packets to the remote ingestion endpoint
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//   - [Metrics]: Queue and delivery instrumentation
//   - [SendGate]: Backpressure check consulted before scheduled sends
//   - [StatusRepository]: Persists the last reported queue status
//   - [Clock]: Time source, replaced by a fake in tests
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// implementations (HTTP, Prometheus, file system).
package ports
