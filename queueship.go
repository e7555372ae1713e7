// Package queueship provides a store-and-forward queue that delivers data
// packets to a remote ingestion cluster in batches.
//
// Example usage:
//
//	cfg := queueship.DefaultConfig()
//	cfg.RemoteClusters = []queueship.RemoteCluster{
//	    {URLs: []string{"https://ingest.example.com:8443"}},
//	}
//	cfg.PortName = "From iOS"
//	if err := queueship.Run(ctx, cfg, packets); err != nil {
//	    log.Fatal(err)
//	}
//
// For full control over the lifecycle use pkg/queueship directly.
package queueship

import (
	"context"
	"errors"
	"time"

	"github.com/bft-labs/queueship/pkg/queueship"
)

// Config holds the configuration for a queue.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = queueship.Config

// RemoteCluster describes one remote ingestion cluster.
type RemoteCluster = queueship.RemoteCluster

// DataPacket is a single unit of data destined for the remote endpoint.
type DataPacket = queueship.DataPacket

// Option configures optional behavior of the queue.
type Option = queueship.Option

// DefaultConfig returns a Config with sensible default values.
// At minimum, you must set RemoteClusters and PortName or PortID.
func DefaultConfig() Config {
	return queueship.DefaultConfig()
}

// Run starts a queue with the given configuration, enqueues every packet
// received from packets and delivers them periodically.
// It blocks until the context is canceled or packets is closed and the
// queue has drained.
func Run(ctx context.Context, cfg Config, packets <-chan DataPacket, opts ...Option) error {
	q, err := queueship.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer q.Close()

	if err := q.Start(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-packets:
			if !ok {
				return drain(ctx, q)
			}
			out := <-q.Enqueue(ctx, p)
			if out.Err != nil && !errors.Is(out.Err, queueship.ErrCapacityExceeded) {
				return out.Err
			}
		}
	}
}

// drain processes batches until the queue is empty or ctx is canceled.
// A failed batch is retried on the next scheduled cycle.
func drain(ctx context.Context, q *queueship.Queueship) error {
	for q.Status().QueuedPacketCount > 0 {
		select {
		case <-ctx.Done():
			return nil
		case out := <-q.ProcessBatch(ctx):
			if out.Err != nil {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(q.Config().ProcessingInterval):
				}
			}
		}
	}
	return nil
}
