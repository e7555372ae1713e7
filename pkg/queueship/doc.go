// Package queueship provides an embeddable store-and-forward queue that
// delivers data packets to a remote ingestion cluster in batches.
//
// Packets are buffered in memory, bounded by a packet count and a total
// payload size, and expire after a time-to-live. A scheduler drains the
// queue periodically; each cycle evicts expired packets and sends at most
// one batch. Packets leave the queue only after the remote acknowledged
// them, so a failed send is retried on the next cycle (at-least-once).
//
// # Basic Usage
//
//	cfg := queueship.DefaultConfig()
//	cfg.RemoteClusters = []queueship.RemoteCluster{
//	    {URLs: []string{"https://ingest.example.com:8443"}},
//	}
//	cfg.PortName = "From iOS"
//
//	q, err := queueship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer q.Close()
//
//	if err := q.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	out := <-q.Enqueue(ctx, queueship.NewStringPacket("hello"))
//	if out.Err != nil {
//	    log.Printf("enqueue: %v", out.Err)
//	}
//
// # Outcomes
//
// Enqueue, Cleanup and ProcessBatch return a channel that delivers exactly
// one [Outcome]. An outcome carries either the resulting [QueueStatus] or an
// error; use errors.Is with the Err* values or [KindOf] to classify it.
//
// # Scheduling
//
// Start runs the first cycle immediately and re-arms the timer only after a
// cycle completed, so cycles never overlap. Stop lets an in-flight send
// finish. A manual ProcessBatch waits for a running cycle.
//
// # Event Handling
//
// Implement [EventHandler] (embed [BaseEventHandler] for defaults) and pass it
// via [WithEventHandler]. Handlers run synchronously on the cycle goroutine
// and should return quickly.
//
// # Plugins
//
//	import "github.com/bft-labs/queueship/plugins/resourcegating"
//	import "github.com/bft-labs/queueship/plugins/configwatcher"
//
//	q, err := queueship.New(cfg,
//	    resourcegating.WithResourceGating(resourcegating.DefaultConfig()),
//	    configwatcher.WithConfigWatcher(watcherCfg),
//	)
//
// Plugins are initialized on the first Start and shut down by Close.
package queueship
