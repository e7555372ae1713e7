package queueship

import (
	"context"
	"os"
	"runtime"
	"sync"

	httpAdapter "github.com/bft-labs/queueship/internal/adapters/http"
	"github.com/bft-labs/queueship/internal/app"
	"github.com/bft-labs/queueship/internal/ports"
	"github.com/bft-labs/queueship/internal/store"
	"github.com/bft-labs/queueship/pkg/log"
)

// Queueship is a store-and-forward delivery queue that can be embedded in
// other applications. Use New() to create an instance, Enqueue to buffer
// packets and Start() to deliver them periodically.
type Queueship struct {
	mu        sync.Mutex
	config    Config
	opts      options
	logger    log.Logger
	store     *store.Store
	queue     *app.Queue
	lifecycle *app.Lifecycle
	scheduler *app.Scheduler

	startCtx context.Context

	plugins       []Plugin
	pluginsUp     bool
	pluginsCancel context.CancelFunc
}

// New creates a new Queueship instance with the given configuration.
// The instance is created in StateIdle with an empty queue.
// Returns an error matching ErrConfigurationInvalid if cfg is invalid.
func New(cfg Config, opts ...Option) (*Queueship, error) {
	cfg = cfg.clone()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}
	if o.metrics == nil {
		o.metrics = ports.NoopMetrics{}
	}
	if o.clock == nil {
		o.clock = ports.SystemClock{}
	}
	logger := o.logger

	transport, err := buildTransport(cfg, o)
	if err != nil {
		return nil, err
	}

	overflow, _ := store.ParseOverflowPolicy(cfg.OverflowPolicy)
	st := store.New(limitsOf(cfg), cfg.Prioritizer, overflow)

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	reporter := app.NewReporter(logger, o.metrics, o.statusRepo, emitter, o.clock)
	queue := app.NewQueue(queueConfigOf(cfg), app.QueueDeps{
		Store:     st,
		Transport: transport,
		Reporter:  reporter,
		Gate:      o.gate,
		Emitter:   emitter,
		Metrics:   o.metrics,
		Clock:     o.clock,
		Logger:    logger,
	})
	lifecycle := app.NewLifecycle(logger, emitter)
	scheduler := app.NewScheduler(schedulerConfigOf(cfg), queue, lifecycle, logger)

	return &Queueship{
		config:    cfg,
		opts:      o,
		logger:    logger,
		store:     st,
		queue:     queue,
		lifecycle: lifecycle,
		scheduler: scheduler,
		plugins:   o.plugins,
	}, nil
}

// Enqueue admits packets in order and returns a channel delivering exactly
// one Outcome. The outcome carries the queue status when every packet was
// admitted, or an error matching ErrCapacityExceeded with the rejected and
// evicted counts otherwise.
func (q *Queueship) Enqueue(ctx context.Context, packets ...DataPacket) <-chan Outcome {
	return app.Deliver(q.queue.Enqueue(ctx, packets))
}

// Cleanup evicts expired packets and returns a channel delivering the
// resulting status.
func (q *Queueship) Cleanup(ctx context.Context) <-chan Outcome {
	return app.Deliver(q.queue.Cleanup(ctx))
}

// ProcessBatch runs one cycle in the background: it evicts expired packets,
// sends the next batch and delivers the outcome on the returned channel.
// It never overlaps with a scheduled cycle.
func (q *Queueship) ProcessBatch(ctx context.Context) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		ch <- q.queue.ProcessBatch(ctx)
	}()
	return ch
}

// Start begins periodic processing. The first cycle runs immediately.
// Plugins are initialized on the first call.
// Returns ErrAlreadyRunning if the scheduler is enabled or still stopping.
func (q *Queueship) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := q.initPluginsLocked(); err != nil {
		return err
	}
	if err := q.scheduler.Start(ctx); err != nil {
		return err
	}
	q.startCtx = ctx
	return nil
}

// Restart starts the scheduler again with the context passed to the last
// Start. Returns ErrNotRunning if Start was never called, the context's
// error if it is done, and ErrAlreadyRunning if the scheduler is enabled.
func (q *Queueship) Restart() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.startCtx == nil {
		return ErrNotRunning
	}
	if err := q.startCtx.Err(); err != nil {
		return err
	}
	if !q.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	return q.scheduler.Start(q.startCtx)
}

// Stop disables periodic processing. An in-flight cycle completes and its
// outcome is reported; no further cycle is started.
// Returns ErrNotRunning if not running, ErrShutdownTimeout if the in-flight
// cycle did not finish in time.
func (q *Queueship) Stop() error {
	return q.scheduler.Stop()
}

// Close stops the scheduler if running and shuts down plugins.
func (q *Queueship) Close() error {
	err := q.scheduler.Stop()
	if err == ErrNotRunning {
		err = nil
	}

	q.mu.Lock()
	if !q.pluginsUp {
		q.mu.Unlock()
		return err
	}
	q.pluginsUp = false
	q.pluginsCancel()
	q.mu.Unlock()

	// Plugins may call back into the controller while they wind down, so
	// q.mu must not be held here.
	shutdownCtx := context.Background()
	for i := len(q.plugins) - 1; i >= 0; i-- {
		p := q.plugins[i]
		if shutdownErr := p.Shutdown(shutdownCtx); shutdownErr != nil {
			q.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(shutdownErr))
		} else {
			q.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
	return err
}

// State returns the scheduler state.
// Safe to call concurrently from any goroutine.
func (q *Queueship) State() State {
	return State(q.lifecycle.State())
}

// Status returns the current queue status.
func (q *Queueship) Status() QueueStatus {
	return q.queue.Status()
}

// Config returns a copy of the current configuration.
func (q *Queueship) Config() Config {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.config.clone()
}

// Reconfigure replaces the configuration. Queued packets are kept; if the
// new limits are smaller, the oldest packets are evicted. A batch in flight
// from ProcessBatch settles before the new limits apply.
// Returns ErrAlreadyRunning while the scheduler is enabled, or an error
// matching ErrConfigurationInvalid.
func (q *Queueship) Reconfigure(cfg Config) error {
	cfg = cfg.clone()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	transport, err := buildTransport(cfg, q.opts)
	if err != nil {
		return err
	}

	// Cycle lock before q.mu: event handlers run inside a cycle and may
	// call Config.
	return q.queue.Reconfigure(queueConfigOf(cfg), transport, func() error {
		q.mu.Lock()
		defer q.mu.Unlock()

		if !q.lifecycle.CanStart() {
			return ErrAlreadyRunning
		}
		if err := q.scheduler.SetConfig(schedulerConfigOf(cfg)); err != nil {
			return err
		}

		overflow, _ := store.ParseOverflowPolicy(cfg.OverflowPolicy)
		q.store.SetPrioritizer(cfg.Prioritizer)
		q.store.SetOverflowPolicy(overflow)
		if evicted := q.store.SetLimits(limitsOf(cfg)); evicted > 0 {
			q.opts.metrics.PacketsEvicted(ports.EvictReasonCapacity, evicted)
			q.logger.Warn("evicted packets to fit new limits", log.Int("count", evicted))
		}
		q.config = cfg

		q.logger.Info("configuration updated",
			log.Int("max_queued_packet_count", cfg.MaxQueuedPacketCount),
			log.Int64("max_queued_packet_size", cfg.MaxQueuedPacketSize),
			log.Duration("processing_interval", cfg.ProcessingInterval),
		)
		return nil
	})
}

func (q *Queueship) initPluginsLocked() error {
	if q.pluginsUp {
		return nil
	}

	pluginCtx, cancel := context.WithCancel(context.Background())
	pluginCfg := PluginConfig{
		Config:     q.config.clone(),
		Logger:     q.logger,
		Controller: q,
	}
	for i, p := range q.plugins {
		if err := p.Initialize(pluginCtx, pluginCfg); err != nil {
			q.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			for j := i - 1; j >= 0; j-- {
				_ = q.plugins[j].Shutdown(context.Background())
			}
			return err
		}
		q.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	q.pluginsUp = true
	q.pluginsCancel = cancel
	return nil
}

func buildTransport(cfg Config, o options) (Transport, error) {
	if o.transport != nil {
		return o.transport, nil
	}

	clusters := make([]httpAdapter.Cluster, len(cfg.RemoteClusters))
	for i, rc := range cfg.RemoteClusters {
		clusters[i] = httpAdapter.Cluster{
			URLs:          rc.URLs,
			Username:      rc.Username,
			Password:      rc.Password,
			ProxyURL:      rc.ProxyURL,
			ProxyUsername: rc.ProxyUsername,
			ProxyPassword: rc.ProxyPassword,
		}
	}
	return httpAdapter.NewTransport(httpAdapter.Config{
		Clusters:      clusters,
		Compression:   cfg.Compression,
		PenaltyWindow: cfg.PeerPenalty,
		Timeout:       cfg.HTTPTimeout,
	}, o.httpClient, o.logger)
}

func limitsOf(cfg Config) store.Limits {
	return store.Limits{
		MaxCount: cfg.MaxQueuedPacketCount,
		MaxBytes: cfg.MaxQueuedPacketSize,
	}
}

func queueConfigOf(cfg Config) app.QueueConfig {
	return app.QueueConfig{
		PreferredBatchCount: cfg.PreferredBatchCount,
		PreferredBatchBytes: cfg.PreferredBatchSize,
		HardInterval:        cfg.HardInterval,
		PortName:            cfg.PortName,
		PortID:              cfg.PortID,
		Hostname:            hostname(),
		OSArch:              runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func schedulerConfigOf(cfg Config) app.SchedulerConfig {
	return app.SchedulerConfig{
		Interval:        cfg.ProcessingInterval,
		RetryBackoffMax: cfg.RetryBackoffMax,
	}
}

// hostname returns the current hostname.
func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}

// Ensure Queueship can be driven by plugins.
var _ Controller = (*Queueship)(nil)
