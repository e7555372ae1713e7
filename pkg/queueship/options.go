package queueship

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/queueship/internal/adapters/fs"
	"github.com/bft-labs/queueship/internal/adapters/metrics"
	"github.com/bft-labs/queueship/pkg/log"
)

// Option configures optional behavior of Queueship.
type Option func(*options)

// options holds the optional configuration for a Queueship instance.
type options struct {
	httpClient   HTTPClient
	transport    Transport
	logger       log.Logger
	eventHandler EventHandler
	plugins      []Plugin
	metrics      Metrics
	gate         SendGate
	statusRepo   StatusRepository
	clock        Clock
}

// WithHTTPClient sets the HTTP client used by the built-in transport.
// If not provided, a client per remote cluster is created with the
// configured timeout and proxy.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithTransport replaces the built-in HTTP transport.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for Queueship events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized on the first Start.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithMetrics sets a custom metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithPrometheus registers the queue metrics on reg.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.metrics = metrics.NewMetrics(reg)
	}
}

// WithSendGate sets a gate consulted before each scheduled send.
// See Config.HardInterval.
func WithSendGate(g SendGate) Option {
	return func(o *options) {
		o.gate = g
	}
}

// WithStatusRepository persists every reported status.
func WithStatusRepository(r StatusRepository) Option {
	return func(o *options) {
		o.statusRepo = r
	}
}

// WithStatusFile writes every reported status atomically to a JSON file.
func WithStatusFile(path string) Option {
	return WithStatusRepository(fs.NewStatusFileRepository(path))
}

// WithClock replaces the wall clock, typically with a fake in tests.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithOptions combines several options into one.
func WithOptions(opts ...Option) Option {
	return func(o *options) {
		for _, opt := range opts {
			opt(o)
		}
	}
}
