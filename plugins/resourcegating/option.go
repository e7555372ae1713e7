package resourcegating

import "github.com/bft-labs/queueship/pkg/queueship"

// WithResourceGating returns a queueship Option that registers the plugin
// and installs it as the send gate.
//
// Usage:
//
//	q, err := queueship.New(cfg,
//	    resourcegating.WithResourceGating(resourcegating.Config{
//	        GoroutineThreshold: 5000,
//	    }),
//	)
func WithResourceGating(cfg Config) queueship.Option {
	plugin := New(cfg)
	return queueship.WithOptions(
		queueship.WithPlugin(plugin),
		queueship.WithSendGate(plugin),
	)
}

// WithDefaultResourceGating returns a queueship Option that enables resource
// gating with default settings (10 goroutines per CPU).
//
// Usage:
//
//	q, err := queueship.New(cfg, resourcegating.WithDefaultResourceGating())
func WithDefaultResourceGating() queueship.Option {
	return WithResourceGating(DefaultConfig())
}
