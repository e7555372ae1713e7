// Package resourcegating provides load-based send gating for queueship.
// When enabled, scheduled cycles skip the send while the process is busy and
// only evict expired packets. Config.HardInterval still forces a send through
// a closed gate.
package resourcegating

import (
	"context"
	"runtime"
	"sync"

	"github.com/bft-labs/queueship/pkg/log"
	"github.com/bft-labs/queueship/pkg/queueship"
)

// LoadFunc reports the current load. The default counts goroutines.
type LoadFunc func() int

// Plugin implements resource gating functionality.
// It is both a queueship.Plugin and a queueship.SendGate.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	threshold int
	load      LoadFunc

	// Runtime state
	logger log.Logger
	closed bool
	checks int
	denied int
}

// Config holds configuration options for the resource gating plugin.
type Config struct {
	// GoroutineThreshold is the load above which sending is gated.
	// Default: 10 times the number of CPUs
	GoroutineThreshold int

	// Load measures the current load.
	// Default: runtime.NumGoroutine
	Load LoadFunc
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		GoroutineThreshold: runtime.NumCPU() * 10,
		Load:               runtime.NumGoroutine,
	}
}

// New creates a new resource gating plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.GoroutineThreshold <= 0 {
		cfg.GoroutineThreshold = runtime.NumCPU() * 10
	}
	if cfg.Load == nil {
		cfg.Load = runtime.NumGoroutine
	}

	return &Plugin{
		threshold: cfg.GoroutineThreshold,
		load:      cfg.Load,
		logger:    log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "resourcegating"
}

// Initialize sets up the plugin with the provided configuration.
func (p *Plugin) Initialize(ctx context.Context, cfg queueship.PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cfg.Logger != nil {
		p.logger = cfg.Logger.With(log.String("plugin", p.Name()))
	}
	p.logger.Info("resource gating plugin initialized", log.Int("threshold", p.threshold))

	return nil
}

// Shutdown logs the gate statistics.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	p.logger.Info("resource gating plugin stopped",
		log.Int("checks", p.checks),
		log.Int("denied", p.denied))
	return nil
}

// OK reports whether the load allows sending. Gate transitions are logged
// once rather than on every check.
func (p *Plugin) OK() bool {
	load := p.load()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.checks++
	busy := load > p.threshold
	if busy {
		p.denied++
	}
	if busy != p.closed {
		p.closed = busy
		if busy {
			p.logger.Warn("resource gate closed: high load",
				log.Int("load", load),
				log.Int("threshold", p.threshold))
		} else {
			p.logger.Info("resource gate open", log.Int("load", load))
		}
	}
	return !busy
}

// Stats returns the number of checks and how many of them denied a send.
func (p *Plugin) Stats() (checks, denied int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.checks, p.denied
}

// Ensure Plugin implements queueship.Plugin and queueship.SendGate.
var (
	_ queueship.Plugin   = (*Plugin)(nil)
	_ queueship.SendGate = (*Plugin)(nil)
)
