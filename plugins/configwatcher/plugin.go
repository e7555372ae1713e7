// Package configwatcher provides config file monitoring for queueship.
// When enabled, it watches a configuration file and applies changes to the
// running instance with stop, reconfigure and start.
package configwatcher

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/queueship/pkg/log"
	"github.com/bft-labs/queueship/pkg/queueship"
)

// Loader reads the configuration from its sources.
type Loader func() (queueship.Config, error)

// Plugin implements config watching functionality.
// It watches the directory of the config file so that a file replaced by
// rename is still seen.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	loader        Loader
	debounceDelay time.Duration
	retryInterval time.Duration
	maxAttempts   int

	// Runtime state
	logger     log.Logger
	controller queueship.Controller
	current    queueship.Config
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	debounce   *time.Timer
	reloads    int
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the configuration file to watch. Required.
	Path string

	// Loader produces the new configuration after a change. Required.
	Loader Loader

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// RetryInterval is the delay between load attempts when the file cannot
	// be parsed, typically because it is still being written.
	// Default: 1 second
	RetryInterval time.Duration

	// MaxAttempts bounds the load attempts per change.
	// Default: 3
	MaxAttempts int
}

// DefaultConfig returns a Config with sensible defaults. Path and Loader
// must still be set.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
		RetryInterval: time.Second,
		MaxAttempts:   3,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return &Plugin{
		path:          cfg.Path,
		loader:        cfg.Loader,
		debounceDelay: cfg.DebounceDelay,
		retryInterval: cfg.RetryInterval,
		maxAttempts:   cfg.MaxAttempts,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize sets up the plugin and starts the watcher loop.
func (p *Plugin) Initialize(ctx context.Context, cfg queueship.PluginConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	p.mu.Lock()
	p.logger = logger.With(log.String("plugin", p.Name()))
	p.controller = cfg.Controller
	p.current = cfg.Config
	p.mu.Unlock()

	if p.path == "" || p.loader == nil || p.controller == nil {
		p.logger.Warn("config watcher disabled: path, loader or controller not configured")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}

	// Create cancellable context for the watcher loop
	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher plugin initialized", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the config watcher and waits for an in-progress reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Lock()
	if p.debounce != nil && p.debounce.Stop() {
		p.wg.Done()
	}
	p.debounce = nil
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

// Reloads returns the number of configurations applied so far.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

// watchLoop watches for config file changes.
func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher: watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A timer stopped before firing never runs its Done.
	if p.debounce != nil && p.debounce.Stop() {
		p.wg.Done()
	}
	p.wg.Add(1)
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		defer p.wg.Done()
		p.reloadWithRetry(ctx)
	})
}

// reloadWithRetry loads the configuration, retrying while the file cannot
// be parsed, and applies it.
func (p *Plugin) reloadWithRetry(ctx context.Context) {
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		cfg, err := p.loader()
		if err == nil {
			p.apply(ctx, cfg)
			return
		}
		lastErr = err
		p.logger.Warn("config watcher: load failed",
			log.Int("attempt", attempt),
			log.Err(err))

		if attempt == p.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.retryInterval):
		}
	}
	p.logger.Error("config watcher: keeping current configuration", log.Err(lastErr))
}

// apply stops a running instance, reconfigures it and starts it again.
func (p *Plugin) apply(ctx context.Context, cfg queueship.Config) {
	cfg.SetDefaults()
	p.mu.Lock()
	unchanged := reflect.DeepEqual(p.current, cfg)
	p.mu.Unlock()
	if unchanged {
		p.logger.Debug("config watcher: configuration unchanged")
		return
	}
	if ctx.Err() != nil {
		return
	}

	wasRunning := p.controller.State().Running()
	if wasRunning {
		if err := p.controller.Stop(); err != nil && !errors.Is(err, queueship.ErrNotRunning) {
			p.logger.Error("config watcher: stop failed", log.Err(err))
			return
		}
	}

	err := p.controller.Reconfigure(cfg)
	if err != nil {
		p.logger.Error("config watcher: reconfigure failed", log.Err(err))
	} else {
		p.mu.Lock()
		p.current = cfg
		p.reloads++
		p.mu.Unlock()
		p.logger.Info("config watcher: configuration applied")
	}

	if !wasRunning || ctx.Err() != nil {
		return
	}
	if err := p.controller.Restart(); err != nil {
		p.logger.Warn("config watcher: restart failed", log.Err(err))
	}
}

// Ensure Plugin implements queueship.Plugin.
var _ queueship.Plugin = (*Plugin)(nil)
