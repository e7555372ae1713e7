package queueship

import (
	"context"

	"github.com/bft-labs/queueship/pkg/log"
)

// Plugin extends a Queueship instance.
// Plugins are initialized on the first Start, in registration order, and
// shut down by Close in reverse order. They survive Stop/Start cycles.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize starts the plugin. ctx is canceled by Close.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown releases plugin resources.
	Shutdown(ctx context.Context) error
}

// Controller is the part of Queueship a plugin may drive.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error

	// Restart starts the scheduler again with the context of the last
	// Start, so canceling that context still stops it.
	Restart() error

	State() State
	Config() Config
	Reconfigure(cfg Config) error
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	// Config is the configuration at initialization time.
	Config Config

	// Logger is the instance logger.
	Logger log.Logger

	// Controller drives the owning instance.
	Controller Controller
}

// BasePlugin provides a name and no-op lifecycle methods. Embed it in
// plugins that only need one of the hooks.
type BasePlugin struct {
	name string
}

// NewBasePlugin returns a BasePlugin named name.
func NewBasePlugin(name string) BasePlugin {
	return BasePlugin{name: name}
}

// Name returns the plugin name.
func (b BasePlugin) Name() string { return b.name }

// Initialize does nothing.
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }

// Shutdown does nothing.
func (BasePlugin) Shutdown(context.Context) error { return nil }
