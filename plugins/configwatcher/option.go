package configwatcher

import "github.com/bft-labs/queueship/pkg/queueship"

// WithConfigWatcher returns a queueship Option that enables config file
// watching. When the file changes, cfg.Loader is called and the result is
// applied to the instance.
//
// Usage:
//
//	q, err := queueship.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:   "/etc/queueship/config.toml",
//	        Loader: load,
//	    }),
//	)
func WithConfigWatcher(cfg Config) queueship.Option {
	plugin := New(cfg)
	return queueship.WithPlugin(plugin)
}
