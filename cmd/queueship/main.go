package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bft-labs/queueship/internal/cliconfig"
)

const helpDescription = `
Queue data packets locally and deliver them to a remote ingestion cluster in
batches, without blocking the producer.

Highlights:
  - Bounded queue by packet count and bytes; oldest packets are evicted or new ones rejected.
  - Expired packets are dropped before every send.
  - Batches are sized by count and bytes and never sent concurrently.
  - Configure via file, env (QUEUESHIP_*), or flags; the config file is watched for changes.

Packets come from a built-in generator or, with --stdin, one packet per input line.
`

var longHelp = strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  queueship --url http://ingest:8080 --port-name "From iOS" --count 500 --once
  tail -F app.log | queueship --stdin --config $HOME/.queueship/config.toml
  queueship status --status-file /var/lib/queueship/status.json
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "queueship",
		Short:   "Store-and-forward delivery of data packets to a remote ingestion cluster",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg, cfgPath)
		},
		SilenceUsage: true,
	}

	// Flags
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.queueship/config.toml)")

	f := root.Flags()
	f.StringSliceVar(&cfg.URLs, "url", cfg.URLs, "remote peer base URL (repeatable)")
	f.StringVar(&cfg.Username, "username", cfg.Username, "basic auth username")
	f.StringVar(&cfg.Password, "password", cfg.Password, "basic auth password")
	f.StringVar(&cfg.ProxyURL, "proxy", cfg.ProxyURL, "HTTP proxy URL")
	f.StringVar(&cfg.ProxyUsername, "proxy-username", cfg.ProxyUsername, "HTTP proxy username")
	f.StringVar(&cfg.ProxyPassword, "proxy-password", cfg.ProxyPassword, "HTTP proxy password")
	f.StringVar(&cfg.PortName, "port-name", cfg.PortName, "remote input port name")
	f.StringVar(&cfg.PortID, "port-id", cfg.PortID, "remote input port ID (wins over port-name)")

	f.IntVar(&cfg.MaxCount, "max-count", cfg.MaxCount, "maximum queued packets")
	f.Int64Var(&cfg.MaxSize, "max-size", cfg.MaxSize, "maximum queued payload bytes")
	f.IntVar(&cfg.BatchCount, "batch-count", cfg.BatchCount, "preferred packets per batch")
	f.Int64Var(&cfg.BatchSize, "batch-size", cfg.BatchSize, "preferred payload bytes per batch")

	f.DurationVar(&cfg.Interval, "interval", cfg.Interval, "processing interval")
	f.DurationVar(&cfg.TTL, "ttl", cfg.TTL, "packet time to live")
	f.DurationVar(&cfg.HardInterval, "hard-interval", cfg.HardInterval, "hard send interval (override gating)")
	f.DurationVar(&cfg.RetryBackoffMax, "retry-backoff-max", cfg.RetryBackoffMax, "maximum retry backoff after failed sends (0 disables)")
	f.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout")
	f.DurationVar(&cfg.PeerPenalty, "peer-penalty", cfg.PeerPenalty, "how long a failed peer is skipped")

	f.StringVar(&cfg.Prioritizer, "prioritizer", cfg.Prioritizer, "prioritizer: fixed-ttl or attribute")
	f.StringVar(&cfg.PriorityKey, "priority-key", cfg.PriorityKey, "attribute holding the integer priority")
	f.StringVar(&cfg.Overflow, "overflow", cfg.Overflow, "overflow policy: evict-oldest or reject")
	f.StringVar(&cfg.Compression, "compression", cfg.Compression, "request compression: gzip, zstd or none")
	f.IntVar(&cfg.GoroutineThreshold, "gate-goroutines", cfg.GoroutineThreshold, "gate sends above this goroutine count (0 disables)")

	f.StringVar(&cfg.StatusFile, "status-file", cfg.StatusFile, "write the latest status to this JSON file")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")

	f.BoolVar(&cfg.Stdin, "stdin", cfg.Stdin, "read one packet per line from stdin")
	f.DurationVar(&cfg.Rate, "rate", cfg.Rate, "generator: delay between packets")
	f.IntVar(&cfg.Count, "count", cfg.Count, "generator: number of packets (0 means unlimited)")
	f.BoolVar(&cfg.Once, "once", cfg.Once, "exit once the input is exhausted and the queue is empty")

	root.AddCommand(newStatusCommand(&cfgPath))

	if err := root.Execute(); err != nil {
		log := cliconfig.Logger(cfg.LogLevel)
		log.Error().Err(err).Msg("queueship")
		os.Exit(1)
	}
}
