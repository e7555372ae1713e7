package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/queueship/internal/cliconfig"
	"github.com/bft-labs/queueship/pkg/log"
	"github.com/bft-labs/queueship/pkg/queueship"
	"github.com/bft-labs/queueship/plugins/configwatcher"
	"github.com/bft-labs/queueship/plugins/resourcegating"
)

func run(cmd *cobra.Command, flags cliconfig.Config, cfgPath string) error {
	// Load config file first (default $HOME/.queueship/config.toml), then env, then flag overrides
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfg, err := cliconfig.Resolve(flags, cfgFile, changed)
	if err != nil {
		return err
	}

	logger := cliconfig.Logger(cfg.LogLevel)
	logger.Info().Interface("config", cfg.Masked()).Msg("configuration")

	opts := []queueship.Option{
		queueship.WithLogger(log.NewZerologAdapterWithLogger(logger)),
		queueship.WithEventHandler(&statusRenderer{log: logger}),
		queueship.WithPrometheus(prometheus.DefaultRegisterer),
	}
	if cfg.StatusFile != "" {
		opts = append(opts, queueship.WithStatusFile(cfg.StatusFile))
	}
	if cfg.GoroutineThreshold > 0 {
		opts = append(opts, resourcegating.WithResourceGating(resourcegating.Config{
			GoroutineThreshold: cfg.GoroutineThreshold,
		}))
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		wcfg := configwatcher.DefaultConfig()
		wcfg.Path = cfgFile
		wcfg.Loader = func() (queueship.Config, error) {
			next, err := cliconfig.Resolve(flags, cfgFile, changed)
			if err != nil {
				return queueship.Config{}, err
			}
			return next.ToQueueshipConfig(), nil
		}
		opts = append(opts, configwatcher.WithConfigWatcher(wcfg))
	}

	q, err := queueship.New(cfg.ToQueueshipConfig(), opts...)
	if err != nil {
		return fmt.Errorf("create queueship: %w", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, logger)
		defer srv.Close()
	}

	if err := q.Start(ctx); err != nil {
		return fmt.Errorf("start queueship: %w", err)
	}

	src := newSource(cfg, os.Stdin)
	inputDone := make(chan error, 1)
	go func() {
		inputDone <- src.run(ctx, func(p queueship.DataPacket) {
			out := <-q.Enqueue(ctx, p)
			if out.Err != nil {
				logger.Warn().Err(out.Err).Msg("enqueue")
			}
		})
	}()

	err = wait(ctx, q, cfg.Once, inputDone, logger)

	if closeErr := q.Close(); closeErr != nil && !errors.Is(closeErr, queueship.ErrNotRunning) {
		logger.Error().Err(closeErr).Msg("close queueship")
	}
	status := q.Status()
	logger.Info().
		Int("queued_packet_count", status.QueuedPacketCount).
		Int64("queued_packet_size", status.QueuedPacketSizeBytes).
		Msg("stopped")
	return err
}

// wait blocks until a signal arrives or, in once mode, until the input is
// exhausted and the queue has drained.
func wait(ctx context.Context, q *queueship.Queueship, once bool, inputDone <-chan error, logger zerolog.Logger) error {
	var drain <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("received signal, stopping...")
			return nil

		case err := <-inputDone:
			inputDone = nil
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			logger.Info().Msg("input exhausted")
			if once {
				ticker := time.NewTicker(100 * time.Millisecond)
				defer ticker.Stop()
				drain = ticker.C
			}

		case <-drain:
			if q.Status().QueuedPacketCount == 0 {
				logger.Info().Msg("queue drained")
				return nil
			}
		}
	}
}

func serveMetrics(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}

// statusRenderer logs every cycle outcome and state change.
type statusRenderer struct {
	queueship.BaseEventHandler
	log zerolog.Logger
}

func (r *statusRenderer) OnStateChange(e queueship.StateChangeEvent) {
	r.log.Debug().
		Stringer("from", e.Previous).
		Stringer("to", e.Current).
		Str("reason", e.Reason).
		Msg("state")
}

func (r *statusRenderer) OnCycleComplete(out queueship.Outcome) {
	if out.Err != nil {
		r.log.Warn().Err(out.Err).Msg("cycle failed")
		return
	}
	r.log.Info().
		Int("queue_count", out.Status.QueuedPacketCount).
		Int64("queue_size", out.Status.QueuedPacketSizeBytes).
		Bool("queue_full", out.Status.IsFull).
		Msg("cycle complete")
}
