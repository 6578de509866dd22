package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/tripcraft/tripgen/pkg/logger"
	"github.com/tripcraft/tripgen/pkg/metrics"
	"github.com/tripcraft/tripgen/pkg/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the itinerary generation API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var (
				reg      *prometheus.Registry
				registry prometheus.Registerer
			)
			if cfg.Metrics.Enabled {
				reg = prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				registry = reg
			}

			a, err := newApp(ctx, cfg, true, registry)
			if err != nil {
				return err
			}
			defer a.close()

			go reloadOnHangup(ctx, a)

			var handler http.Handler
			if reg != nil {
				handler = metrics.Handler(reg)
			}

			log := logger.Get()
			p := a.source.Policy()
			log.Infow("starting tripgen",
				"config", configPath,
				"storage", cfg.Storage.Type,
				"window", cfg.Window.Type,
				"daily_cost_limit", p.DailyCostLimit.String(),
				"hourly_request_limit", p.HourlyRequestLimit,
				"providers", len(cfg.Providers))

			srv := server.New(cfg.Listen, a.orch, handler, cfg.Metrics.Path)
			return srv.ListenAndServe(ctx)
		},
	}
}

// reloadOnHangup re-reads the budget policy from the config file on SIGHUP.
func reloadOnHangup(ctx context.Context, a *app) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	log := logger.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := a.source.Reload(); err != nil {
				log.Warnw("budget reload failed, keeping previous policy", "error", err)
				continue
			}
			p := a.source.Policy()
			log.Infow("budget policy reloaded",
				"daily_cost_limit", p.DailyCostLimit.String(),
				"hourly_request_limit", p.HourlyRequestLimit)
		}
	}
}
