package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tripcraft/tripgen/pkg/audit"
	"github.com/tripcraft/tripgen/pkg/budget"
	"github.com/tripcraft/tripgen/pkg/config"
	"github.com/tripcraft/tripgen/pkg/generation"
	"github.com/tripcraft/tripgen/pkg/ledger"
	"github.com/tripcraft/tripgen/pkg/llm"
	"github.com/tripcraft/tripgen/pkg/logger"
	"github.com/tripcraft/tripgen/pkg/metrics"
	"github.com/tripcraft/tripgen/pkg/pricing"
	"github.com/tripcraft/tripgen/pkg/router"
	"github.com/tripcraft/tripgen/pkg/window"
)

// app holds everything a command may need. close releases it in reverse
// order of construction.
type app struct {
	cfg     *config.Config
	ledger  ledger.Ledger
	window  window.Counter
	budget  *budget.Engine
	source  *config.BudgetSource
	auditor *audit.Logger
	orch    *generation.Orchestrator
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func openLedger(ctx context.Context, cfg *config.Config) (ledger.Ledger, error) {
	switch cfg.Storage.Type {
	case "memory":
		return ledger.NewMemory(), nil
	case "postgresql":
		return ledger.NewPostgres(ctx, cfg.Storage.URL)
	default:
		return ledger.NewSQLite(cfg.Storage.Path)
	}
}

func openWindow(ctx context.Context, cfg *config.Config) (window.Counter, func(), error) {
	if cfg.Window.Type != "redis" {
		return window.NewLocal(), func() {}, nil
	}
	rdb, err := window.Dial(ctx, cfg.Window.Addr, cfg.Window.Password, cfg.Window.DB)
	if err != nil {
		return nil, nil, err
	}
	return window.NewRedis(rdb, cfg.Window.Prefix), func() { _ = rdb.Close() }, nil
}

// newApp opens the ledger and window. With full set it also builds the
// provider clients, audit log and orchestrator; reg may be nil to skip
// metrics.
func newApp(ctx context.Context, cfg *config.Config, full bool, reg prometheus.Registerer) (*app, error) {
	a := &app{cfg: cfg, source: config.NewBudgetSource(configPath, cfg)}

	l, err := openLedger(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	a.ledger = l
	a.closers = append(a.closers, func() { _ = l.Close() })

	w, closeWindow, err := openWindow(ctx, cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open hourly window: %w", err)
	}
	a.window = w
	a.closers = append(a.closers, closeWindow)

	a.budget = budget.New(a.source, l)
	if !full {
		return a, nil
	}

	prices, err := pricing.New(cfg.Pricing)
	if err != nil {
		a.close()
		return nil, err
	}
	clients, err := llm.FromConfig(ctx, cfg.Providers)
	if err != nil {
		a.close()
		return nil, err
	}

	deps := generation.Deps{
		Ledger:  l,
		Budget:  a.budget,
		Window:  w,
		Router:  router.New(cfg, prices),
		Prices:  prices,
		Clients: clients,
		Logger:  logger.Get(),
	}
	if cfg.Audit.Enabled {
		al, err := audit.New(cfg.Audit)
		if err != nil {
			a.close()
			return nil, err
		}
		a.auditor = al
		a.closers = append(a.closers, func() { _ = al.Close() })
		deps.Auditor = al
	}
	if reg != nil {
		deps.Metrics = metrics.New(reg)
	}

	a.orch = generation.New(deps, generation.Options{
		Timeout:            cfg.Generation.Timeout,
		MaxRetries:         generation.Retries(cfg.Generation.MaxRetries),
		MaxTokens:          cfg.Generation.MaxTokens,
		DefaultRequestType: cfg.Generation.DefaultRequestType,
	})
	return a, nil
}
