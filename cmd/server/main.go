package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"titlechain/internal/platform/config"
	"titlechain/internal/platform/httpserver"
	"titlechain/internal/platform/logger"
	"titlechain/internal/platform/metrics"
)

// main loads configuration, wires the application and serves until SIGINT or
// SIGTERM. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("titlechain stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := metrics.NewRegistry()

	app, err := buildApp(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer app.Close()

	api := httpserver.New(cfg.Server.Addr, app.Router())
	metricsSrv := httpserver.New(cfg.Server.MetricsAddr, metrics.Handler(reg))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting titlechain", "addr", cfg.Server.Addr, "env", cfg.Server.Env, "fhe_backend", cfg.FHE.Backend)
		return httpserver.Run(ctx, api, cfg.Server.ShutdownTimeout, log)
	})
	g.Go(func() error {
		log.Info("starting metrics server", "addr", cfg.Server.MetricsAddr)
		return httpserver.Run(ctx, metricsSrv, cfg.Server.ShutdownTimeout, log)
	})
	if app.relay != nil {
		g.Go(func() error {
			if err := app.relay.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
