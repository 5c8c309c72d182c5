package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vencha/internal/auth"
	"vencha/internal/catalog"
	"vencha/internal/config"
	"vencha/internal/db"
	"vencha/internal/ledger"
	"vencha/internal/portfolio"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	authClient := auth.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	led := ledger.New(
		ledger.NewEdgeWriter(authClient),
		logger,
		ledger.WithFallback(ledger.NewDirectWriter(pool)),
		ledger.WithTimeout(cfg.RemoteTimeout),
		ledger.WithDegradedWrites(cfg.AllowDegradedWrites),
	)
	cat := catalog.NewRepo(pool)
	if cfg.SeedCatalog {
		if err := cat.SeedDefaults(ctx); err != nil {
			logger.Error("seed catalog failed", "err", err)
			os.Exit(1)
		}
	}
	svc := portfolio.NewService(pool, led, cat, logger)

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("VENCHA_WORKER_RUN_ONCE")), "true")
	if runOnce {
		if err := svc.TickAll(ctx); err != nil {
			logger.Error("tick failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.TickEvery)
	defer ticker.Stop()

	logger.Info("worker started", "tick_every", cfg.TickEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			if err := svc.TickAll(ctx); err != nil {
				logger.Error("market tick failed", "err", err)
				continue
			}
			logger.Info("market tick complete")
		}
	}
}
