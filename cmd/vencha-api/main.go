package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vencha/internal/api"
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

	server := api.New(cfg, logger, authClient, svc, cat)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("vencha api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
