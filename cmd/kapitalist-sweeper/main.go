package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Hellboy20151011/Der-Kapitalist/internal/config"
	"github.com/Hellboy20151011/Der-Kapitalist/internal/db"
	"github.com/Hellboy20151011/Der-Kapitalist/internal/game"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadSweeperFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc, err := game.NewService(pool, logger, game.DefaultRules(), nil)
	if err != nil {
		logger.Error("game service init failed", "err", err)
		os.Exit(1)
	}

	if cfg.RunOnce {
		if _, err := svc.ExpireDueListings(ctx); err != nil {
			logger.Error("sweep failed", "err", err)
			os.Exit(1)
		}
		logger.Info("sweeper run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.SweepEvery)
	defer ticker.Stop()

	logger.Info("sweeper started", "sweep_every", cfg.SweepEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper shutdown")
			return
		case <-ticker.C:
			if _, err := svc.ExpireDueListings(ctx); err != nil {
				logger.Error("sweep failed", "err", err)
				continue
			}
		}
	}
}
