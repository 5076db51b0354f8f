package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Hellboy20151011/Der-Kapitalist/internal/api"
	"github.com/Hellboy20151011/Der-Kapitalist/internal/auth"
	"github.com/Hellboy20151011/Der-Kapitalist/internal/config"
	"github.com/Hellboy20151011/Der-Kapitalist/internal/db"
	"github.com/Hellboy20151011/Der-Kapitalist/internal/game"
	"github.com/Hellboy20151011/Der-Kapitalist/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	hub := ws.NewHub(logger)
	gameSvc, err := game.NewService(pool, logger, game.DefaultRules(), hub)
	if err != nil {
		logger.Error("game service init failed", "err", err)
		os.Exit(1)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	server := api.New(cfg, logger, tokens, gameSvc, hub)
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

	logger.Info("kapitalist api listening", "addr", cfg.Addr, "dev_mode", cfg.DevMode)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func logLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
