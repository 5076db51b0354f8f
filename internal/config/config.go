package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	Addr        string
	DatabaseURL string
	JWTSecret   string
	JWTTTL      time.Duration
	DevMode     bool
	LogLevel    string
}

type SweeperConfig struct {
	DatabaseURL string
	SweepEvery  time.Duration
	RunOnce     bool
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("KAP_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:        addr,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:   strings.TrimSpace(os.Getenv("KAP_JWT_SECRET")),
		JWTTTL:      envDurationDefault("KAP_JWT_TTL", 24*time.Hour),
		DevMode:     envBoolDefault("KAP_DEV_MODE", false),
		LogLevel:    envDefault("KAP_LOG_LEVEL", "info"),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("KAP_JWT_SECRET is required")
	}
	return cfg, nil
}

func LoadSweeperFromEnv() (SweeperConfig, error) {
	_ = godotenv.Load()

	cfg := SweeperConfig{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SweepEvery:  envDurationDefault("KAP_SWEEP_EVERY", time.Minute),
		RunOnce:     envBoolDefault("KAP_SWEEP_ONCE", false),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("KAP_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}
