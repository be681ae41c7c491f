package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	clts "tradewatch/clients"
	"tradewatch/config"
	"tradewatch/internal/app"
	"tradewatch/internal/trace"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// .env is optional
	_ = godotenv.Load()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Load config from environment variables
	cfg := config.Load()

	// Optional YAML overlay
	if path := os.Getenv("TRADEWATCH_CONFIG"); path != "" {
		fileCfg, err := config.LoadFile(path, cfg)
		if err != nil {
			logger.Fatal("failed to load config file", zap.String("path", path), zap.Error(err))
		}
		cfg = fileCfg
		logger.Info("config file loaded", zap.String("path", path))
	}

	if result := cfg.Validate(); !result.Valid {
		for _, e := range result.Errors {
			logger.Error("invalid config", zap.String("field", e.Field), zap.String("message", e.Message))
		}
		os.Exit(1)
	}

	logger.Info("starting tradewatch",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("endpoint", cfg.LogSource.URL),
	)

	if err := trace.Init(cfg.Tracing); err != nil {
		logger.Warn("failed to init tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := trace.Shutdown(ctx); err != nil {
			logger.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	logger.Info("instantiating clients")
	clients := clts.NewClients(logger, cfg)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	runner := app.NewRunner(clients, cfg)
	if err := runner.Run(ctx); err != nil {
		logger.Error("runner failed", zap.Error(err))
	}
}

func newLogger() (*zap.Logger, error) {
	if strings.EqualFold(os.Getenv("LOG_DEV"), "true") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
