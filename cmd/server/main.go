// Event collab backend — events, tasks and chat behind a token-gated API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Sauravv193/event-collab-task-management/internal/config"
	"github.com/Sauravv193/event-collab-task-management/internal/db"
	"github.com/Sauravv193/event-collab-task-management/internal/server"
	"github.com/Sauravv193/event-collab-task-management/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("failed to load config", zap.Error(err))
	}

	logger := buildLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()
	if cfg.JWTSecret == "" {
		logger.Fatal("jwt secret is required (set ECTM_JWT_SECRET)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		logger.Fatal("cannot create data dir", zap.String("dir", cfg.DataDir), zap.Error(err))
	}

	sqldb, err := db.Connect(cfg.DatabaseURL, cfg.DataDir)
	if err != nil {
		logger.Fatal("cannot open database", zap.Error(err))
	}
	defer sqldb.Close()

	if err := db.Migrate(ctx, sqldb); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	shutdownTracing, err := telemetry.InitTraceProvider(ctx, cfg.OTLPEndpoint, server.Version)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Warn("trace shutdown", zap.Error(err))
			}
		}()
	}

	srv := server.New(cfg, sqldb, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func buildLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := cfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
