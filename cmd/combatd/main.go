// Package main provides combatd, the combat engine daemon. It owns the tick
// loop and serves the CombatService over gRPC.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/rpgcombat/internal/config"
	"github.com/cory-johannsen/rpgcombat/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "combatd")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	app, cleanup, err := initializeApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("initializing combatd", zap.Error(err))
	}
	defer cleanup()

	logger.Info("combatd ready",
		zap.String("grpc_addr", cfg.GRPC.Addr()),
		zap.Duration("tick_interval", cfg.Engine.TickInterval),
		zap.Duration("startup", time.Since(start)),
	)
	if err := app.Lifecycle.Run(ctx); err != nil {
		logger.Error("combatd stopped with error", zap.Error(err))
		return
	}
	logger.Info("combatd stopped")
}
