// Package main provides the session server binary: a QUIC endpoint that
// hands each accepted connection to an actor and routes all game commands
// through a single coordinator goroutine.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/delveworks/sessiond/internal/config"
	"github.com/delveworks/sessiond/internal/game"
	"github.com/delveworks/sessiond/internal/observability"
	"github.com/delveworks/sessiond/internal/server"
	"github.com/delveworks/sessiond/internal/session"
	"github.com/delveworks/sessiond/internal/transport"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	coordinator := game.NewCoordinator(game.Options{
		Seed:               cfg.Game.Seed,
		ProximityThreshold: cfg.Game.ProximityThreshold,
		QueueSize:          cfg.Session.QueueSize,
		AnnounceDepartures: cfg.Session.AnnounceDepartures,
	}, logger)

	registry := session.NewRegistry()
	gateway := session.NewGateway(registry, coordinator, session.Options{
		OutboxSize:  cfg.Session.OutboxSize,
		ReadTimeout: cfg.Session.ReadTimeout,
	}, logger)
	endpoint := transport.NewEndpoint(cfg.Listen, gateway, logger)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	coordCtx, stopCoordinator := context.WithCancel(ctx)
	lifecycle.Add("coordinator", &server.FuncService{
		StartFn: func() error {
			return coordinator.Run(coordCtx)
		},
		StopFn: stopCoordinator,
	})

	lifecycle.Add("quic", &server.FuncService{
		StartFn: func() error {
			return endpoint.ListenAndServe()
		},
		StopFn: func() {
			endpoint.Stop()
		},
	})

	logger.Info("session server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("listen_addr", cfg.Listen.Addr()),
		zap.Uint64("seed", cfg.Game.Seed),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
