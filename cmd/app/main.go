package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shuliakovsky/peersync/pkg/discovery"
	"github.com/shuliakovsky/peersync/pkg/journal"
	"github.com/shuliakovsky/peersync/pkg/server"
	"github.com/shuliakovsky/peersync/pkg/syncer"
	"github.com/shuliakovsky/peersync/pkg/transfer"
)

func main() {
	PrintVersion()
	_ = godotenv.Load()

	cfg := loadConfig()
	logger := initLogger()
	defer logger.Sync()

	if err := os.MkdirAll(cfg.SharedDir, 0755); err != nil {
		logger.Fatal("shared_dir_unusable", zap.String("dir", cfg.SharedDir), zap.Error(err))
	}

	store, nodeID := initNode(cfg, logger)
	jrnl := journal.New(256)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tcfg := transfer.Config{ChunkSize: cfg.ChunkSize, Timeout: cfg.IOTimeout}

	srv := server.New(cfg.SharedDir, nodeID, tcfg, jrnl, logger)
	if err := srv.Listen(cfg.ListenAddr()); err != nil {
		logger.Fatal("peer_listen_failed", zap.Error(err))
	}
	go srv.Serve(ctx)

	beacon := discovery.New(nodeID, cfg.TCPPort, cfg.MulticastGroup, cfg.MulticastPort, cfg.AnnounceInterval, store, logger)
	if err := beacon.Start(ctx); err != nil {
		logger.Fatal("discovery_start_failed", zap.Error(err))
	}

	sy := syncer.New(cfg.SharedDir, nodeID, store, jrnl, cfg.SyncInterval, tcfg, logger)
	go sy.Run(ctx)

	registerRoutes(nodeID, store, sy, jrnl, logger)
	startHTTP(ctx, cfg.HTTPAddr(), logger)
}
