package main

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shuliakovsky/peersync/pkg/peers"
)

// initNode mints the node's identity token and builds the peer table.
// A peer silent for 3 announce intervals goes not-alive; a not-alive
// record is kept for one sync interval before removal so a flapping peer
// does not thrash membership.
func initNode(cfg config, logger *zap.Logger) (*peers.Store, string) {
	nodeID := uuid.NewString()

	expiry := 3 * cfg.AnnounceInterval
	removal := cfg.SyncInterval
	store := peers.NewStore(nodeID, expiry, removal)

	logger.Info("node_started",
		zap.String("nodeID", nodeID),
		zap.String("sharedDir", cfg.SharedDir),
		zap.Int("peerPort", cfg.TCPPort),
		zap.Duration("expiryWindow", expiry),
	)
	return store, nodeID
}
