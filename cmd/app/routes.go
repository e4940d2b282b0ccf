package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/shuliakovsky/peersync/pkg/api"
	"github.com/shuliakovsky/peersync/pkg/journal"
	"github.com/shuliakovsky/peersync/pkg/metrics"
	"github.com/shuliakovsky/peersync/pkg/peers"
	"github.com/shuliakovsky/peersync/pkg/syncer"
)

func registerRoutes(
	nodeID string,
	store *peers.Store,
	sy *syncer.Syncer,
	jrnl *journal.Journal,
	logger *zap.Logger,
) {
	status := api.NewStatus(nodeID, store, sy, jrnl, logger)
	events := api.NewEvents(jrnl, logger)

	http.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	http.HandleFunc("/status", status.Overview)
	http.HandleFunc("/peers", status.Peers)
	http.HandleFunc("/ws/events", events.ServeWS)

	metrics.Init()
	http.Handle("/metrics", metrics.Handler())
}
