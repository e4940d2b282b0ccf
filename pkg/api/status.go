package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/shuliakovsky/peersync/pkg/journal"
	"github.com/shuliakovsky/peersync/pkg/peers"
	"github.com/shuliakovsky/peersync/pkg/syncer"
)

// Status serves the operator-facing snapshot: node identity, membership
// and the outcome of the last sync cycle.
type Status struct {
	NodeID string
	Store  *peers.Store
	Syncer *syncer.Syncer
	Jrnl   *journal.Journal
	Logger *zap.Logger
}

func NewStatus(nodeID string, store *peers.Store, sy *syncer.Syncer, jrnl *journal.Journal, logger *zap.Logger) *Status {
	return &Status{NodeID: nodeID, Store: store, Syncer: sy, Jrnl: jrnl, Logger: logger}
}

func (s *Status) Overview(w http.ResponseWriter, _ *http.Request) {
	state, last := s.Syncer.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"nodeId":     s.NodeID,
		"state":      state,
		"peersAlive": len(s.Store.Alive()),
		"lastCycle":  last,
		"transfers":  s.Jrnl.Recent(),
	})
}

func (s *Status) Peers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Store.All())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
