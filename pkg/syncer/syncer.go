package syncer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shuliakovsky/peersync/pkg/catalog"
	"github.com/shuliakovsky/peersync/pkg/diff"
	"github.com/shuliakovsky/peersync/pkg/journal"
	"github.com/shuliakovsky/peersync/pkg/metrics"
	"github.com/shuliakovsky/peersync/pkg/peers"
	"github.com/shuliakovsky/peersync/pkg/transfer"
)

type State string

const (
	StateIdle            State = "idle"
	StateBuildingCatalog State = "building_catalog"
	StateContactingPeers State = "contacting_peers"
	StateDiffing         State = "diffing"
	StateTransferring    State = "transferring"
)

type CycleSummary struct {
	StartedAt        time.Time `json:"startedAt"`
	FinishedAt       time.Time `json:"finishedAt"`
	PeersContacted   int       `json:"peersContacted"`
	PeersUnreachable int       `json:"peersUnreachable"`
	Pushed           int       `json:"pushed"`
	Pulled           int       `json:"pulled"`
	Failed           int       `json:"failed"`
}

// Syncer drives the periodic cycle: snapshot the local catalog, fetch
// each alive peer's catalog, diff, and execute the resulting transfers.
// Cycles never overlap; individual peer or file failures never abort a
// cycle.
type Syncer struct {
	root     string
	nodeID   string
	store    *peers.Store
	jrnl     *journal.Journal
	interval time.Duration
	cfg      transfer.Config
	logger   *zap.Logger

	mu    sync.RWMutex
	state State
	last  CycleSummary
}

func New(root, nodeID string, store *peers.Store, jrnl *journal.Journal, interval time.Duration, cfg transfer.Config, logger *zap.Logger) *Syncer {
	return &Syncer{
		root:     root,
		nodeID:   nodeID,
		store:    store,
		jrnl:     jrnl,
		interval: interval,
		cfg:      cfg.Normalized(),
		logger:   logger,
		state:    StateIdle,
	}
}

// Run executes cycles on a ticker until ctx is cancelled. A cancellation
// mid-cycle lets the current file transfer finish, then stops.
func (s *Syncer) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle performs one full sync cycle and returns its summary.
func (s *Syncer) RunCycle(ctx context.Context) (sum CycleSummary) {
	sum.StartedAt = time.Now()
	defer func() {
		sum.FinishedAt = time.Now()
		s.mu.Lock()
		s.state = StateIdle
		s.last = sum
		s.mu.Unlock()
		metrics.SyncCycles.Inc()
	}()

	s.setState(StateBuildingCatalog)
	local, err := catalog.Build(s.root, s.nodeID, s.logger)
	if err != nil {
		s.logger.Warn("catalog_build_failed", zap.Error(err))
		return sum
	}
	metrics.CatalogFiles.Set(float64(len(local.Entries)))

	s.setState(StateContactingPeers)
	for _, p := range s.store.Alive() {
		if ctx.Err() != nil {
			break
		}
		remote, err := s.fetchCatalog(p.Addr)
		if err != nil {
			// liveness accounting stays with the discovery sweep; the
			// peer is only dropped from this cycle's work list
			sum.PeersUnreachable++
			s.logger.Warn("peer_unreachable", zap.String("peer", p.ID), zap.String("addr", p.Addr), zap.Error(err))
			continue
		}
		sum.PeersContacted++

		s.setState(StateDiffing)
		intents := diff.Diff(local, remote)
		if len(intents) == 0 {
			s.setState(StateContactingPeers)
			continue
		}

		s.setState(StateTransferring)
		for _, in := range intents {
			if ctx.Err() != nil {
				break
			}
			s.execute(p, in, &sum)
		}
		s.setState(StateContactingPeers)
	}
	return sum
}

func (s *Syncer) execute(p peers.Peer, in diff.Intent, sum *CycleSummary) {
	var (
		n   int64
		err error
	)
	switch in.Direction {
	case diff.Pull:
		n, err = s.pull(p.Addr, in.Path)
	case diff.Push:
		n, err = s.push(p.Addr, in.Path)
	}

	dir := string(in.Direction)
	ev := journal.Event{Path: in.Path, Peer: p.Addr, Direction: dir, Bytes: n, OK: err == nil}
	if err != nil {
		sum.Failed++
		ev.Error = err.Error()
		metrics.TransferFail.WithLabelValues(dir).Inc()
		s.jrnl.Record(ev)
		s.logger.Warn("transfer_failed",
			zap.String("path", in.Path),
			zap.String("peer", p.ID),
			zap.String("direction", dir),
			zap.String("reason", string(in.Reason)),
			zap.Error(err),
		)
		return
	}
	if in.Direction == diff.Pull {
		sum.Pulled++
	} else {
		sum.Pushed++
	}
	metrics.TransferSuccess.WithLabelValues(dir).Inc()
	metrics.TransferBytes.WithLabelValues(dir).Add(float64(n))
	s.jrnl.Record(ev)
	s.logger.Info("transfer_complete",
		zap.String("path", in.Path),
		zap.String("peer", p.ID),
		zap.String("direction", dir),
		zap.String("reason", string(in.Reason)),
		zap.Int64("bytes", n),
	)
}

func (s *Syncer) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Status reports the current cycle state and the last finished cycle.
func (s *Syncer) Status() (State, CycleSummary) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.last
}
