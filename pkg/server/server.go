package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/shuliakovsky/peersync/pkg/catalog"
	"github.com/shuliakovsky/peersync/pkg/journal"
	"github.com/shuliakovsky/peersync/pkg/metrics"
	"github.com/shuliakovsky/peersync/pkg/transfer"
)

// Server answers inbound peer connections: catalog requests, file
// downloads and pushed files. Each connection carries exactly one
// request, is handled on its own goroutine, and a protocol error closes
// only that connection.
type Server struct {
	root   string
	nodeID string
	cfg    transfer.Config
	jrnl   *journal.Journal
	logger *zap.Logger
	ln     net.Listener
}

type errorMsg struct {
	Msg string `json:"msg"`
}

func New(root, nodeID string, cfg transfer.Config, jrnl *journal.Journal, logger *zap.Logger) *Server {
	return &Server{root: root, nodeID: nodeID, cfg: cfg.Normalized(), jrnl: jrnl, logger: logger}
}

func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("peer listen %s: %w", addr, err)
	}
	s.ln = ln
	s.logger.Info("peer_server_listening", zap.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("peer_accept_error", zap.Error(err))
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.Timeout))
	t, payload, err := transfer.ReadFrame(conn)
	if err != nil {
		s.logger.Warn("peer_request_error", zap.String("remote", remote), zap.Error(err))
		return
	}

	switch t {
	case transfer.TCatalogReq:
		s.serveCatalog(conn, remote)
	case transfer.TFileGet:
		s.serveFile(conn, remote, payload)
	case transfer.TFilePut:
		s.receiveFile(conn, remote)
	default:
		s.reject(conn, fmt.Sprintf("unexpected frame 0x%02x", t))
		s.logger.Warn("peer_protocol_error", zap.String("remote", remote), zap.Uint8("frame", t))
	}
}

func (s *Server) serveCatalog(conn net.Conn, remote string) {
	cat, err := catalog.Build(s.root, s.nodeID, s.logger)
	if err != nil {
		s.reject(conn, "catalog unavailable")
		s.logger.Warn("catalog_serve_failed", zap.String("remote", remote), zap.Error(err))
		return
	}
	data, err := json.Marshal(cat)
	if err != nil {
		s.reject(conn, "catalog unavailable")
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.Timeout))
	if err := transfer.WriteFrame(conn, transfer.TCatalog, data); err != nil {
		s.logger.Warn("catalog_send_failed", zap.String("remote", remote), zap.Error(err))
		return
	}
	s.logger.Debug("catalog_served", zap.String("remote", remote), zap.Int("files", len(cat.Entries)))
}

func (s *Server) serveFile(conn net.Conn, remote string, payload []byte) {
	var req transfer.FileRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.reject(conn, "bad file request")
		return
	}
	rel := filepath.FromSlash(req.Path)
	if req.Path == "" || filepath.IsAbs(rel) || !filepath.IsLocal(rel) {
		s.reject(conn, "unsafe path")
		s.logger.Warn("peer_unsafe_path", zap.String("remote", remote), zap.String("path", req.Path))
		return
	}
	local := filepath.Join(s.root, rel)
	if info, err := os.Stat(local); err != nil || !info.Mode().IsRegular() {
		s.reject(conn, "no such file")
		return
	}

	n, err := transfer.Send(conn, req.Path, local, s.cfg)
	s.record(journal.Event{Path: req.Path, Peer: remote, Direction: "serve", Bytes: n}, err)
	if err != nil {
		s.logger.Warn("file_serve_failed", zap.String("remote", remote), zap.String("path", req.Path), zap.Error(err))
		return
	}
	s.logger.Info("file_served", zap.String("remote", remote), zap.String("path", req.Path), zap.Int64("bytes", n))
}

func (s *Server) receiveFile(conn net.Conn, remote string) {
	rel, n, err := transfer.Receive(conn, s.root, s.cfg)
	s.record(journal.Event{Path: rel, Peer: remote, Direction: "recv", Bytes: n}, err)
	if err != nil {
		s.logger.Warn("file_receive_failed", zap.String("remote", remote), zap.String("path", rel), zap.Error(err))
		return
	}
	s.logger.Info("file_received", zap.String("remote", remote), zap.String("path", rel), zap.Int64("bytes", n))
}

func (s *Server) record(e journal.Event, err error) {
	e.OK = err == nil
	if err != nil {
		e.Error = err.Error()
		metrics.TransferFail.WithLabelValues(e.Direction).Inc()
	} else {
		metrics.TransferSuccess.WithLabelValues(e.Direction).Inc()
		metrics.TransferBytes.WithLabelValues(e.Direction).Add(float64(e.Bytes))
	}
	s.jrnl.Record(e)
}

func (s *Server) reject(conn net.Conn, msg string) {
	data, _ := json.Marshal(errorMsg{Msg: msg})
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.Timeout))
	_ = transfer.WriteFrame(conn, transfer.TError, data)
}
