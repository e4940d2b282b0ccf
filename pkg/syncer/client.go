package syncer

import (
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/shuliakovsky/peersync/pkg/catalog"
	"github.com/shuliakovsky/peersync/pkg/transfer"
)

// One request/response exchange per connection: catalog fetch, file pull
// or file push. A failed file never poisons another file's connection.

func (s *Syncer) dial(addr string) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, s.cfg.Timeout)
}

func (s *Syncer) fetchCatalog(addr string) (catalog.Catalog, error) {
	conn, err := s.dial(addr)
	if err != nil {
		return catalog.Catalog{}, err
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.Timeout))
	if err := transfer.WriteFrame(conn, transfer.TCatalogReq, nil); err != nil {
		return catalog.Catalog{}, fmt.Errorf("catalog request: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.Timeout))
	t, payload, err := transfer.ReadFrame(conn)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("catalog response: %w", err)
	}
	if t != transfer.TCatalog {
		return catalog.Catalog{}, fmt.Errorf("unexpected frame 0x%02x to catalog request", t)
	}
	var cat catalog.Catalog
	if err := json.Unmarshal(payload, &cat); err != nil {
		return catalog.Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	return cat, nil
}

func (s *Syncer) pull(addr, relPath string) (int64, error) {
	conn, err := s.dial(addr)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	req, _ := json.Marshal(transfer.FileRequest{Path: relPath})
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.Timeout))
	if err := transfer.WriteFrame(conn, transfer.TFileGet, req); err != nil {
		return 0, fmt.Errorf("file request: %w", err)
	}
	_, n, err := transfer.Receive(conn, s.root, s.cfg)
	return n, err
}

func (s *Syncer) push(addr, relPath string) (int64, error) {
	conn, err := s.dial(addr)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	req, _ := json.Marshal(transfer.FileRequest{Path: relPath})
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.Timeout))
	if err := transfer.WriteFrame(conn, transfer.TFilePut, req); err != nil {
		return 0, fmt.Errorf("push request: %w", err)
	}
	local := filepath.Join(s.root, filepath.FromSlash(relPath))
	return transfer.Send(conn, relPath, local, s.cfg)
}
