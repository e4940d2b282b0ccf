package transfer

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/shuliakovsky/peersync/pkg/catalog"
)

// ErrIntegrity marks a per-chunk digest mismatch. The transfer of that one
// file is aborted and may be retried on a later cycle.
var ErrIntegrity = errors.New("chunk digest mismatch")

// Receive consumes one file's chunk stream from conn into a staging file
// under root and atomically renames it into place after the final chunk
// verifies. The rename is the commit point: a partial file is never
// visible at its final path. Returns the file's relative path and the
// payload bytes received.
func Receive(conn net.Conn, root string, cfg Config) (string, int64, error) {
	cfg = cfg.Normalized()

	var (
		first    ChunkHeader
		out      *os.File
		staging  string
		final    string
		expected uint32
		written  int64
	)
	cleanup := func() {
		if out != nil {
			out.Close()
			os.Remove(staging)
			out = nil
		}
	}
	defer cleanup()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(cfg.Timeout))
		t, payload, err := ReadFrame(conn)
		if err != nil {
			return first.Path, written, fmt.Errorf("read chunk: %w", err)
		}
		if t == TError {
			return first.Path, written, fmt.Errorf("sender error: %s", payload)
		}
		if t != TChunk {
			return first.Path, written, fmt.Errorf("unexpected frame 0x%02x mid-transfer", t)
		}

		h, data, err := parseChunk(payload)
		if err != nil {
			return first.Path, written, err
		}

		if out == nil {
			if h.Index != 0 || h.Count == 0 {
				return h.Path, 0, fmt.Errorf("stream must start at chunk 0 of %q", h.Path)
			}
			rel := filepath.FromSlash(h.Path)
			if h.Path == "" || filepath.IsAbs(rel) || !filepath.IsLocal(rel) {
				_ = writeDone(conn, cfg.Timeout, false, "unsafe path")
				return h.Path, 0, fmt.Errorf("unsafe path %q", h.Path)
			}
			final = filepath.Join(root, rel)
			staging = final + catalog.StagingSuffix
			if err := os.MkdirAll(filepath.Dir(final), 0755); err != nil {
				_ = writeDone(conn, cfg.Timeout, false, "cannot stage file")
				return h.Path, 0, fmt.Errorf("stage %s: %w", h.Path, err)
			}
			out, err = os.Create(staging)
			if err != nil {
				_ = writeDone(conn, cfg.Timeout, false, "cannot stage file")
				return h.Path, 0, fmt.Errorf("stage %s: %w", h.Path, err)
			}
			first = h
		} else if h.Path != first.Path || h.Count != first.Count || h.Index != expected {
			return first.Path, written, fmt.Errorf("out-of-order chunk for %q: got %d want %d", h.Path, h.Index, expected)
		}

		if xxhash.Sum64(data) != h.Digest {
			cleanup()
			_ = writeDone(conn, cfg.Timeout, false, "chunk digest mismatch")
			return first.Path, written, fmt.Errorf("chunk %d of %s: %w", h.Index, first.Path, ErrIntegrity)
		}

		if _, err := out.Write(data); err != nil {
			cleanup()
			_ = writeDone(conn, cfg.Timeout, false, "write failed")
			return first.Path, written, fmt.Errorf("write %s: %w", first.Path, err)
		}
		written += int64(len(data))
		expected++

		if h.Index == h.Count-1 {
			break
		}
	}

	if written != first.TotalSize {
		cleanup()
		_ = writeDone(conn, cfg.Timeout, false, "size mismatch")
		return first.Path, written, fmt.Errorf("%s: received %d bytes, expected %d: %w",
			first.Path, written, first.TotalSize, ErrIntegrity)
	}

	if err := out.Close(); err != nil {
		os.Remove(staging)
		out = nil
		_ = writeDone(conn, cfg.Timeout, false, "close failed")
		return first.Path, written, fmt.Errorf("close %s: %w", first.Path, err)
	}
	out = nil
	if err := os.Rename(staging, final); err != nil {
		os.Remove(staging)
		_ = writeDone(conn, cfg.Timeout, false, "commit failed")
		return first.Path, written, fmt.Errorf("commit %s: %w", first.Path, err)
	}
	mt := time.Unix(0, first.ModTime)
	_ = os.Chtimes(final, mt, mt)

	if err := writeDone(conn, cfg.Timeout, true, ""); err != nil {
		return first.Path, written, err
	}
	return first.Path, written, nil
}
