package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
)

type doneMsg struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Send streams one file over conn as ordered chunks and waits for the
// receiver's commit acknowledgment. An empty file is a single zero-length
// chunk. Returns the number of payload bytes sent.
func Send(conn net.Conn, relPath, localPath string, cfg Config) (int64, error) {
	cfg = cfg.Normalized()

	info, err := os.Stat(localPath)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", relPath, err)
	}
	f, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", relPath, err)
	}
	defer f.Close()

	size := info.Size()
	count := uint32(1)
	if size > 0 {
		count = uint32((size + int64(cfg.ChunkSize) - 1) / int64(cfg.ChunkSize))
	}
	hdr := ChunkHeader{
		Path:      relPath,
		TotalSize: size,
		ModTime:   info.ModTime().UnixNano(),
		Count:     count,
	}

	var sent int64
	buf := make([]byte, cfg.ChunkSize)
	for i := uint32(0); i < count; i++ {
		n := 0
		if size > 0 {
			n, err = io.ReadFull(f, buf)
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				err = nil
			}
			if err != nil {
				return sent, fmt.Errorf("read %s: %w", relPath, err)
			}
		}
		hdr.Index = i
		hdr.Digest = xxhash.Sum64(buf[:n])

		_ = conn.SetWriteDeadline(time.Now().Add(cfg.Timeout))
		if err := WriteFrame(conn, TChunk, marshalChunk(hdr, buf[:n])); err != nil {
			return sent, fmt.Errorf("send chunk %d of %s: %w", i, relPath, err)
		}
		sent += int64(n)
	}

	if err := awaitDone(conn, cfg.Timeout); err != nil {
		return sent, fmt.Errorf("%s: %w", relPath, err)
	}
	return sent, nil
}

func awaitDone(conn net.Conn, timeout time.Duration) error {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	t, payload, err := ReadFrame(conn)
	if err != nil {
		return fmt.Errorf("await ack: %w", err)
	}
	if t != TDone {
		return fmt.Errorf("expected ack frame, got 0x%02x", t)
	}
	var done doneMsg
	if err := json.Unmarshal(payload, &done); err != nil {
		return fmt.Errorf("decode ack: %w", err)
	}
	if !done.OK {
		return fmt.Errorf("receiver rejected: %s", done.Reason)
	}
	return nil
}

func writeDone(conn net.Conn, timeout time.Duration, ok bool, reason string) error {
	data, _ := json.Marshal(doneMsg{OK: ok, Reason: reason})
	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	return WriteFrame(conn, TDone, data)
}
