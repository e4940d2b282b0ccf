package transfer

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Every message on a peer connection is one frame: 4-byte magic, a type
// byte and a big-endian uint32 payload length. Payload bytes follow with
// no delimiter search needed.
var magic = [4]byte{'P', 'S', 'Y', 0x01}

const (
	TCatalogReq = 0x01
	TCatalog    = 0x02
	TFileGet    = 0x10
	TFilePut    = 0x11
	TChunk      = 0x20
	TDone       = 0x21
	TError      = 0xFF
)

const (
	DefaultChunkSize = 64 * 1024
	DefaultTimeout   = 5 * time.Second

	maxFramePayload = 16 << 20
)

// FileRequest is the JSON payload of TFileGet and TFilePut frames.
type FileRequest struct {
	Path string `json:"path"`
}

type Config struct {
	ChunkSize int
	Timeout   time.Duration
}

// Normalized fills in default chunk size and I/O timeout.
func (c Config) Normalized() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

func WriteFrame(w io.Writer, msgType byte, payload []byte) error {
	hdr := make([]byte, 9)
	copy(hdr[:4], magic[:])
	hdr[4] = msgType
	binary.BigEndian.PutUint32(hdr[5:], uint32(len(payload)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

func ReadFrame(r io.Reader) (byte, []byte, error) {
	hdr := make([]byte, 9)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return 0, nil, err
	}
	if [4]byte(hdr[:4]) != magic {
		return 0, nil, fmt.Errorf("bad frame magic %x", hdr[:4])
	}
	msgType := hdr[4]
	plen := binary.BigEndian.Uint32(hdr[5:])
	if plen > maxFramePayload {
		return 0, nil, fmt.Errorf("frame payload too large: %d", plen)
	}
	payload := make([]byte, plen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return msgType, payload, nil
}
