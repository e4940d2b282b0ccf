package transfer

import (
	"encoding/binary"
	"fmt"
)

// ChunkHeader is the fixed-width preamble of every TChunk frame. The
// digest covers the chunk bytes alone, so the receiver can verify each
// chunk without buffering the whole file.
type ChunkHeader struct {
	Path      string
	TotalSize int64
	ModTime   int64 // unix nanoseconds
	Index     uint32
	Count     uint32
	Digest    uint64
}

// Wire layout: u16 pathLen | path | u64 totalSize | i64 modTime |
// u32 index | u32 count | u64 digest | u32 dataLen | data.
const chunkFixedLen = 8 + 8 + 4 + 4 + 8 + 4

func marshalChunk(h ChunkHeader, data []byte) []byte {
	buf := make([]byte, 2+len(h.Path)+chunkFixedLen+len(data))
	binary.BigEndian.PutUint16(buf[0:], uint16(len(h.Path)))
	off := 2 + copy(buf[2:], h.Path)
	binary.BigEndian.PutUint64(buf[off:], uint64(h.TotalSize))
	off += 8
	binary.BigEndian.PutUint64(buf[off:], uint64(h.ModTime))
	off += 8
	binary.BigEndian.PutUint32(buf[off:], h.Index)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], h.Count)
	off += 4
	binary.BigEndian.PutUint64(buf[off:], h.Digest)
	off += 8
	binary.BigEndian.PutUint32(buf[off:], uint32(len(data)))
	off += 4
	copy(buf[off:], data)
	return buf
}

func parseChunk(payload []byte) (ChunkHeader, []byte, error) {
	if len(payload) < 2 {
		return ChunkHeader{}, nil, fmt.Errorf("chunk truncated")
	}
	plen := int(binary.BigEndian.Uint16(payload[0:]))
	if len(payload) < 2+plen+chunkFixedLen {
		return ChunkHeader{}, nil, fmt.Errorf("chunk truncated")
	}
	h := ChunkHeader{Path: string(payload[2 : 2+plen])}
	off := 2 + plen
	h.TotalSize = int64(binary.BigEndian.Uint64(payload[off:]))
	off += 8
	h.ModTime = int64(binary.BigEndian.Uint64(payload[off:]))
	off += 8
	h.Index = binary.BigEndian.Uint32(payload[off:])
	off += 4
	h.Count = binary.BigEndian.Uint32(payload[off:])
	off += 4
	h.Digest = binary.BigEndian.Uint64(payload[off:])
	off += 8
	dlen := int(binary.BigEndian.Uint32(payload[off:]))
	off += 4
	if len(payload) != off+dlen {
		return ChunkHeader{}, nil, fmt.Errorf("chunk length mismatch: header says %d, got %d", dlen, len(payload)-off)
	}
	return h, payload[off:], nil
}
