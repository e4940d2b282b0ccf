package transfer

import (
	"bytes"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"

	"github.com/shuliakovsky/peersync/pkg/catalog"
)

func testCfg() Config {
	return Config{ChunkSize: 1024, Timeout: 5 * time.Second}
}

func roundTrip(t *testing.T, size int) {
	t.Helper()
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	content := make([]byte, size)
	_, err := rand.Read(content)
	require.NoError(t, err)
	src := filepath.Join(srcDir, "data.bin")
	require.NoError(t, os.WriteFile(src, content, 0644))
	mtime := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	errCh := make(chan error, 1)
	go func() {
		_, err := Send(a, "sub/data.bin", src, testCfg())
		errCh <- err
	}()

	rel, n, err := Receive(b, dstDir, testCfg())
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	require.Equal(t, "sub/data.bin", rel)
	require.Equal(t, int64(size), n)

	final := filepath.Join(dstDir, "sub", "data.bin")
	got, err := os.ReadFile(final)
	require.NoError(t, err)
	require.True(t, bytes.Equal(content, got))

	info, err := os.Stat(final)
	require.NoError(t, err)
	require.WithinDuration(t, mtime, info.ModTime(), time.Second)

	// staging file must be gone after commit
	_, err = os.Stat(final + catalog.StagingSuffix)
	require.True(t, os.IsNotExist(err))
}

func TestRoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, 1024, 2*1024 + 7} {
		roundTrip(t, size)
	}
}

func TestCorruptedChunkAborts(t *testing.T) {
	dstDir := t.TempDir()
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	data := []byte("good bytes")
	hdr := ChunkHeader{
		Path:      "x.txt",
		TotalSize: int64(len(data)),
		ModTime:   time.Now().UnixNano(),
		Index:     0,
		Count:     1,
		Digest:    xxhash.Sum64(data) + 1, // flipped in transit
	}

	go func() {
		_ = WriteFrame(a, TChunk, marshalChunk(hdr, data))
		// receiver answers with a rejection ack
		typ, payload, err := ReadFrame(a)
		if err == nil && typ == TDone {
			_ = payload
		}
	}()

	_, _, err := Receive(b, dstDir, testCfg())
	require.ErrorIs(t, err, ErrIntegrity)

	// nothing committed, nothing staged
	_, err = os.Stat(filepath.Join(dstDir, "x.txt"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dstDir, "x.txt"+catalog.StagingSuffix))
	require.True(t, os.IsNotExist(err))
}

func TestUnsafePathRejected(t *testing.T) {
	dstDir := t.TempDir()
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	data := []byte("evil")
	hdr := ChunkHeader{
		Path:      "../escape.txt",
		TotalSize: int64(len(data)),
		Index:     0,
		Count:     1,
		Digest:    xxhash.Sum64(data),
	}
	go func() {
		_ = WriteFrame(a, TChunk, marshalChunk(hdr, data))
		_, _, _ = ReadFrame(a)
	}()

	_, _, err := Receive(b, dstDir, testCfg())
	require.Error(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(dstDir), "escape.txt"))
	require.True(t, os.IsNotExist(err))
}

func TestOutOfOrderChunkRejected(t *testing.T) {
	dstDir := t.TempDir()
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	chunk := func(idx uint32) []byte {
		data := []byte("0123456789")
		return marshalChunk(ChunkHeader{
			Path:      "x.txt",
			TotalSize: 30,
			Index:     idx,
			Count:     3,
			Digest:    xxhash.Sum64(data),
		}, data)
	}
	go func() {
		_ = WriteFrame(a, TChunk, chunk(0))
		_ = WriteFrame(a, TChunk, chunk(2)) // skips index 1
	}()

	_, _, err := Receive(b, dstDir, testCfg())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrIntegrity)
}

func TestFrameRejectsBadMagic(t *testing.T) {
	r := bytes.NewReader([]byte{'X', 'X', 'X', 0x01, TChunk, 0, 0, 0, 0})
	_, _, err := ReadFrame(r)
	require.Error(t, err)
}

func TestChunkHeaderRoundTrip(t *testing.T) {
	in := ChunkHeader{
		Path:      "dir/file.bin",
		TotalSize: 123456,
		ModTime:   time.Now().UnixNano(),
		Index:     7,
		Count:     9,
		Digest:    0xdeadbeef,
	}
	data := []byte("payload")
	h, out, err := parseChunk(marshalChunk(in, data))
	require.NoError(t, err)
	require.Equal(t, in, h)
	require.Equal(t, data, out)
}
