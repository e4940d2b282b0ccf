package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildHashesAndNormalizes(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "docs")
	require.NoError(t, os.Mkdir(sub, 0755))
	content := []byte("hello peersync")
	require.NoError(t, os.WriteFile(filepath.Join(sub, "readme.txt"), content, 0644))

	cat, err := Build(root, "node-1", zap.NewNop())
	require.NoError(t, err)
	require.Len(t, cat.Entries, 1)

	e, ok := cat.Entries["docs/readme.txt"]
	require.True(t, ok, "paths must use forward slashes")
	require.Equal(t, int64(len(content)), e.Size)

	sum := sha256.Sum256(content)
	require.Equal(t, hex.EncodeToString(sum[:]), e.Hash)
	require.NotZero(t, e.ModifiedAt)
	require.Equal(t, "node-1", cat.Owner)
}

func TestBuildSkipsStagingFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"+StagingSuffix), []byte("b"), 0644))

	cat, err := Build(root, "node-1", zap.NewNop())
	require.NoError(t, err)
	require.Len(t, cat.Entries, 1)
	require.Contains(t, cat.Entries, "a.txt")
}

func TestBuildSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0644))
	if err := os.Symlink(filepath.Join(root, "a.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	cat, err := Build(root, "node-1", zap.NewNop())
	require.NoError(t, err)
	require.Len(t, cat.Entries, 1)
	require.Contains(t, cat.Entries, "a.txt")
}

func TestBuildEmptyDir(t *testing.T) {
	cat, err := Build(t.TempDir(), "node-1", zap.NewNop())
	require.NoError(t, err)
	require.Empty(t, cat.Entries)
}

func TestBuildMissingRoot(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "nope"), "node-1", zap.NewNop())
	require.Error(t, err)
}
