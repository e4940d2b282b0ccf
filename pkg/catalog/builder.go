package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Build walks root and snapshots every regular file into a catalog.
// Symlinks and staging files are skipped. An unreadable file is logged
// and skipped; the next cycle retries it.
func Build(root, owner string, logger *zap.Logger) (Catalog, error) {
	cat := Catalog{
		Owner:       owner,
		GeneratedAt: time.Now(),
		Entries:     map[string]FileEntry{},
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("catalog_walk_error", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if strings.HasSuffix(d.Name(), StagingSuffix) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			logger.Warn("catalog_stat_error", zap.String("path", rel), zap.Error(err))
			return nil
		}
		sum, err := hashFile(path)
		if err != nil {
			logger.Warn("catalog_hash_error", zap.String("path", rel), zap.Error(err))
			return nil
		}

		cat.Entries[rel] = FileEntry{
			Path:       rel,
			Size:       info.Size(),
			Hash:       sum,
			ModifiedAt: info.ModTime().UnixNano(),
		}
		return nil
	})
	if err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
