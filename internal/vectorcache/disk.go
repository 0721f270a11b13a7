package vectorcache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/helioscale/sdkdex/internal/metrics"
)

// DiskStore keeps one JSON record file per (provider, model) pair in a cache
// directory. The filename carries a key prefix so providers and models never
// collide and a stale key never resolves to a file.
type DiskStore struct {
	dir    string
	logger *zap.Logger
}

var _ Store = (*DiskStore)(nil)

// NewDiskStore creates a disk-backed record store rooted at dir.
func NewDiskStore(dir string, logger *zap.Logger) *DiskStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiskStore{dir: dir, logger: logger}
}

// Load reads the record for provider+model+expectedKey. Any failure (missing
// file, unparseable JSON, key mismatch) is a miss, never an error.
func (s *DiskStore) Load(_ context.Context, provider, model, expectedKey string) (*Record, bool) {
	path := filepath.Join(s.dir, fileName(provider, model, expectedKey))

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read vector cache file", zap.String("path", path), zap.Error(err))
		}
		metrics.VectorCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("Corrupt vector cache file, treating as miss",
			zap.String("path", path), zap.Error(err))
		metrics.VectorCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	if rec.CacheKey != expectedKey || len(rec.Items) != len(rec.Vectors) {
		s.logger.Info("Vector cache record invalid, rebuilding",
			zap.String("path", path),
			zap.Bool("key_mismatch", rec.CacheKey != expectedKey))
		metrics.VectorCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.VectorCacheTotal.WithLabelValues("hit").Inc()
	return &rec, true
}

// Save persists a record with one atomic write (temp file + rename). Writes
// are idempotent for a given cache key, so concurrent writers are harmless.
func (s *DiskStore) Save(_ context.Context, rec *Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", s.dir, err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal vector cache record: %w", err)
	}

	path := filepath.Join(s.dir, fileName(rec.Meta.Provider, rec.Meta.Model, rec.CacheKey))
	tmp, err := os.CreateTemp(s.dir, ".vindex-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename cache file into place: %w", err)
	}
	return nil
}

// fileName derives the record filename for a provider+model+key. The key
// prefix keeps records distinct across catalog generations.
func fileName(provider, model, key string) string {
	prefix := key
	if len(prefix) > 12 {
		prefix = prefix[:12]
	}
	return fmt.Sprintf("%s-%s-%s.json", provider, SanitizeModel(model), prefix)
}
