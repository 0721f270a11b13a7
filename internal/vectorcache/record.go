// Package vectorcache persists chunk embeddings keyed by a deterministic
// content+config signature so unchanged catalogs are never re-embedded.
package vectorcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/helioscale/sdkdex/internal/chunker"
)

// ItemRef ties a stored vector back to its embedding item and catalog entry.
type ItemRef struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

// Meta describes how a record was built.
type Meta struct {
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	BuiltAt    time.Time `json:"built_at"`
	ItemCount  int       `json:"item_count"`
	Dimensions int       `json:"dimensions"`
}

// Record is one persisted vector index. It is valid if and only if its stored
// CacheKey equals the freshly computed expected key; any mismatch invalidates
// the whole record.
type Record struct {
	CacheKey string      `json:"cache_key"`
	Meta     Meta        `json:"meta"`
	Items    []ItemRef   `json:"items"`
	Vectors  [][]float32 `json:"vectors"`
}

// Index is the in-memory view served to the vector search provider.
type Index struct {
	Items   []ItemRef
	Vectors [][]float32
}

// Store persists vector index records. Load treats every failure mode
// (missing, unparseable, key mismatch) as absent, so callers always have a
// rebuild path.
type Store interface {
	Load(ctx context.Context, provider, model, expectedKey string) (*Record, bool)
	Save(ctx context.Context, rec *Record) error
}

// Key derives the cache key for a provider+model over a catalog signature and
// chunking configuration. Changing any input changes the key.
func Key(provider, model, catalogSignature string, chunkCfg chunker.Config) string {
	h := sha256.New()
	for _, field := range []string{provider, model, catalogSignature, chunkCfg.String()} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SanitizeModel maps a model identifier to a filesystem- and key-safe token.
func SanitizeModel(model string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, model)
}
