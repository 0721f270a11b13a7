// Package redis persists vector index records in Redis for deployments that
// share one cache across replicas. The disk store remains the default.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/helioscale/sdkdex/internal/metrics"
	"github.com/helioscale/sdkdex/internal/vectorcache"
)

// Config holds connection parameters for the Redis record store.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// Store implements vectorcache.Store via rueidis.
type Store struct {
	client rueidis.Client
	prefix string
	logger *zap.Logger
}

var _ vectorcache.Store = (*Store)(nil)

// NewStore creates a Redis-backed record store.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, prefix: cfg.KeyPrefix, logger: logger}, nil
}

// NewStoreForTest wraps an existing client (used with the rueidis mock).
func NewStoreForTest(client rueidis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix, logger: zap.NewNop()}
}

// Close releases the client.
func (s *Store) Close() { s.client.Close() }

// Load fetches and verifies the record for provider+model. Backend errors,
// bad JSON, and key mismatches are all misses.
func (s *Store) Load(ctx context.Context, provider, model, expectedKey string) (*vectorcache.Record, bool) {
	key := s.key(provider, model)

	cmd := s.client.B().Get().Key(key).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			s.logger.Warn("Failed to load vector index record", zap.String("key", key), zap.Error(err))
		}
		metrics.VectorCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	var rec vectorcache.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("Corrupt vector index record, treating as miss",
			zap.String("key", key), zap.Error(err))
		metrics.VectorCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	if rec.CacheKey != expectedKey || len(rec.Items) != len(rec.Vectors) {
		metrics.VectorCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.VectorCacheTotal.WithLabelValues("hit").Inc()
	return &rec, true
}

// Save stores the record under its provider+model key. The write overwrites
// any previous generation; the cache key inside the record guards validity.
func (s *Store) Save(ctx context.Context, rec *vectorcache.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal vector index record: %w", err)
	}

	key := s.key(rec.Meta.Provider, rec.Meta.Model)
	cmd := s.client.B().Set().Key(key).Value(rueidis.BinaryString(data)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("store vector index record at %s: %w", key, err)
	}
	return nil
}

func (s *Store) key(provider, model string) string {
	return s.prefix + "vindex:" + provider + ":" + vectorcache.SanitizeModel(model)
}
