package vectorcache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/helioscale/sdkdex/internal/catalog"
	"github.com/helioscale/sdkdex/internal/chunker"
	"github.com/helioscale/sdkdex/internal/domain"
	"github.com/helioscale/sdkdex/internal/metrics"
)

// Builder produces the vector index for one embedding provider, loading from
// the record store when the cache key matches and re-embedding otherwise.
type Builder struct {
	store     Store
	embedder  domain.Embedder
	provider  string
	model     string
	chunkCfg  chunker.Config
	batchSize int
	force     bool
	logger    *zap.Logger
}

// BuilderConfig wires a Builder.
type BuilderConfig struct {
	Store     Store
	Embedder  domain.Embedder
	Provider  string
	Model     string
	ChunkCfg  chunker.Config
	BatchSize int
	Force     bool // bypass the load step even when a valid record exists
	Logger    *zap.Logger
}

// NewBuilder creates an index builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		store:     cfg.Store,
		embedder:  cfg.Embedder,
		provider:  cfg.Provider,
		model:     cfg.Model,
		chunkCfg:  cfg.ChunkCfg,
		batchSize: cfg.BatchSize,
		force:     cfg.Force,
		logger:    logger,
	}
}

// Build returns the vector index for the catalog: cached when the expected
// key matches, freshly embedded otherwise. All vectors are L2-normalized.
func (b *Builder) Build(ctx context.Context, cat *catalog.Catalog) (*Index, error) {
	key := Key(b.provider, b.model, cat.Signature(), b.chunkCfg)

	if !b.force {
		if rec, ok := b.store.Load(ctx, b.provider, b.model, key); ok {
			metrics.IndexBuildsTotal.WithLabelValues(b.provider, "cache_hit").Inc()
			return &Index{Items: rec.Items, Vectors: rec.Vectors}, nil
		}
	}

	items := chunker.Items(cat, b.chunkCfg)
	texts := make([]string, len(items))
	refs := make([]ItemRef, len(items))
	for i, it := range items {
		texts[i] = it.Text
		refs[i] = ItemRef{ID: it.ID, URI: it.URI}
	}

	vectors, err := b.embedAll(ctx, texts)
	if err != nil {
		metrics.IndexBuildsTotal.WithLabelValues(b.provider, "failed").Inc()
		return nil, fmt.Errorf("embed %d items: %w", len(texts), err)
	}
	for i, v := range vectors {
		vectors[i] = Normalize(v)
	}

	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	rec := &Record{
		CacheKey: key,
		Meta: Meta{
			Provider:   b.provider,
			Model:      b.model,
			BuiltAt:    time.Now().UTC(),
			ItemCount:  len(refs),
			Dimensions: dims,
		},
		Items:   refs,
		Vectors: vectors,
	}
	if err := b.store.Save(ctx, rec); err != nil {
		// A failed save only costs the next process a rebuild.
		b.logger.Warn("Failed to persist vector index record",
			zap.String("provider", b.provider), zap.Error(err))
	}

	metrics.IndexBuildsTotal.WithLabelValues(b.provider, "built").Inc()
	b.logger.Info("Vector index built",
		zap.String("provider", b.provider),
		zap.String("model", b.model),
		zap.Int("items", len(refs)),
		zap.Int("dimensions", dims))

	return &Index{Items: refs, Vectors: vectors}, nil
}

// embedAll prefers the batch path and degrades to per-text calls on any batch
// failure, so one transient batch error costs latency, not the whole build.
func (b *Builder) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	be, hasBatch := b.embedder.(domain.BatchEmbedder)
	if !hasBatch || b.batchSize <= 1 {
		res, err := domain.BatchFallback(ctx, b.embedder, texts)
		if err != nil {
			return nil, err
		}
		return res.Embeddings, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		res, err := be.BatchEmbed(ctx, batch)
		if err != nil {
			b.logger.Warn("Batch embedding failed, falling back to single calls",
				zap.String("provider", b.provider),
				zap.Int("batch_start", start),
				zap.Error(err))
			single, err := domain.BatchFallback(ctx, b.embedder, batch)
			if err != nil {
				return nil, err
			}
			vectors = append(vectors, single.Embeddings...)
			continue
		}
		if len(res.Embeddings) != len(batch) {
			return nil, fmt.Errorf("batch returned %d vectors for %d texts: %w",
				len(res.Embeddings), len(batch), domain.ErrEmbeddingProviderError)
		}
		vectors = append(vectors, res.Embeddings...)
	}
	return vectors, nil
}
