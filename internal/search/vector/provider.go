// Package vector implements semantic search over the cached chunk embeddings
// of one embedding provider.
package vector

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/helioscale/sdkdex/internal/catalog"
	"github.com/helioscale/sdkdex/internal/chunker"
	"github.com/helioscale/sdkdex/internal/domain"
	"github.com/helioscale/sdkdex/internal/search"
	"github.com/helioscale/sdkdex/internal/vectorcache"
)

// Provider ranks catalog entries by cosine similarity between the query
// vector and the stored chunk vectors. The index is built (or loaded from
// cache) on first use and memoized; concurrent first callers share a single
// in-flight build.
type Provider struct {
	name          string
	cat           *catalog.Catalog
	builder       *vectorcache.Builder
	embedder      domain.Embedder
	minScore      float64
	maxQueryChars int

	group singleflight.Group
	mu    sync.Mutex
	idx   *vectorcache.Index
}

// Config wires a vector search provider.
type Config struct {
	Name          string // provider name in the chain: "remote" or "local"
	Catalog       *catalog.Catalog
	Builder       *vectorcache.Builder
	Embedder      domain.Embedder
	MinScore      float64
	MaxQueryChars int
}

var _ search.Provider = (*Provider)(nil)

// New creates a vector search provider.
func New(cfg Config) *Provider {
	return &Provider{
		name:          cfg.Name,
		cat:           cfg.Catalog,
		builder:       cfg.Builder,
		embedder:      cfg.Embedder,
		minScore:      cfg.MinScore,
		maxQueryChars: cfg.MaxQueryChars,
	}
}

// Name implements search.Provider.
func (p *Provider) Name() string { return p.name }

// Search implements search.Provider. A blank query has no semantic meaning
// and returns an empty result immediately. Each entry appears at most once,
// scored by its best-matching chunk.
func (p *Provider) Search(ctx context.Context, query string, scope catalog.Scope, limit int) ([]search.Result, error) {
	query = chunker.Truncate(chunker.Normalize(query), p.maxQueryChars)
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	res, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	qv := vectorcache.Normalize(res.Embedding)

	idx, err := p.index(ctx)
	if err != nil {
		return nil, err
	}

	// Dedup by entry URI, keeping the highest-scoring chunk. Strictly-greater
	// replacement keeps the earlier chunk on ties, so ordering stays stable
	// over catalog input order.
	var results []search.Result
	best := make(map[string]int)
	for i, vec := range idx.Vectors {
		score := vectorcache.Dot(qv, vec)
		if score < p.minScore {
			continue
		}

		entry, ok := p.cat.ByURI(idx.Items[i].URI)
		if !ok || !scope.Matches(entry) {
			continue
		}

		if at, seen := best[entry.URI]; seen {
			if score > results[at].Score {
				results[at].Score = score
			}
			continue
		}
		best[entry.URI] = len(results)
		results = append(results, search.Result{Entry: entry, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return search.Truncate(results, limit), nil
}

// index returns the memoized vector index, building it at most once even
// under concurrent first queries.
func (p *Provider) index(ctx context.Context) (*vectorcache.Index, error) {
	p.mu.Lock()
	idx := p.idx
	p.mu.Unlock()
	if idx != nil {
		return idx, nil
	}

	v, err, _ := p.group.Do("index", func() (any, error) {
		p.mu.Lock()
		cached := p.idx
		p.mu.Unlock()
		if cached != nil {
			return cached, nil
		}

		built, err := p.builder.Build(ctx, p.cat)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.idx = built
		p.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*vectorcache.Index), nil
}
