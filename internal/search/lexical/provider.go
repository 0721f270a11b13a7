// Package lexical implements keyword search over entry titles, summaries and
// tags. It needs no embedding provider and serves as the terminal fallback of
// the provider chain.
package lexical

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"

	"github.com/helioscale/sdkdex/internal/catalog"
	"github.com/helioscale/sdkdex/internal/chunker"
	"github.com/helioscale/sdkdex/internal/search"
)

// Name identifies the lexical provider in the chain configuration.
const Name = "lexical"

// indexDoc is the shape stored per entry in the in-memory index, keyed by the
// entry URI.
type indexDoc struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Tags    string `json:"tags"`
}

// Provider matches queries against catalog text with fuzzy and prefix
// matching. The index lives entirely in memory and is built once at
// construction.
type Provider struct {
	cat           *catalog.Catalog
	idx           bleve.Index
	maxQueryChars int
}

var _ search.Provider = (*Provider)(nil)

// New builds the in-memory lexical index over the catalog.
func New(cat *catalog.Catalog, maxQueryChars int) (*Provider, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create lexical index: %w", err)
	}

	batch := idx.NewBatch()
	for _, e := range cat.Entries() {
		doc := indexDoc{
			Title:   e.Title,
			Summary: e.Summary,
			Tags:    strings.Join(e.Tags, " "),
		}
		if err := batch.Index(e.URI, doc); err != nil {
			return nil, fmt.Errorf("index entry %q: %w", e.URI, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("populate lexical index: %w", err)
	}

	return &Provider{cat: cat, idx: idx, maxQueryChars: maxQueryChars}, nil
}

// Name implements search.Provider.
func (p *Provider) Name() string { return Name }

// Search implements search.Provider. Terms match with edit distance 1 and as
// prefixes, so partial and lightly misspelled queries still land.
func (p *Provider) Search(ctx context.Context, query string, scope catalog.Scope, limit int) ([]search.Result, error) {
	query = chunker.Truncate(chunker.Normalize(query), p.maxQueryChars)
	if query == "" {
		return nil, nil
	}

	fuzzy := bleve.NewMatchQuery(query)
	fuzzy.SetFuzziness(1)
	prefix := bleve.NewPrefixQuery(strings.ToLower(query))

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(fuzzy, prefix))
	// Scope is applied after matching, so ask for the whole catalog and trim
	// at the end.
	req.Size = p.cat.Len()

	res, err := p.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	var results []search.Result
	for _, hit := range res.Hits {
		entry, ok := p.cat.ByURI(hit.ID)
		if !ok || !scope.Matches(entry) {
			continue
		}
		results = append(results, search.Result{Entry: entry, Score: hit.Score})
	}
	return search.Truncate(results, limit), nil
}

// Close releases the index resources.
func (p *Provider) Close() error {
	return p.idx.Close()
}
