// Package search orchestrates the provider chain that answers catalog
// queries: a primary provider, an optional fallback, and list mode for
// queries with no text.
package search

import (
	"context"

	"github.com/helioscale/sdkdex/internal/catalog"
)

// Result is one ranked catalog reference. Full bodies are never returned.
type Result struct {
	Entry catalog.Entry
	Score float64
}

// Provider answers one query against the catalog. Implementations are safe
// for concurrent use.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, scope catalog.Scope, limit int) ([]Result, error)
}

// Truncate bounds a result slice to limit when limit is positive.
func Truncate(results []Result, limit int) []Result {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
