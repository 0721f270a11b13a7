package search

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/helioscale/sdkdex/internal/catalog"
	"github.com/helioscale/sdkdex/internal/metrics"
)

// Options configures chain resolution.
type Options struct {
	// Preference names the primary provider: "auto", "remote", "local", or
	// "lexical". "auto" resolves to remote when its credential is configured,
	// local otherwise.
	Preference string
	// Fallback names the provider appended after the primary when distinct:
	// "lexical", "local", "remote", or "none" to disable fallback.
	Fallback string
	// RemoteConfigured reports whether the remote provider has a credential.
	RemoteConfigured bool
	// MaxResults bounds result sets when the caller passes no limit.
	MaxResults int
}

// Constructor builds a provider by name. Called at most once per name.
type Constructor func(name string) (Provider, error)

// Orchestrator resolves the provider chain for each query and runs the first
// provider that succeeds. Providers are constructed lazily and cached for the
// process lifetime. Equal scores keep catalog insertion order: providers sort
// stably, so repeated identical queries return identical ordering.
type Orchestrator struct {
	cat       *catalog.Catalog
	construct Constructor
	opts      Options
	logger    *zap.Logger

	mu        sync.Mutex
	providers map[string]Provider
}

// NewOrchestrator creates a search orchestrator.
func NewOrchestrator(cat *catalog.Catalog, construct Constructor, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cat:       cat,
		construct: construct,
		opts:      opts,
		logger:    logger,
		providers: make(map[string]Provider),
	}
}

// Search answers one query. A blank query lists scope-matching entries in
// catalog order. Provider failures fall through the chain; if every provider
// fails the result is empty, never an error.
func (o *Orchestrator) Search(ctx context.Context, query string, scope catalog.Scope, limit int) []Result {
	if limit <= 0 {
		limit = o.opts.MaxResults
	}

	if strings.TrimSpace(query) == "" {
		return o.list(scope, limit)
	}

	for _, name := range o.Chain() {
		p, err := o.provider(name)
		if err != nil {
			o.logger.Warn("Search provider unavailable",
				zap.String("provider", name), zap.Error(err))
			metrics.SearchesTotal.WithLabelValues(name, "error").Inc()
			continue
		}

		results, err := p.Search(ctx, query, scope, limit)
		if err != nil {
			o.logger.Warn("Search provider failed, trying next in chain",
				zap.String("provider", name), zap.Error(err))
			metrics.SearchesTotal.WithLabelValues(name, "error").Inc()
			continue
		}

		metrics.SearchesTotal.WithLabelValues(name, "ok").Inc()
		return results
	}

	o.logger.Warn("All search providers failed", zap.String("query", query))
	return nil
}

// Chain resolves the ordered provider names for the current configuration.
func (o *Orchestrator) Chain() []string {
	primary := o.opts.Preference
	if primary == "" || primary == "auto" {
		if o.opts.RemoteConfigured {
			primary = "remote"
		} else {
			primary = "local"
		}
	}

	chain := []string{primary}
	if fb := o.opts.Fallback; fb != "" && fb != "none" && fb != primary {
		chain = append(chain, fb)
	}
	return chain
}

// list returns all scope-matching entries in catalog order: "search with no
// query" means "list".
func (o *Orchestrator) list(scope catalog.Scope, limit int) []Result {
	var out []Result
	for _, e := range o.cat.Entries() {
		if !scope.Matches(e) {
			continue
		}
		out = append(out, Result{Entry: e})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (o *Orchestrator) provider(name string) (Provider, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if p, ok := o.providers[name]; ok {
		return p, nil
	}
	p, err := o.construct(name)
	if err != nil {
		return nil, err
	}
	o.providers[name] = p
	return p, nil
}
