// Package embedding constructs embedding providers by name and caches them
// for the process lifetime.
package embedding

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/helioscale/sdkdex/internal/config"
	"github.com/helioscale/sdkdex/internal/domain"
	"github.com/helioscale/sdkdex/internal/embedding/local"
	"github.com/helioscale/sdkdex/internal/embedding/openai"
)

// Factory builds and memoizes embedding providers. A provider is constructed
// on first request, so configuration errors (a missing API key) surface only
// when that provider is actually selected.
type Factory struct {
	cfg    config.EmbeddingConfig
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]domain.Embedder
}

// NewFactory creates a provider factory.
func NewFactory(cfg config.EmbeddingConfig, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
		cache:  make(map[string]domain.Embedder),
	}
}

// Provider returns the embedder for a provider name, constructing it once.
func (f *Factory) Provider(name string) (domain.Embedder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if e, ok := f.cache[name]; ok {
		return e, nil
	}

	var (
		e   domain.Embedder
		err error
	)
	switch name {
	case openai.Name:
		e, err = openai.NewEmbedder(&openai.Config{
			APIKey:  f.cfg.Remote.APIKey,
			BaseURL: f.cfg.Remote.BaseURL,
			Model:   f.cfg.Remote.Model,
			Logger:  f.logger,
		})
	case local.Name:
		e = local.NewEmbedder(&local.Config{
			BaseURL: f.cfg.Local.BaseURL,
			Model:   f.cfg.Local.Model,
			Logger:  f.logger,
		})
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name)
	}
	if err != nil {
		return nil, fmt.Errorf("construct %s provider: %w", name, err)
	}

	f.cache[name] = e
	return e, nil
}

// Model returns the model identifier configured for a provider name. Used for
// cache keying before the provider itself is constructed.
func (f *Factory) Model(name string) string {
	switch name {
	case openai.Name:
		return f.cfg.Remote.Model
	case local.Name:
		return f.cfg.Local.Model
	}
	return ""
}

// RemoteConfigured reports whether the remote provider has a credential. The
// "auto" preference resolves on this.
func (f *Factory) RemoteConfigured() bool {
	return f.cfg.Remote.APIKey != ""
}

// BatchSize returns the configured batch size for a provider name; 1 for
// providers without a native batch path.
func (f *Factory) BatchSize(name string) int {
	if name == openai.Name {
		return f.cfg.Remote.BatchSize
	}
	return 1
}
