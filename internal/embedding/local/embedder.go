// Package local implements the on-device embedding provider against an
// Ollama-compatible model server. No remote network, no credential; the model
// is loaded by the server on first use.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/helioscale/sdkdex/internal/domain"
	"github.com/helioscale/sdkdex/internal/metrics"
)

// Name is the provider name the factory and the search chain use.
const Name = "local"

// Embedder is the local model server provider. Readiness is probed lazily
// and only success is memoized: a failed probe is that call's failure, and
// the next call probes again so the provider recovers with the server.
type Embedder struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger

	mu    sync.Mutex
	ready bool
}

// Config holds the local provider settings.
type Config struct {
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

var _ domain.Embedder = (*Embedder)(nil)

// NewEmbedder creates the local provider. Construction never touches the
// model server; the first Embed call does.
func NewEmbedder(cfg *Config) *Embedder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

// Model returns the configured model identifier.
func (e *Embedder) Model() string { return e.model }

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed implements domain.Embedder against the model server's embeddings
// endpoint. Batch requests go through domain.BatchFallback; the server embeds
// one prompt per call.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := e.ensureReady(ctx); err != nil {
		return domain.EmbeddingResult{}, err
	}

	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(Name, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(Name, e.model, "transport").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("local model server: %w: %w",
			err, domain.ErrEmbeddingProviderError)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.EmbeddingRequestsTotal.WithLabelValues(Name, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(Name, e.model, "api_error").Inc()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.EmbeddingResult{}, fmt.Errorf("local model server status %d: %s: %w",
			resp.StatusCode, detail, domain.ErrEmbeddingProviderError)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(Name, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(Name, e.model, "bad_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("decode embed response: %w: %w",
			err, domain.ErrEmbeddingProviderError)
	}
	if len(parsed.Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(Name, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(Name, e.model, "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("embed response has no embedding field: %w",
			domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(Name, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(Name, e.model).Observe(time.Since(start).Seconds())

	return domain.EmbeddingResult{Embedding: parsed.Embedding}, nil
}

// ensureReady probes the model server before the first embedding call. A
// successful probe is remembered for the process lifetime; a failed probe is
// returned to the caller and retried on the next call.
func (e *Embedder) ensureReady(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("build readiness request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("local model server unreachable at %s: %w: %w",
			e.baseURL, err, domain.ErrEmbeddingProviderError)
	}
	_ = resp.Body.Close()

	e.ready = true
	e.logger.Debug("Local model server ready",
		zap.String("base_url", e.baseURL), zap.String("model", e.model))
	return nil
}
