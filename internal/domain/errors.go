package domain

import "errors"

var (
	// ErrNotFound signals a missing catalog entry.
	ErrNotFound = errors.New("not found")
	// ErrMissingAPIKey signals that a credentialed provider was selected without a key.
	ErrMissingAPIKey = errors.New("embedding API key is not configured")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrUnknownProvider signals a provider name with no registered constructor.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrInvalidCatalog signals a catalog that failed construction-time validation.
	ErrInvalidCatalog = errors.New("invalid catalog")
)
