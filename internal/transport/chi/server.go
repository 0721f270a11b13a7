// Package chi exposes the retrieval engine over HTTP: a search endpoint, a
// pinned-entry listing, health, and Prometheus metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/helioscale/sdkdex/internal/catalog"
	"github.com/helioscale/sdkdex/internal/domain"
	"github.com/helioscale/sdkdex/internal/search"
	"github.com/helioscale/sdkdex/internal/versiongate"
)

// Searcher answers queries. Satisfied by *search.Orchestrator.
type Searcher interface {
	Search(ctx context.Context, query string, scope catalog.Scope, limit int) []search.Result
}

// Gate decides whether a query may search at all. Satisfied by
// *versiongate.Gate.
type Gate interface {
	Check(req versiongate.Request) versiongate.Decision
}

// Server is the HTTP transport over the search orchestrator.
type Server struct {
	searcher Searcher
	gate     Gate
	cat      *catalog.Catalog
	logger   *zap.Logger
}

// NewServer creates the HTTP API server.
func NewServer(searcher Searcher, gate Gate, cat *catalog.Catalog, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{searcher: searcher, gate: gate, cat: cat, logger: logger}
}

// Routes mounts all endpoints on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/v1/search", s.handleSearch)
	r.Get("/v1/catalog/entry", s.handleEntry)
	r.Get("/v1/catalog/pinned", s.handlePinned)
	return r
}

// entryRef is the wire shape of one result: a reference, never a full body.
type entryRef struct {
	URI      string  `json:"uri"`
	Type     string  `json:"type"`
	Title    string  `json:"title"`
	Summary  string  `json:"summary,omitempty"`
	Product  string  `json:"product,omitempty"`
	Edition  string  `json:"edition,omitempty"`
	Platform string  `json:"platform,omitempty"`
	Version  string  `json:"version,omitempty"`
	Score    float64 `json:"score"`
}

type searchResponse struct {
	// Refusal carries the version-policy message when the gate rejects the
	// query; Results is empty in that case.
	Refusal     string     `json:"refusal,omitempty"`
	LegacyLinks []string   `json:"legacy_links,omitempty"`
	Results     []entryRef `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := catalog.Scope{
		Product:  q.Get("product"),
		Edition:  q.Get("edition"),
		Platform: q.Get("platform"),
		Version:  q.Get("version"),
	}
	query := q.Get("q")

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	decision := s.gate.Check(versiongate.Request{
		Product:  scope.Product,
		Version:  scope.Version,
		Edition:  scope.Edition,
		Platform: scope.Platform,
		Hints:    query,
	})
	if !decision.OK {
		writeJSON(w, http.StatusOK, searchResponse{
			Refusal:     decision.Message,
			LegacyLinks: decision.LegacyLinks,
			Results:     []entryRef{},
		})
		return
	}

	results := s.searcher.Search(r.Context(), query, scope, limit)

	refs := make([]entryRef, len(results))
	for i, res := range results {
		refs[i] = toRef(res.Entry, res.Score)
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: refs})
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "uri is required"})
		return
	}
	entry, err := s.cat.Lookup(uri)
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "entry not found"})
		return
	}
	writeJSON(w, http.StatusOK, toRef(entry, 0))
}

func (s *Server) handlePinned(w http.ResponseWriter, _ *http.Request) {
	pinned := s.cat.Pinned()
	refs := make([]entryRef, len(pinned))
	for i, e := range pinned {
		refs[i] = toRef(e, 0)
	}
	writeJSON(w, http.StatusOK, map[string][]entryRef{"results": refs})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"entries": s.cat.Len(),
	})
}

func toRef(e catalog.Entry, score float64) entryRef {
	return entryRef{
		URI:      e.URI,
		Type:     string(e.Type),
		Title:    e.Title,
		Summary:  e.Summary,
		Product:  e.Product,
		Edition:  e.Edition,
		Platform: e.Platform,
		Version:  e.Version,
		Score:    score,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
