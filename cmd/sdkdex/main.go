package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/helioscale/sdkdex/internal/catalog"
	"github.com/helioscale/sdkdex/internal/chunker"
	"github.com/helioscale/sdkdex/internal/config"
	"github.com/helioscale/sdkdex/internal/domain"
	"github.com/helioscale/sdkdex/internal/embedding"
	localEmb "github.com/helioscale/sdkdex/internal/embedding/local"
	openaiEmb "github.com/helioscale/sdkdex/internal/embedding/openai"
	logpkg "github.com/helioscale/sdkdex/internal/logger"
	"github.com/helioscale/sdkdex/internal/metrics"
	"github.com/helioscale/sdkdex/internal/search"
	"github.com/helioscale/sdkdex/internal/search/lexical"
	"github.com/helioscale/sdkdex/internal/search/vector"
	chiTransport "github.com/helioscale/sdkdex/internal/transport/chi"
	"github.com/helioscale/sdkdex/internal/vectorcache"
	cacheRedis "github.com/helioscale/sdkdex/internal/vectorcache/redis"
	"github.com/helioscale/sdkdex/internal/version"
	"github.com/helioscale/sdkdex/internal/versiongate"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting sdkdex retrieval server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("search_provider", cfg.Search.Provider),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	cat, err := catalog.LoadSnapshot(cfg.Catalog.SnapshotPath)
	if err != nil {
		logger.Fatal("Failed to load catalog snapshot",
			zap.String("path", cfg.Catalog.SnapshotPath), zap.Error(err))
	}
	logger.Info("Catalog loaded", zap.Int("entries", cat.Len()))

	metrics.Register()

	// Select the vector cache backend
	var cacheStore vectorcache.Store
	switch cfg.Cache.Backend {
	case "disk":
		cacheStore = vectorcache.NewDiskStore(cfg.Cache.Dir, logger)
	case "redis":
		store, err := cacheRedis.NewStore(cacheRedis.Config{
			Addrs:     cfg.Cache.Redis.Addrs,
			Username:  cfg.Cache.Redis.Username,
			Password:  cfg.Cache.Redis.Password,
			KeyPrefix: cfg.Cache.Redis.KeyPrefix,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create redis cache store", zap.Error(err))
		}
		defer store.Close()
		cacheStore = store
	default:
		logger.Fatal("Unknown cache backend", zap.String("backend", cfg.Cache.Backend))
	}

	chunkCfg := chunker.Config{
		Size:            cfg.Chunking.Size,
		Overlap:         cfg.Chunking.Overlap,
		MaxChunksPerDoc: cfg.Chunking.MaxChunksPerDoc,
		MaxItemChars:    cfg.Chunking.MaxItemChars,
	}

	embedders := embedding.NewFactory(cfg.Embedding, logger)

	// Provider constructor, the composition root for the search chain. Vector
	// providers get their own builder bound to their embedder and model.
	construct := func(name string) (search.Provider, error) {
		switch name {
		case lexical.Name:
			return lexical.New(cat, cfg.Search.MaxQueryChars)
		case openaiEmb.Name, localEmb.Name:
			emb, err := embedders.Provider(name)
			if err != nil {
				return nil, err
			}
			builder := vectorcache.NewBuilder(vectorcache.BuilderConfig{
				Store:     cacheStore,
				Embedder:  emb,
				Provider:  name,
				Model:     embedders.Model(name),
				ChunkCfg:  chunkCfg,
				BatchSize: embedders.BatchSize(name),
				Force:     cfg.Cache.ForceRebuild,
				Logger:    logger,
			})
			return vector.New(vector.Config{
				Name:          name,
				Catalog:       cat,
				Builder:       builder,
				Embedder:      emb,
				MinScore:      *cfg.Search.MinScore,
				MaxQueryChars: cfg.Search.MaxQueryChars,
			}), nil
		default:
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, name)
		}
	}

	orchestrator := search.NewOrchestrator(cat, construct, search.Options{
		Preference:       cfg.Search.Provider,
		Fallback:         cfg.Search.Fallback,
		RemoteConfigured: embedders.RemoteConfigured(),
		MaxResults:       cfg.Search.MaxResults,
	}, logger)

	gate := versiongate.NewGate(cat, versiongate.PoliciesFromCatalog(cat))

	server := chiTransport.NewServer(orchestrator, gate, cat, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain
// text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogMiddleware emits a canonical log line per request and propagates
// X-Request-ID.
func requestLogMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
