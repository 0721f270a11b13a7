package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Search.Provider != "auto" {
		t.Errorf("default provider = %q, want auto", cfg.Search.Provider)
	}
	if cfg.Search.Fallback != "lexical" {
		t.Errorf("default fallback = %q, want lexical", cfg.Search.Fallback)
	}
	if cfg.Search.MinScore == nil || *cfg.Search.MinScore != 0.3 {
		t.Errorf("default min score = %v, want 0.3", cfg.Search.MinScore)
	}
	if cfg.Chunking.Size != 1000 || cfg.Chunking.Overlap != 100 {
		t.Errorf("chunking defaults = %+v", cfg.Chunking)
	}
	if cfg.Cache.Backend != "disk" {
		t.Errorf("default cache backend = %q, want disk", cfg.Cache.Backend)
	}
	if cfg.Embedding.Remote.BatchSize != 32 {
		t.Errorf("default batch size = %d, want 32", cfg.Embedding.Remote.BatchSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestApplyDefaults_ExplicitZeroMinScoreKept(t *testing.T) {
	var cfg Config
	zero := 0.0
	cfg.Search.MinScore = &zero
	cfg.ApplyDefaults()

	if *cfg.Search.MinScore != 0 {
		t.Errorf("min score = %v, explicit 0 must not be coerced to the default", *cfg.Search.MinScore)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("min_score 0 must validate: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad provider", func(c *Config) { c.Search.Provider = "hnsw" }},
		{"bad fallback", func(c *Config) { c.Search.Fallback = "bm25" }},
		{"min score out of range", func(c *Config) { s := 1.5; c.Search.MinScore = &s }},
		{"bad cache backend", func(c *Config) { c.Cache.Backend = "s3" }},
		{"redis without addrs", func(c *Config) { c.Cache.Backend = "redis" }},
		{"overlap >= size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			cfg.ApplyDefaults()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SDKDEX_TEST_KEY", "secret-key")

	yaml := `
embedding:
  remote:
    api_key: ${SDKDEX_TEST_KEY}
    model: ${SDKDEX_TEST_MODEL:-fallback-model}
`
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", "test.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.Remote.APIKey != "secret-key" {
		t.Errorf("api_key = %q, want expanded env value", cfg.Embedding.Remote.APIKey)
	}
	if cfg.Embedding.Remote.Model != "fallback-model" {
		t.Errorf("model = %q, want default from ${VAR:-default}", cfg.Embedding.Remote.Model)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	wd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("nonexistent")
	if err != nil {
		t.Fatalf("Load without file should fall back to defaults: %v", err)
	}
	if cfg.Search.Provider != "auto" {
		t.Errorf("provider = %q, want auto", cfg.Search.Provider)
	}
}
