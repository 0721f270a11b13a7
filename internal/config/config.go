// Package config loads the sdkdex configuration from YAML by environment
// name. Every knob has a default; an absent value never fails, it falls back.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the sdkdex engine configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Search    SearchConfig    `yaml:"search"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Cache     CacheConfig     `yaml:"cache"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig holds the operational HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CatalogConfig points at the pre-built catalog snapshot.
type CatalogConfig struct {
	SnapshotPath string `yaml:"snapshot_path"`
}

// SearchConfig holds provider-chain and ranking settings. MinScore is a
// pointer so an explicit 0 (no threshold) is distinct from an absent value.
type SearchConfig struct {
	Provider      string   `yaml:"provider"` // auto, remote, local, lexical
	Fallback      string   `yaml:"fallback"` // lexical, local, remote, none
	MinScore      *float64 `yaml:"min_score"`
	MaxResults    int      `yaml:"max_results"`
	MaxQueryChars int      `yaml:"max_query_chars"`
}

// ChunkingConfig bounds the embedding pipeline.
type ChunkingConfig struct {
	Size            int `yaml:"size"`
	Overlap         int `yaml:"overlap"`
	MaxChunksPerDoc int `yaml:"max_chunks_per_doc"`
	MaxItemChars    int `yaml:"max_item_chars"`
}

// CacheConfig holds vector-index cache settings.
type CacheConfig struct {
	Backend      string      `yaml:"backend"` // disk, redis
	Dir          string      `yaml:"dir"`
	ForceRebuild bool        `yaml:"force_rebuild"`
	Redis        RedisConfig `yaml:"redis"`
}

// RedisConfig holds connection settings for the Redis cache backend.
type RedisConfig struct {
	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	KeyPrefix string   `yaml:"key_prefix"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Remote RemoteProviderConfig `yaml:"remote"`
	Local  LocalProviderConfig  `yaml:"local"`
}

// RemoteProviderConfig configures the HTTP embedding API provider.
type RemoteProviderConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

// LocalProviderConfig configures the on-device model server provider.
type LocalProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads configuration from a YAML file by environment name (local, dev,
// prod). A missing file yields the defaults rather than an error.
func Load(env string) (Config, error) {
	var cfg Config

	configPath := findConfigPath(env)
	data, err := os.ReadFile(filepath.Clean(configPath))
	switch {
	case os.IsNotExist(err):
		// All settings have defaults; run without a file.
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	default:
		data = expandEnvVars(data)
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8480
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Catalog.SnapshotPath == "" {
		c.Catalog.SnapshotPath = "catalog.json"
	}
	if c.Search.Provider == "" {
		c.Search.Provider = "auto"
	}
	if c.Search.Fallback == "" {
		c.Search.Fallback = "lexical"
	}
	if c.Search.MinScore == nil {
		minScore := 0.3
		c.Search.MinScore = &minScore
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 20
	}
	if c.Search.MaxQueryChars <= 0 {
		c.Search.MaxQueryChars = 2000
	}
	if c.Chunking.Size <= 0 {
		c.Chunking.Size = 1000
	}
	if c.Chunking.Overlap <= 0 {
		c.Chunking.Overlap = 100
	}
	if c.Chunking.MaxChunksPerDoc <= 0 {
		c.Chunking.MaxChunksPerDoc = 32
	}
	if c.Chunking.MaxItemChars <= 0 {
		c.Chunking.MaxItemChars = 8000
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "disk"
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = filepath.Join(".sdkdex", "cache")
	}
	if c.Cache.Redis.KeyPrefix == "" {
		c.Cache.Redis.KeyPrefix = "sdkdex:"
	}
	if c.Embedding.Remote.BaseURL == "" {
		c.Embedding.Remote.BaseURL = "https://api.openai.com/v1"
	}
	if c.Embedding.Remote.Model == "" {
		c.Embedding.Remote.Model = "text-embedding-3-small"
	}
	if c.Embedding.Remote.BatchSize <= 0 {
		c.Embedding.Remote.BatchSize = 32
	}
	if c.Embedding.Local.BaseURL == "" {
		c.Embedding.Local.BaseURL = "http://localhost:11434"
	}
	if c.Embedding.Local.Model == "" {
		c.Embedding.Local.Model = "nomic-embed-text"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Search.Provider {
	case "auto", "remote", "local", "lexical":
	default:
		return fmt.Errorf("search.provider must be auto, remote, local, or lexical, got %q", c.Search.Provider)
	}
	switch c.Search.Fallback {
	case "lexical", "local", "remote", "none":
	default:
		return fmt.Errorf("search.fallback must be lexical, local, remote, or none, got %q", c.Search.Fallback)
	}
	if s := *c.Search.MinScore; s < 0 || s >= 1 {
		return fmt.Errorf("search.min_score must be in [0, 1), got %v", s)
	}
	switch c.Cache.Backend {
	case "disk":
	case "redis":
		if len(c.Cache.Redis.Addrs) == 0 {
			return fmt.Errorf("cache.redis.addrs is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be disk or redis, got %q", c.Cache.Backend)
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap (%d) must be smaller than chunking.size (%d)",
			c.Chunking.Overlap, c.Chunking.Size)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
