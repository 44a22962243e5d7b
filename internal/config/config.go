// Package config loads and validates salonsearch configuration.
//
// Precedence, lowest to highest:
//  1. Built-in defaults
//  2. Config file (salonsearch.yaml in the data dir, or --config path)
//  3. Environment variables (SALONSEARCH_*, plus OPENAI_API_KEY via .env)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete salonsearch configuration.
type Config struct {
	Version    int              `yaml:"version"`
	DataDir    string           `yaml:"data_dir"`
	Search     SearchConfig     `yaml:"search"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Vector     VectorConfig     `yaml:"vector"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SearchConfig configures query-time behavior.
type SearchConfig struct {
	// DefaultLimit is the default number of results (default: 20).
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit caps the number of results a caller may request (default: 100).
	MaxLimit int `yaml:"max_limit"`

	// SimilarityThreshold is the vector score floor (default: 0.3).
	// Queries containing CJK characters use a lowered floor, clamped at 0.2,
	// because embeddings for CJK content score systematically lower.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// ChunkingConfig configures article chunking for embedding.
type ChunkingConfig struct {
	// ChunkSize is the soft token budget per chunk (default: 800).
	ChunkSize int `yaml:"chunk_size"`

	// Overlap enables carrying trailing sentences into the next chunk
	// when > 0 (default: 100).
	Overlap int `yaml:"overlap"`

	// MinChunkChars discards chunks shorter than this many characters
	// (default: 50).
	MinChunkChars int `yaml:"min_chunk_chars"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	BaseURL    string        `yaml:"base_url"`    // OpenAI-compatible endpoint
	APIKeyEnv  string        `yaml:"api_key_env"` // env var holding the key
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`

	// Query embedding cache (spec: TTL-boxed, size-bounded).
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// VectorConfig selects and configures the vector backend.
type VectorConfig struct {
	// Backend is "hnsw" (local, default) or "qdrant" (remote gRPC).
	Backend string `yaml:"backend"`

	// QdrantAddr is the Qdrant gRPC address (default: localhost:6334).
	QdrantAddr string `yaml:"qdrant_addr"`

	// Collection is the Qdrant collection name (default: salon_chunks).
	Collection string `yaml:"collection"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Version: 1,
		DataDir: DefaultDataDir(),
		Search: SearchConfig{
			DefaultLimit:        20,
			MaxLimit:            100,
			SimilarityThreshold: 0.3,
		},
		Chunking: ChunkingConfig{
			ChunkSize:     800,
			Overlap:       100,
			MinChunkChars: 50,
		},
		Embeddings: EmbeddingsConfig{
			BaseURL:    "https://api.openai.com/v1",
			APIKeyEnv:  "OPENAI_API_KEY",
			Model:      "text-embedding-3-large",
			Dimensions: 3072,
			BatchSize:  10,
			Timeout:    30 * time.Second,
			CacheSize:  100,
			CacheTTL:   30 * time.Minute,
		},
		Vector: VectorConfig{
			Backend:    "hnsw",
			QdrantAddr: "localhost:6334",
			Collection: "salon_chunks",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultDataDir returns ~/.salonsearch, falling back to the temp dir.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".salonsearch")
	}
	return filepath.Join(home, ".salonsearch")
}

// Load reads configuration from the given path (empty means defaults only),
// then applies environment overrides. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies SALONSEARCH_* environment overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("SALONSEARCH_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SALONSEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SALONSEARCH_VECTOR_BACKEND"); v != "" {
		c.Vector.Backend = v
	}
	if v := os.Getenv("SALONSEARCH_QDRANT_ADDR"); v != "" {
		c.Vector.QdrantAddr = v
	}
	if v := os.Getenv("SALONSEARCH_EMBED_BASE_URL"); v != "" {
		c.Embeddings.BaseURL = v
	}
	if v := os.Getenv("SALONSEARCH_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("SALONSEARCH_EMBED_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Embeddings.Dimensions = n
		}
	}
	if v := os.Getenv("SALONSEARCH_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			c.Search.SimilarityThreshold = f
		}
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit (%d) must be >= search.default_limit (%d)",
			c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.SimilarityThreshold < 0 || c.Search.SimilarityThreshold > 1 {
		return fmt.Errorf("search.similarity_threshold must be in [0,1], got %f", c.Search.SimilarityThreshold)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking.overlap must be >= 0, got %d", c.Chunking.Overlap)
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}
	switch c.Vector.Backend {
	case "hnsw", "qdrant":
	default:
		return fmt.Errorf("vector.backend must be hnsw or qdrant, got %q", c.Vector.Backend)
	}
	return nil
}

// MetadataPath returns the SQLite metadata database path.
func (c *Config) MetadataPath() string {
	return filepath.Join(c.DataDir, "metadata.db")
}

// LexicalIndexPath returns the bleve index directory.
func (c *Config) LexicalIndexPath() string {
	return filepath.Join(c.DataDir, "lexical.bleve")
}

// VectorIndexPath returns the HNSW vector store path.
func (c *Config) VectorIndexPath() string {
	return filepath.Join(c.DataDir, "vectors.hnsw")
}

// LockPath returns the ingestion lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, ".ingest.lock")
}

// Save writes the configuration to the given path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
