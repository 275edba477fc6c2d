// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EmbeddingOpenAI = "openai"
	EmbeddingHashed = "hashed"

	IndexPinecone = "pinecone"
	IndexQdrant   = "qdrant"
	IndexBadger   = "badger"

	envPrefix = "CATALOGSEARCH_"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// EmbeddingConfig selects and configures the embedding model.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Host      string `yaml:"host"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// PineconeConfig holds Pinecone-specific settings.
type PineconeConfig struct {
	ControlURL string `yaml:"control_url"`
	Cloud      string `yaml:"cloud"`
	Region     string `yaml:"region"`
	Namespace  string `yaml:"namespace"`
}

// QdrantConfig holds Qdrant-specific settings.
type QdrantConfig struct {
	URL string `yaml:"url"`
}

// IndexConfig selects and configures the vector index.
type IndexConfig struct {
	Provider             string         `yaml:"provider"`
	Name                 string         `yaml:"name"`
	APIKeyEnv            string         `yaml:"api_key_env"`
	Path                 string         `yaml:"path"`
	Attempts             int            `yaml:"attempts"`
	BaseDelayMs          int            `yaml:"base_delay_ms"`
	TimeoutSecs          int            `yaml:"timeout_secs"`
	ProvisionTimeoutSecs int            `yaml:"provision_timeout_secs"`
	Pinecone             PineconeConfig `yaml:"pinecone"`
	Qdrant               QdrantConfig   `yaml:"qdrant"`
}

// BaseDelay returns the first retry delay.
func (c IndexConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

// Timeout returns the per-attempt timeout.
func (c IndexConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ProvisionTimeout bounds one attempt at creating the index and waiting
// for it to become ready.
func (c IndexConfig) ProvisionTimeout() time.Duration {
	return time.Duration(c.ProvisionTimeoutSecs) * time.Second
}

// IngestConfig configures catalog ingestion.
type IngestConfig struct {
	Catalog string `yaml:"catalog"`
	Workers int    `yaml:"workers"`
}

// SearchConfig configures query handling.
type SearchConfig struct {
	TopK int `yaml:"top_k"`
}

// CacheConfig configures the on-disk embedding cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Config is the root configuration.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
}

// Default returns the built-in configuration: a local OpenAI-compatible
// embedding server and a Pinecone index.
func Default() *Config {
	cfg := &Config{
		Embedding: EmbeddingConfig{
			Provider:  EmbeddingOpenAI,
			Host:      "http://localhost:11434/v1",
			Model:     "all-minilm",
			Dimension: 384,
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Index: IndexConfig{
			Provider:  IndexPinecone,
			Name:      "products",
			APIKeyEnv: "PINECONE_API_KEY",
		},
		Ingest: IngestConfig{Catalog: "data/sample_data_10k.csv"},
		Cache:  CacheConfig{Enabled: true},
	}
	applyDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path over the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Save writes cfg to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadEnv loads .env-style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	cfg.Embedding.Provider = strings.ToLower(strings.TrimSpace(cfg.Embedding.Provider))
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = EmbeddingOpenAI
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 384
	}

	cfg.Index.Provider = strings.ToLower(strings.TrimSpace(cfg.Index.Provider))
	if cfg.Index.Provider == "" {
		cfg.Index.Provider = IndexPinecone
	}
	if cfg.Index.Name == "" {
		cfg.Index.Name = "products"
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = filepath.Join(".catalogsearch", "index")
	}
	if cfg.Index.Attempts == 0 {
		cfg.Index.Attempts = 3
	}
	if cfg.Index.BaseDelayMs == 0 {
		cfg.Index.BaseDelayMs = 200
	}
	if cfg.Index.TimeoutSecs == 0 {
		cfg.Index.TimeoutSecs = 10
	}
	if cfg.Index.ProvisionTimeoutSecs == 0 {
		cfg.Index.ProvisionTimeoutSecs = 300
	}

	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = runtime.NumCPU()
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 5
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join(".catalogsearch", "cache")
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// ApplyEnv overrides fields from CATALOGSEARCH_* variables looked up with
// getenv. Unset or empty variables leave the field alone.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(envPrefix + name)); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v := strings.TrimSpace(getenv(envPrefix + name))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not a number", ErrInvalidConfig, envPrefix, name, v)
		}
		*dst = n
		return nil
	}

	str("EMBEDDING_PROVIDER", &c.Embedding.Provider)
	str("EMBEDDING_HOST", &c.Embedding.Host)
	str("EMBEDDING_MODEL", &c.Embedding.Model)
	str("INDEX_PROVIDER", &c.Index.Provider)
	str("INDEX_NAME", &c.Index.Name)
	str("INDEX_PATH", &c.Index.Path)
	str("QDRANT_URL", &c.Index.Qdrant.URL)
	str("PINECONE_NAMESPACE", &c.Index.Pinecone.Namespace)
	str("CATALOG", &c.Ingest.Catalog)
	str("LOG_LEVEL", &c.Log.Level)

	if err := errors.Join(
		num("EMBEDDING_DIMENSION", &c.Embedding.Dimension),
		num("INGEST_WORKERS", &c.Ingest.Workers),
		num("SEARCH_TOP_K", &c.Search.TopK),
	); err != nil {
		return err
	}

	applyDefaults(c)
	return nil
}

// Secret returns the value of the environment variable named by envName.
func Secret(getenv func(string) string, envName string) string {
	if envName == "" {
		return ""
	}
	return strings.TrimSpace(getenv(envName))
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch c.Embedding.Provider {
	case EmbeddingOpenAI:
		if c.Embedding.Host == "" {
			invalid("embedding.host is required for provider %s", c.Embedding.Provider)
		}
		if c.Embedding.Model == "" {
			invalid("embedding.model is required for provider %s", c.Embedding.Provider)
		}
	case EmbeddingHashed:
	default:
		invalid("unknown embedding.provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimension <= 0 {
		invalid("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}

	switch c.Index.Provider {
	case IndexPinecone:
		if c.Index.APIKeyEnv == "" {
			invalid("index.api_key_env is required for provider %s", c.Index.Provider)
		}
	case IndexQdrant, IndexBadger:
	default:
		invalid("unknown index.provider %q", c.Index.Provider)
	}
	if strings.TrimSpace(c.Index.Name) == "" {
		invalid("index.name is required")
	}
	if c.Index.Attempts <= 0 {
		invalid("index.attempts must be positive, got %d", c.Index.Attempts)
	}
	if c.Index.TimeoutSecs <= 0 {
		invalid("index.timeout_secs must be positive, got %d", c.Index.TimeoutSecs)
	}
	if c.Index.ProvisionTimeoutSecs <= 0 {
		invalid("index.provision_timeout_secs must be positive, got %d", c.Index.ProvisionTimeoutSecs)
	}

	if c.Ingest.Workers <= 0 {
		invalid("ingest.workers must be positive, got %d", c.Ingest.Workers)
	}
	if c.Search.TopK <= 0 {
		invalid("search.top_k must be positive, got %d", c.Search.TopK)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		invalid("unknown log.level %q", c.Log.Level)
	}

	return errors.Join(errs...)
}
