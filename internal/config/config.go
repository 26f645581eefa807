// Package config loads settings from an optional YAML file, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks missing or invalid settings. It is fatal at startup.
var ErrConfiguration = errors.New("configuration error")

// Vector backends.
const (
	BackendQdrant = "qdrant"
	BackendMemory = "memory"
)

// Server modes.
const (
	ModeHTTP  = "http"
	ModeStdio = "stdio"
)

// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// ProviderConfig holds model provider credentials.
// EmbeddingAPIKey and GenerationAPIKey fall back to APIKey.
type ProviderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	EmbeddingAPIKey   string  `yaml:"embedding_api_key"`
	GenerationAPIKey  string  `yaml:"generation_api_key"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type EmbeddingConfig struct {
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batch_size"`
	Concurrency int    `yaml:"concurrency"`
}

type GenerationConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

// IndexConfig selects the vector store and retrieval depth.
type IndexConfig struct {
	Backend    string `yaml:"backend"`
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
	TopK       int    `yaml:"top_k"`
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// SourceConfig locates the documents to ingest. GitHub, when set, is
// "owner/repo/path" and takes precedence over DataDir.
type SourceConfig struct {
	DataDir     string `yaml:"data_dir"`
	GitHub      string `yaml:"github"`
	GitHubToken string `yaml:"github_token"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"`
}

// Config is the root configuration.
type Config struct {
	Provider   ProviderConfig   `yaml:"provider"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Index      IndexConfig      `yaml:"index"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Source     SourceConfig     `yaml:"source"`
	Server     ServerConfig     `yaml:"server"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL:           DefaultBaseURL,
			RequestsPerSecond: 5,
		},
		Embedding: EmbeddingConfig{
			Model:       "text-embedding-004",
			Dimension:   768,
			BatchSize:   64,
			Concurrency: 4,
		},
		Generation: GenerationConfig{
			Model:       "gemini-1.5-flash",
			Temperature: 0.1,
		},
		Index: IndexConfig{
			Backend:    BackendQdrant,
			Collection: "indian_legal_judgements",
			TopK:       5,
		},
		Chunking: ChunkingConfig{
			Size:    2000,
			Overlap: 200,
		},
		Source: SourceConfig{
			DataDir: "data",
		},
		Server: ServerConfig{
			Port: 8080,
			Mode: ModeHTTP,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if path
// is non-empty), then environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrConfiguration, path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrConfiguration, path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EmbeddingKey returns the credential used for embedding calls.
func (c *Config) EmbeddingKey() string {
	if c.Provider.EmbeddingAPIKey != "" {
		return c.Provider.EmbeddingAPIKey
	}
	return c.Provider.APIKey
}

// GenerationKey returns the credential used for generation calls.
func (c *Config) GenerationKey() string {
	if c.Provider.GenerationAPIKey != "" {
		return c.Provider.GenerationAPIKey
	}
	return c.Provider.APIKey
}

// Validate reports every invalid setting at once, wrapped in ErrConfiguration.
func (c *Config) Validate() error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if c.EmbeddingKey() == "" {
		add("embedding credential missing: set GOOGLE_API_KEY or EMBEDDING_API_KEY")
	}
	if c.GenerationKey() == "" {
		add("generation credential missing: set GOOGLE_API_KEY or GENERATION_API_KEY")
	}

	switch c.Index.Backend {
	case BackendQdrant:
		if c.Index.URL == "" {
			add("QDRANT_URL is required for the qdrant backend")
		}
	case BackendMemory:
	default:
		add("unknown VECTOR_BACKEND %q (want %s or %s)", c.Index.Backend, BackendQdrant, BackendMemory)
	}
	if c.Index.Collection == "" {
		add("COLLECTION_NAME must not be empty")
	}

	if c.Chunking.Size <= 0 {
		add("CHUNK_SIZE must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		add("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.Chunking.Overlap)
	}

	for name, v := range map[string]int{
		"TOP_K":               c.Index.TopK,
		"EMBEDDING_DIMENSION": c.Embedding.Dimension,
		"BATCH_SIZE":          c.Embedding.BatchSize,
		"CONCURRENCY":         c.Embedding.Concurrency,
	} {
		if v <= 0 {
			add("%s must be positive, got %d", name, v)
		}
	}

	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		add("GENERATION_TEMPERATURE must be in [0, 2], got %g", c.Generation.Temperature)
	}
	if c.Provider.RequestsPerSecond < 0 {
		add("REQUESTS_PER_SECOND must not be negative, got %g", c.Provider.RequestsPerSecond)
	}

	if c.Server.Mode != ModeHTTP && c.Server.Mode != ModeStdio {
		add("unknown SERVER_MODE %q (want %s or %s)", c.Server.Mode, ModeHTTP, ModeStdio)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("PORT must be in [1, 65535], got %d", c.Server.Port)
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(problems...))
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from environment variables. Unset or empty
// variables leave the current value in place.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("GOOGLE_API_KEY", &c.Provider.APIKey)
	e.str("EMBEDDING_API_KEY", &c.Provider.EmbeddingAPIKey)
	e.str("GENERATION_API_KEY", &c.Provider.GenerationAPIKey)
	e.str("PROVIDER_BASE_URL", &c.Provider.BaseURL)
	e.float("REQUESTS_PER_SECOND", &c.Provider.RequestsPerSecond)

	e.str("EMBEDDING_MODEL", &c.Embedding.Model)
	e.int("EMBEDDING_DIMENSION", &c.Embedding.Dimension)
	e.int("BATCH_SIZE", &c.Embedding.BatchSize)
	e.int("CONCURRENCY", &c.Embedding.Concurrency)

	e.str("GENERATION_MODEL", &c.Generation.Model)
	e.float("GENERATION_TEMPERATURE", &c.Generation.Temperature)

	e.str("VECTOR_BACKEND", &c.Index.Backend)
	e.str("QDRANT_URL", &c.Index.URL)
	e.str("QDRANT_API_KEY", &c.Index.APIKey)
	e.str("COLLECTION_NAME", &c.Index.Collection)
	e.int("TOP_K", &c.Index.TopK)

	e.int("CHUNK_SIZE", &c.Chunking.Size)
	e.int("CHUNK_OVERLAP", &c.Chunking.Overlap)

	e.str("DATA_DIR", &c.Source.DataDir)
	e.str("GITHUB_SOURCE", &c.Source.GitHub)
	e.str("GITHUB_TOKEN", &c.Source.GitHubToken)

	e.int("PORT", &c.Server.Port)
	e.str("SERVER_MODE", &c.Server.Mode)

	if len(e.errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(e.errs...))
	}
	return nil
}

// envReader collects parse errors instead of silently keeping defaults.
type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	return v, ok && v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return
	}
	*dst = i
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return
	}
	*dst = f
}
