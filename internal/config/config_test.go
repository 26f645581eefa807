package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func validEnv() map[string]string {
	return map[string]string{
		"GOOGLE_API_KEY": "google-key",
		"QDRANT_URL":     "https://example.cloud.qdrant.io:6333",
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 2000, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, 5, cfg.Index.TopK)
	assert.Equal(t, "indian_legal_judgements", cfg.Index.Collection)
	assert.Equal(t, 0.1, cfg.Generation.Temperature)
	assert.Equal(t, DefaultBaseURL, cfg.Provider.BaseURL)
	assert.Equal(t, BackendQdrant, cfg.Index.Backend)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	vars := validEnv()
	vars["GENERATION_API_KEY"] = "gen-key"
	vars["CHUNK_SIZE"] = "1000"
	vars["CHUNK_OVERLAP"] = "100"
	vars["TOP_K"] = "8"
	vars["GENERATION_TEMPERATURE"] = "0"
	vars["SERVER_MODE"] = "stdio"
	vars["COLLECTION_NAME"] = ""

	require.NoError(t, cfg.ApplyEnv(env(vars)))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "google-key", cfg.EmbeddingKey())
	assert.Equal(t, "gen-key", cfg.GenerationKey())
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, 8, cfg.Index.TopK)
	assert.Equal(t, 0.0, cfg.Generation.Temperature)
	assert.Equal(t, ModeStdio, cfg.Server.Mode)
	assert.Equal(t, "indian_legal_judgements", cfg.Index.Collection, "empty variable keeps the default")
}

func TestApplyEnv_ParseErrors(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"CHUNK_SIZE":             "large",
		"GENERATION_TEMPERATURE": "warm",
	}))

	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "CHUNK_SIZE")
	assert.Contains(t, err.Error(), "GENERATION_TEMPERATURE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing credentials", func(c *Config) { c.Provider.APIKey = "" }, "GOOGLE_API_KEY"},
		{"missing qdrant url", func(c *Config) { c.Index.URL = "" }, "QDRANT_URL"},
		{"unknown backend", func(c *Config) { c.Index.Backend = "redis" }, "VECTOR_BACKEND"},
		{"overlap not below size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }, "CHUNK_OVERLAP"},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }, "CHUNK_OVERLAP"},
		{"zero chunk size", func(c *Config) { c.Chunking.Size = 0 }, "CHUNK_SIZE"},
		{"zero top k", func(c *Config) { c.Index.TopK = 0 }, "TOP_K"},
		{"bad temperature", func(c *Config) { c.Generation.Temperature = 3 }, "GENERATION_TEMPERATURE"},
		{"bad mode", func(c *Config) { c.Server.Mode = "grpc" }, "SERVER_MODE"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, cfg.ApplyEnv(env(validEnv())))
			tt.mutate(cfg)

			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_MemoryBackendNeedsNoURL(t *testing.T) {
	cfg := Default()
	cfg.Provider.APIKey = "key"
	cfg.Index.Backend = BackendMemory

	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider:
  api_key: yaml-key
index:
  backend: memory
  collection: from_yaml
  top_k: 3
chunking:
  size: 500
  overlap: 50
`), 0o644))

	t.Setenv("TOP_K", "7")
	t.Setenv("GOOGLE_API_KEY", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml-key", cfg.Provider.APIKey)
	assert.Equal(t, "from_yaml", cfg.Index.Collection)
	assert.Equal(t, 7, cfg.Index.TopK, "environment overrides yaml")
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, "gemini-1.5-flash", cfg.Generation.Model, "unset keys keep defaults")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfiguration)
}
