package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/filevec/ai"
	"github.com/poiesic/filevec/core"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validConfig() *Config {
	cfg := Default()
	cfg.Embedding.OpenAIKey = "sk-test"
	return cfg
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "filevec.yaml", `
storage:
  backend: postgrest
  url: https://abc.supabase.co
  key: service-key
  table: docs
embedding:
  provider: cohere
  cohere_key: co-key
  max_retries: 3
ingest:
  dimension: 384
  chunk_size: 300
monitor:
  dir: /srv/drop
  include: ["*.pdf"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendPostgREST, cfg.Storage.Backend)
	assert.Equal(t, "docs", cfg.Storage.Table)
	assert.Equal(t, 384, cfg.Ingest.Dimension)
	assert.Equal(t, 300, cfg.Ingest.ChunkSize)
	assert.Equal(t, 3, cfg.Embedding.MaxRetries)
	assert.Equal(t, []string{"*.pdf"}, cfg.Monitor.Include)
	// Unset values fall back to defaults.
	assert.Equal(t, DefaultPoolSize, cfg.Ingest.PoolSize)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout())
	require.NoError(t, cfg.Validate())

	p, err := cfg.Provider()
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderCohere, p)
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "filevec.toml", `
[storage]
backend = "sqlite"
path = "vectors.db"
table = "notes"

[embedding]
provider = "openai"
openai_key = "sk-toml"
rate_limit = 2.5

[ingest]
dimension = 4096
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "vectors.db", cfg.Storage.Path)
	assert.Equal(t, 4096, cfg.Ingest.Dimension)
	assert.Equal(t, core.DefaultChunkSize, cfg.Ingest.ChunkSize)
	assert.InDelta(t, 2.5, cfg.Embedding.RateLimit, 1e-9)
	require.NoError(t, cfg.Validate())
}

func TestLoad_CustomSettingsJSON(t *testing.T) {
	path := writeConfig(t, "custom_settings.json", `{
  "SUPABASE_URL": "https://abc.supabase.co",
  "SUPABASE_KEY": "service-key",
  "TABLE_NAME": "vectors",
  "EXPECTED_DIM": "786",
  "CHUNK_SIZE": 250,
  "OPENAI_API_KEY": "sk-json",
  "EMBEDDING_MODEL": "OpenAI",
  "STORAGE_BACKEND": "postgrest"
}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://abc.supabase.co", cfg.Storage.URL)
	assert.Equal(t, "service-key", cfg.Storage.Key)
	assert.Equal(t, "vectors", cfg.Storage.Table)
	assert.Equal(t, 786, cfg.Ingest.Dimension)
	assert.Equal(t, 250, cfg.Ingest.ChunkSize)
	assert.Equal(t, "sk-json", cfg.Embedding.OpenAIKey)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeConfig(t, "bad.yaml", "storage: [unclosed"))
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = Load(writeConfig(t, "settings.ini", "a=b"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(writeConfig(t, "bad.json", `{"EXPECTED_DIM": "lots"}`))
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvTable, "from_env")
	t.Setenv(EnvDimension, "384")
	t.Setenv(EnvCohereKey, "co-env")
	t.Setenv(EnvProvider, "cohere")
	t.Setenv(EnvStorageBackend, BackendPgvector)
	t.Setenv(EnvDatabaseURL, "postgres://localhost/vectors")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "from_env", cfg.Storage.Table)
	assert.Equal(t, 384, cfg.Ingest.Dimension)
	assert.Equal(t, "postgres://localhost/vectors", cfg.Storage.URL)
	require.NoError(t, cfg.Validate())

	aiCfg, err := cfg.AIConfig()
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderCohere, aiCfg.Provider)
	assert.Equal(t, "co-env", aiCfg.APIKey)
}

func TestApplyEnv_InvalidNumber(t *testing.T) {
	t.Setenv(EnvChunkSize, "big")
	assert.Error(t, Default().ApplyEnv())
}

func TestLoadDotEnv(t *testing.T) {
	path := writeConfig(t, ".env", "FILEVEC_TEST_DOTENV=loaded\n")
	t.Setenv("FILEVEC_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("FILEVEC_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("FILEVEC_TEST_DOTENV"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "mongo" }, core.ErrConfiguration},
		{"empty table", func(c *Config) { c.Storage.Table = "" }, core.ErrEmptyTable},
		{"bad dimension", func(c *Config) { c.Ingest.Dimension = 1536 }, core.ErrInvalidDimension},
		{"chunk too small", func(c *Config) { c.Ingest.ChunkSize = 50 }, core.ErrInvalidChunkSize},
		{"postgrest without key", func(c *Config) {
			c.Storage.Backend = BackendPostgREST
			c.Storage.URL = "https://abc.supabase.co"
		}, core.ErrConfiguration},
		{"pgvector without dsn", func(c *Config) { c.Storage.Backend = BackendPgvector }, core.ErrConfiguration},
		{"missing api key", func(c *Config) { c.Embedding.OpenAIKey = "" }, core.ErrConfiguration},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "bert" }, core.ErrConfiguration},
		{"placeholder key", func(c *Config) {
			c.Storage.Backend = BackendPostgREST
			c.Storage.URL = "https://abc.supabase.co"
			c.Storage.Key = "your-service-role-key"
		}, ErrPlaceholder},
		{"placeholder api key", func(c *Config) { c.Embedding.OpenAIKey = "your-openai-api-key" }, ErrPlaceholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, tt.target)
			assert.ErrorIs(t, err, core.ErrConfiguration)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "filevec.yaml")
	cfg := validConfig()
	cfg.Storage.Table = "saved"

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
