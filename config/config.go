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
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/filevec/ai"
	"github.com/poiesic/filevec/core"
)

// Storage backends.
const (
	BackendBadger    = "badger"
	BackendPostgREST = "postgrest"
	BackendPgvector  = "pgvector"
	BackendSQLite    = "sqlite"
)

// Backends lists the accepted storage backends.
var Backends = []string{BackendBadger, BackendPostgREST, BackendPgvector, BackendSQLite}

// Defaults
const (
	DefaultBackend     = BackendBadger
	DefaultStoragePath = "data/filevec"
	DefaultTable       = "documents"
	DefaultPoolSize    = 4
	DefaultTimeoutSecs = 30
)

var (
	// ErrPlaceholder indicates a setting still holding a template value.
	ErrPlaceholder = errors.New("placeholder value")

	// ErrUnsupportedFormat indicates a config file extension that cannot be read.
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

// placeholders are the template values shipped in the settings form.
var placeholders = []string{
	"https://your-supabase-url.supabase.co",
	"your-service-role-key",
	"your_vector_table",
	"your-openai-api-key",
	"your-cohere-api-key",
}

// StorageConfig selects and configures the sink.
type StorageConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
	// URL is the PostgREST base URL or the Postgres DSN.
	URL   string `yaml:"url" toml:"url"`
	Key   string `yaml:"key" toml:"key"`
	Path  string `yaml:"path" toml:"path"` // badger directory or sqlite file
	Table string `yaml:"table" toml:"table"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider    string  `yaml:"provider" toml:"provider"`
	OpenAIKey   string  `yaml:"openai_key" toml:"openai_key"`
	OpenAIHost  string  `yaml:"openai_host" toml:"openai_host"`
	OpenAIModel string  `yaml:"openai_model" toml:"openai_model"`
	CohereKey   string  `yaml:"cohere_key" toml:"cohere_key"`
	CohereHost  string  `yaml:"cohere_host" toml:"cohere_host"`
	CohereModel string  `yaml:"cohere_model" toml:"cohere_model"`
	TimeoutSecs int     `yaml:"timeout_secs" toml:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" toml:"max_retries"`
	RateLimit   float64 `yaml:"rate_limit" toml:"rate_limit"` // Requests per second, 0 disables
}

// IngestConfig holds chunking and run settings.
type IngestConfig struct {
	Dimension       int `yaml:"dimension" toml:"dimension"`
	ChunkSize       int `yaml:"chunk_size" toml:"chunk_size"`
	CallTimeoutSecs int `yaml:"call_timeout_secs" toml:"call_timeout_secs"`
	PoolSize        int `yaml:"pool_size" toml:"pool_size"`
}

// MonitorConfig configures the drop directory.
type MonitorConfig struct {
	Dir     string   `yaml:"dir" toml:"dir"`
	Include []string `yaml:"include,omitempty" toml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" toml:"exclude,omitempty"`
	// StateDir holds the uploaded-file fingerprints when storage is not badger.
	StateDir string `yaml:"state_dir" toml:"state_dir"`
}

// Config is the root application configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding" toml:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest" toml:"ingest"`
	Monitor   MonitorConfig   `yaml:"monitor" toml:"monitor"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: DefaultBackend,
			Path:    DefaultStoragePath,
			Table:   DefaultTable,
		},
		Embedding: EmbeddingConfig{
			Provider:    ai.ProviderOpenAI.String(),
			TimeoutSecs: DefaultTimeoutSecs,
		},
		Ingest: IngestConfig{
			Dimension:       core.DefaultDimension,
			ChunkSize:       core.DefaultChunkSize,
			CallTimeoutSecs: DefaultTimeoutSecs,
			PoolSize:        DefaultPoolSize,
		},
		Monitor: MonitorConfig{
			Dir:      filepath.Join("data", "data_storage"),
			StateDir: filepath.Join("data", "monitor-state"),
		},
	}
}

// Load reads the config file at path. The format follows the extension:
// .yaml/.yml, .toml or .json (custom_settings key set). A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %w", core.ErrConfiguration, path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".json":
		err = loadSettingsJSON(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %w: %s", core.ErrConfiguration, ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", core.ErrConfiguration, path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Save writes cfg as YAML, creating directories as needed.
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

func (c *Config) applyDefaults() {
	d := Default()
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Path == "" {
		c.Storage.Path = d.Storage.Path
	}
	if c.Storage.Table == "" {
		c.Storage.Table = d.Storage.Table
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = d.Embedding.Provider
	}
	if c.Embedding.TimeoutSecs <= 0 {
		c.Embedding.TimeoutSecs = d.Embedding.TimeoutSecs
	}
	if c.Ingest.Dimension == 0 {
		c.Ingest.Dimension = d.Ingest.Dimension
	}
	if c.Ingest.ChunkSize == 0 {
		c.Ingest.ChunkSize = d.Ingest.ChunkSize
	}
	if c.Ingest.CallTimeoutSecs <= 0 {
		c.Ingest.CallTimeoutSecs = d.Ingest.CallTimeoutSecs
	}
	if c.Ingest.PoolSize <= 0 {
		c.Ingest.PoolSize = d.Ingest.PoolSize
	}
	if c.Monitor.Dir == "" {
		c.Monitor.Dir = d.Monitor.Dir
	}
	if c.Monitor.StateDir == "" {
		c.Monitor.StateDir = d.Monitor.StateDir
	}
}

// Provider returns the configured embedding provider.
func (c *Config) Provider() (ai.Provider, error) {
	return ai.ParseProvider(c.Embedding.Provider)
}

// AIConfig builds the embedding client configuration for the selected provider.
func (c *Config) AIConfig() (*ai.Config, error) {
	p, err := c.Provider()
	if err != nil {
		return nil, err
	}

	opts := []ai.ConfigOption{
		ai.WithProvider(p),
		ai.WithTimeout(time.Duration(c.Embedding.TimeoutSecs) * time.Second),
	}
	switch p {
	case ai.ProviderOpenAI:
		opts = append(opts,
			ai.WithAPIKey(c.Embedding.OpenAIKey),
			ai.WithHost(c.Embedding.OpenAIHost),
			ai.WithModel(c.Embedding.OpenAIModel))
	case ai.ProviderCohere:
		opts = append(opts,
			ai.WithAPIKey(c.Embedding.CohereKey),
			ai.WithHost(c.Embedding.CohereHost),
			ai.WithModel(c.Embedding.CohereModel))
	}
	return ai.NewConfig(opts...), nil
}

// CallTimeout bounds every embed and insert call.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Ingest.CallTimeoutSecs) * time.Second
}

// Validate checks every setting needed to run an upload. Failures wrap
// core.ErrConfiguration.
func (c *Config) Validate() error {
	if !slices.Contains(Backends, c.Storage.Backend) {
		return fmt.Errorf("%w: unknown storage backend %q", core.ErrConfiguration, c.Storage.Backend)
	}
	if err := core.ValidateTable(c.Storage.Table); err != nil {
		return err
	}
	if err := core.ValidateDimension(c.Ingest.Dimension); err != nil {
		return err
	}
	if err := core.ValidateChunkSize(c.Ingest.ChunkSize); err != nil {
		return err
	}

	switch c.Storage.Backend {
	case BackendPostgREST:
		if c.Storage.URL == "" || c.Storage.Key == "" {
			return fmt.Errorf("%w: postgrest storage requires url and key", core.ErrConfiguration)
		}
	case BackendPgvector:
		if c.Storage.URL == "" {
			return fmt.Errorf("%w: pgvector storage requires a connection url", core.ErrConfiguration)
		}
	}

	aiCfg, err := c.AIConfig()
	if err != nil {
		return err
	}
	if err := aiCfg.Validate(); err != nil {
		return err
	}

	for name, value := range map[string]string{
		"storage url": c.Storage.URL,
		"storage key": c.Storage.Key,
		"table":       c.Storage.Table,
		"api key":     aiCfg.APIKey,
	} {
		if slices.Contains(placeholders, value) {
			return fmt.Errorf("%w: %w: %s is %q", core.ErrConfiguration, ErrPlaceholder, name, value)
		}
	}
	return nil
}
