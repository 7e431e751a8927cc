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

package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/filevec/core"
)

const (
	// DefaultOpenAIHost is the public OpenAI API.
	DefaultOpenAIHost = "https://api.openai.com/v1"
	// DefaultOpenAIModel is the OpenAI embedding model.
	DefaultOpenAIModel = "text-embedding-3-small"
	// DefaultCohereHost is the public Cohere API.
	DefaultCohereHost = "https://api.cohere.com"
	// DefaultCohereModel is the Cohere embedding model.
	DefaultCohereModel = "embed-english-v3.0"
	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for an embedding provider.
type Config struct {
	// Provider selects the backend.
	Provider Provider

	// APIKey authenticates against the backend. Local OpenAI-compatible
	// servers that do not check it accept any placeholder such as "none".
	APIKey string

	// Host is the base URL of the API. Empty selects the provider default.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	Host string

	// Model is the embedding model identifier. Empty selects the provider default.
	// Example: "text-embedding-3-small", "embed-english-v3.0"
	Model string

	// Timeout bounds each HTTP request made by the backend client.
	Timeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider selects the embedding backend.
func WithProvider(p Provider) ConfigOption {
	return func(c *Config) {
		c.Provider = p
	}
}

// WithAPIKey sets the backend credential.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithHost sets the API base URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// DefaultConfig returns a Config for the public OpenAI API without credentials.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Timeout:  DefaultTimeout,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderCohere),
//	    WithAPIKey(os.Getenv("COHERE_API_KEY")),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize fills provider defaults and puts the host in canonical form.
// OpenAI-compatible hosts get the /v1 suffix most servers (Ollama, LocalAI,
// vLLM) require. Cohere hosts lose any trailing slash.
func (c *Config) Normalize() {
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	switch c.Provider {
	case ProviderOpenAI:
		if c.Host == "" {
			c.Host = DefaultOpenAIHost
		}
		if c.Model == "" {
			c.Model = DefaultOpenAIModel
		}
		if !strings.HasSuffix(c.Host, "/v1") {
			c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
		}
	case ProviderCohere:
		if c.Host == "" {
			c.Host = DefaultCohereHost
		}
		if c.Model == "" {
			c.Model = DefaultCohereModel
		}
		c.Host = strings.TrimSuffix(c.Host, "/")
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if !c.Provider.Valid() {
		return fmt.Errorf("%w: ai config: unknown provider %d", core.ErrConfiguration, int(c.Provider))
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: ai config: API key is required for %s", core.ErrConfiguration, c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: ai config: Model is required", core.ErrConfiguration)
	}
	return nil
}
