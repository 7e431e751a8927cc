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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names. They match the custom_settings.json keys.
const (
	EnvStorageURL     = "SUPABASE_URL"
	EnvStorageKey     = "SUPABASE_KEY"
	EnvTable          = "TABLE_NAME"
	EnvDimension      = "EXPECTED_DIM"
	EnvChunkSize      = "CHUNK_SIZE"
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvCohereKey      = "COHERE_API_KEY"
	EnvProvider       = "EMBEDDING_MODEL"
	EnvStorageBackend = "STORAGE_BACKEND"
	EnvStoragePath    = "STORAGE_PATH"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvOpenAIHost     = "OPENAI_HOST"
	EnvCohereHost     = "COHERE_HOST"
)

// LoadDotEnv loads the given .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overlays process environment variables on c.
func (c *Config) ApplyEnv() error {
	return c.applyLookup(os.LookupEnv)
}

func (c *Config) applyLookup(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str(EnvStorageBackend, &c.Storage.Backend)
	str(EnvStorageURL, &c.Storage.URL)
	str(EnvStorageKey, &c.Storage.Key)
	str(EnvStoragePath, &c.Storage.Path)
	str(EnvTable, &c.Storage.Table)
	str(EnvProvider, &c.Embedding.Provider)
	str(EnvOpenAIKey, &c.Embedding.OpenAIKey)
	str(EnvOpenAIHost, &c.Embedding.OpenAIHost)
	str(EnvCohereKey, &c.Embedding.CohereKey)
	str(EnvCohereHost, &c.Embedding.CohereHost)

	// A DSN only makes sense for pgvector.
	if c.Storage.Backend == BackendPgvector {
		str(EnvDatabaseURL, &c.Storage.URL)
	}

	if err := num(EnvDimension, &c.Ingest.Dimension); err != nil {
		return err
	}
	return num(EnvChunkSize, &c.Ingest.ChunkSize)
}

// loadSettingsJSON reads the flat custom_settings.json layout. Numbers may be
// given as JSON numbers or strings.
func loadSettingsJSON(data []byte, cfg *Config) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return err
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case string:
			values[k] = v
		case json.Number:
			values[k] = v.String()
		case bool:
			values[k] = strconv.FormatBool(v)
		}
	}
	return cfg.applyLookup(func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
}
