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

// Package filevec uploads documents into a vector table.
//
// An Uploader binds one configuration (provider, credentials, sink, table,
// dimension and chunk size) to an ingestion pipeline. Files are extracted,
// chunked, embedded and stored; several files may be uploaded in parallel on
// a worker pool, while the chunks of one file stay in order.
//
// Example:
//
//	cfg, _ := config.Load("filevec.yaml")
//	up, err := filevec.Open(cfg)
//	if err != nil {
//	    return err
//	}
//	defer up.Close()
//	run, err := up.UploadFile(ctx, "report.pdf", nil)
package filevec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/filevec/ai"
	"github.com/poiesic/filevec/ai/cohere"
	"github.com/poiesic/filevec/ai/openai"
	"github.com/poiesic/filevec/chunking"
	"github.com/poiesic/filevec/config"
	"github.com/poiesic/filevec/core"
	"github.com/poiesic/filevec/ingestion"
	"github.com/poiesic/filevec/storage"
	"github.com/poiesic/filevec/storage/badger"
	"github.com/poiesic/filevec/storage/pgvector"
	"github.com/poiesic/filevec/storage/postgrest"
	"github.com/poiesic/filevec/storage/sqlite"
)

// RetryDelay is the base backoff between embedding attempts.
const RetryDelay = 500 * time.Millisecond

var (
	// ErrConfigRequired is returned when Open is called without a config.
	ErrConfigRequired = errors.New("config required")

	// ErrUnsupported indicates an operation the configured sink cannot perform.
	ErrUnsupported = errors.New("operation not supported by storage backend")
)

// Uploader uploads files into the configured table.
type Uploader struct {
	cfg      *config.Config
	embedder ai.Embedder
	sink     storage.Sink
	ownSink  bool
	pipeline *ingestion.Pipeline
	pool     *ants.Pool
	splitter chunking.Splitter
	logger   *slog.Logger

	stateMu sync.Mutex
	state   *stateStore
}

// Option configures an Uploader.
type Option func(*Uploader) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) error {
		if logger == nil {
			logger = slog.Default()
		}
		u.logger = logger
		return nil
	}
}

// WithPoolSize sets how many files are uploaded concurrently.
// Default is the configured pool size.
func WithPoolSize(size int) Option {
	return func(u *Uploader) error {
		if size < 1 {
			size = 1
		}
		if u.pool != nil {
			u.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		u.pool = pool
		return nil
	}
}

// WithEmbedder replaces the embedder built from the configuration.
func WithEmbedder(e ai.Embedder) Option {
	return func(u *Uploader) error {
		u.embedder = e
		return nil
	}
}

// WithSink replaces the sink built from the configuration. The caller keeps
// ownership: Close does not close it.
func WithSink(s storage.Sink) Option {
	return func(u *Uploader) error {
		u.sink = s
		return nil
	}
}

// WithSplitter sets the sentence splitter.
// Default is chunking.PunktSplitter.
func WithSplitter(s chunking.Splitter) Option {
	return func(u *Uploader) error {
		u.splitter = s
		return nil
	}
}

// Open validates cfg and builds the embedder, sink and pipeline it describes.
func Open(cfg *config.Config, opts ...Option) (*Uploader, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	u := &Uploader{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(u); err != nil {
			u.Close()
			return nil, err
		}
	}
	u.logger = u.logger.With("component", "uploader")

	if u.pool == nil {
		pool, err := ants.NewPool(cfg.Ingest.PoolSize)
		if err != nil {
			return nil, err
		}
		u.pool = pool
	}

	if u.embedder == nil {
		embedder, err := NewEmbedder(cfg)
		if err != nil {
			u.Close()
			return nil, err
		}
		u.embedder = embedder
	}

	if u.sink == nil {
		sink, err := NewSink(cfg)
		if err != nil {
			u.Close()
			return nil, err
		}
		u.sink = sink
		u.ownSink = true
	}

	pipelineOpts := []ingestion.Option{
		ingestion.WithLogger(u.logger),
		ingestion.WithCallTimeout(cfg.CallTimeout()),
	}
	if u.splitter != nil {
		pipelineOpts = append(pipelineOpts, ingestion.WithSplitter(u.splitter))
	}
	pipeline, err := ingestion.NewPipeline(u.embedder, u.sink, pipelineOpts...)
	if err != nil {
		u.Close()
		return nil, err
	}
	u.pipeline = pipeline

	u.logger.Info("uploader ready",
		"backend", cfg.Storage.Backend,
		"table", cfg.Storage.Table,
		"provider", cfg.Embedding.Provider,
		"dimension", cfg.Ingest.Dimension,
		"chunk_size", cfg.Ingest.ChunkSize)
	return u, nil
}

// NewEmbedder builds the embedding backend selected by cfg, with the retry
// and rate limit policies it asks for.
func NewEmbedder(cfg *config.Config) (ai.Embedder, error) {
	aiCfg, err := cfg.AIConfig()
	if err != nil {
		return nil, err
	}

	var embedder ai.Embedder
	switch aiCfg.Provider {
	case ai.ProviderOpenAI:
		embedder, err = openai.NewEmbedder(aiCfg)
	case ai.ProviderCohere:
		embedder, err = cohere.NewEmbedder(aiCfg)
	default:
		err = fmt.Errorf("%w: unknown embedding provider %s", core.ErrConfiguration, aiCfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Embedding.MaxRetries > 1 {
		if embedder, err = ai.WithRetry(embedder, cfg.Embedding.MaxRetries, RetryDelay); err != nil {
			return nil, err
		}
	}
	if cfg.Embedding.RateLimit > 0 {
		if embedder, err = ai.WithRateLimit(embedder, cfg.Embedding.RateLimit, 1); err != nil {
			return nil, err
		}
	}
	return embedder, nil
}

// NewSink opens the storage backend selected by cfg.
func NewSink(cfg *config.Config) (storage.Sink, error) {
	var (
		sink storage.Sink
		err  error
	)
	switch cfg.Storage.Backend {
	case config.BackendBadger:
		var s *badger.Sink
		if s, err = badger.OpenSink(cfg.Storage.Path, false); err == nil {
			sink = s
		}
	case config.BackendPostgREST:
		var s *postgrest.Sink
		if s, err = postgrest.NewSink(cfg.Storage.URL, cfg.Storage.Key); err == nil {
			sink = s
		}
	case config.BackendPgvector:
		var s *pgvector.Sink
		if s, err = pgvector.Open(cfg.Storage.URL); err == nil {
			sink = s
		}
	case config.BackendSQLite:
		var s *sqlite.Sink
		if s, err = sqlite.Open(cfg.Storage.Path); err == nil {
			sink = s
		}
	default:
		err = fmt.Errorf("%w: unknown storage backend %q", core.ErrConfiguration, cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}
	return sink, nil
}

// Config returns the configuration the uploader was opened with.
func (u *Uploader) Config() *config.Config {
	return u.cfg
}

// IngestConfig returns the per-call settings derived from the configuration.
func (u *Uploader) IngestConfig() ingestion.IngestConfig {
	return ingestion.IngestConfig{
		Table:           u.cfg.Storage.Table,
		TargetDimension: u.cfg.Ingest.Dimension,
		ChunkSize:       u.cfg.Ingest.ChunkSize,
	}
}

// UploadText ingests content with md attached to every row.
func (u *Uploader) UploadText(ctx context.Context, content string, md any, obs ingestion.Observer) (*core.Run, error) {
	return u.pipeline.Ingest(ctx, content, md, u.IngestConfig(), obs)
}

// Purge removes every row of the configured table.
func (u *Uploader) Purge(ctx context.Context) (int, error) {
	purger, ok := u.sink.(storage.Purger)
	if !ok {
		return 0, fmt.Errorf("%w: purge", ErrUnsupported)
	}
	n, err := purger.DeleteAll(ctx, u.cfg.Storage.Table)
	if err != nil {
		return 0, err
	}
	u.logger.Info("table purged", "table", u.cfg.Storage.Table, "rows", n)
	return n, nil
}

// Count returns the number of rows in the configured table.
func (u *Uploader) Count(ctx context.Context) (int, error) {
	counter, ok := u.sink.(storage.Counter)
	if !ok {
		return 0, fmt.Errorf("%w: count", ErrUnsupported)
	}
	return counter.Count(ctx, u.cfg.Storage.Table)
}

// List returns up to limit rows of the configured table in insertion order.
// A limit of zero or less returns every row.
func (u *Uploader) List(ctx context.Context, limit int) ([]core.Record, error) {
	lister, ok := u.sink.(storage.Lister)
	if !ok {
		return nil, fmt.Errorf("%w: list", ErrUnsupported)
	}
	return lister.List(ctx, u.cfg.Storage.Table, limit)
}

// Close releases the worker pool and the resources the uploader opened.
func (u *Uploader) Close() error {
	if u.pool != nil {
		u.pool.Release()
	}

	var errs []error
	u.stateMu.Lock()
	defer u.stateMu.Unlock()
	if u.state != nil {
		if err := u.state.Close(); err != nil {
			u.logger.Error("error closing monitor state", "err", err)
			errs = append(errs, err)
		}
	}
	if u.ownSink {
		if closer, ok := u.sink.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				u.logger.Error("error closing storage", "err", err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
