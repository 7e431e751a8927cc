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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/filevec/ai"
	"github.com/poiesic/filevec/chunking"
	"github.com/poiesic/filevec/core"
	"github.com/poiesic/filevec/metadata"
	"github.com/poiesic/filevec/storage"
)

// DefaultCallTimeout bounds a single embed or insert call.
const DefaultCallTimeout = 30 * time.Second

// Pipeline chunks, embeds and stores content.
// It holds no per-run state and may serve concurrent Ingest calls when its
// embedder and sink allow it.
type Pipeline struct {
	embedder    ai.Embedder
	sink        storage.Sink
	chunker     *chunking.Chunker
	callTimeout time.Duration
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// WithSplitter sets the sentence splitter used by the chunker.
// Default is chunking.PunktSplitter.
func WithSplitter(splitter chunking.Splitter) Option {
	return func(p *Pipeline) error {
		p.chunker = chunking.NewChunker(splitter)
		return nil
	}
}

// WithCallTimeout bounds every embed and insert call.
// Default is DefaultCallTimeout.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d <= 0 {
			return fmt.Errorf("%w: call timeout must be positive, got %s", core.ErrConfiguration, d)
		}
		p.callTimeout = d
		return nil
	}
}

// NewPipeline creates a pipeline writing rows embedded by embedder into sink.
func NewPipeline(embedder ai.Embedder, sink storage.Sink, opts ...Option) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if sink == nil {
		return nil, ErrSinkRequired
	}

	logger := slog.Default()
	p := &Pipeline{
		embedder:    embedder,
		sink:        sink,
		callTimeout: DefaultCallTimeout,
		logger:      logger.With("component", "ingestion"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.chunker == nil {
		p.chunker = chunking.NewChunker(chunking.NewPunktSplitter(p.logger))
	}
	return p, nil
}

// IngestConfig holds the per-call settings. Provider and credentials are
// bound into the embedder when the pipeline is built.
type IngestConfig struct {
	Table           string
	TargetDimension int
	ChunkSize       int
}

// Validate checks the settings before any work is done.
func (c IngestConfig) Validate() error {
	if err := core.ValidateTable(c.Table); err != nil {
		return err
	}
	if err := core.ValidateDimension(c.TargetDimension); err != nil {
		return err
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: %w: %d", core.ErrConfiguration, core.ErrInvalidChunkSize, c.ChunkSize)
	}
	return nil
}

// Ingest stores content as rows of cfg.Table, one per chunk, each carrying
// the normalized md. obs may be nil.
//
// Configuration problems fail before any chunk with core.ErrConfiguration.
// Per-chunk failures never abort the run: they are counted and listed in the
// returned run, whose Status tells success from partial or total failure.
// When ctx is canceled between chunks the run stops, keeps written rows and
// is returned together with ctx.Err().
func (p *Pipeline) Ingest(ctx context.Context, content string, md any, cfg IngestConfig, obs Observer) (*core.Run, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	embedder, err := ai.NewDimensionedEmbedder(p.embedder, cfg.TargetDimension)
	if err != nil {
		return nil, err
	}

	chunks, err := p.chunker.Chunk(content, cfg.ChunkSize)
	if err != nil {
		return nil, err
	}

	run := &core.Run{
		ID:        uuid.New().String(),
		Table:     cfg.Table,
		Total:     len(chunks),
		StartedAt: time.Now().UTC(),
	}
	logger := p.logger.With("run", run.ID, "table", cfg.Table)

	if len(chunks) == 0 {
		run.FinishedAt = time.Now().UTC()
		logger.Info("nothing to upload")
		obs.NothingToUpload()
		obs.Summary(run)
		return run, nil
	}

	clean := metadata.Normalize(md)
	logger.Debug("ingesting", "chunks", len(chunks), "dimension", cfg.TargetDimension)

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			run.Canceled = true
			run.FinishedAt = time.Now().UTC()
			logger.Warn("run canceled", "processed", run.Processed(), "total", run.Total)
			obs.Summary(run)
			return run, err
		}

		p.process(ctx, embedder, chunk, clean, run, logger)
		obs.Progress(run.Processed(), run.Total)
	}

	run.FinishedAt = time.Now().UTC()
	logger.Info("run finished",
		"status", run.Status().String(),
		"succeeded", run.Succeeded,
		"failed", run.Failed,
		"skipped", run.Skipped,
		"total", run.Total,
		"duration", run.FinishedAt.Sub(run.StartedAt))
	obs.Summary(run)
	return run, nil
}

// process handles one chunk and records its outcome in run.
func (p *Pipeline) process(ctx context.Context, embedder *ai.DimensionedEmbedder, chunk core.Chunk, md core.Metadata, run *core.Run, logger *slog.Logger) {
	if strings.TrimSpace(chunk.Text) == "" {
		run.Skipped++
		return
	}
	run.Attempted++

	embedCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	vector, err := embedder.Embed(embedCtx, chunk.Text)
	cancel()
	if err != nil {
		p.fail(run, chunk, err, logger)
		return
	}

	record := core.Record{
		Content:   chunk.Text,
		Embedding: vector,
		Metadata:  md,
	}
	if err := core.ValidateRecord(&record, embedder.Dimension()); err != nil {
		p.fail(run, chunk, err, logger)
		return
	}

	insertCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	err = p.sink.Insert(insertCtx, run.Table, record)
	cancel()
	if err != nil {
		if !errors.Is(err, core.ErrStorage) {
			err = storage.Wrap("insert", err)
		}
		p.fail(run, chunk, err, logger)
		return
	}

	run.Succeeded++
}

func (p *Pipeline) fail(run *core.Run, chunk core.Chunk, err error, logger *slog.Logger) {
	run.Failed++
	run.Failures = append(run.Failures, core.ChunkFailure{Index: chunk.Index, Err: err})
	logger.Error("chunk failed", "chunk", chunk.Index, "err", err)
}
