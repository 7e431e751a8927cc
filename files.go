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

package filevec

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/filevec/core"
	"github.com/poiesic/filevec/extract"
	"github.com/poiesic/filevec/ingestion"
)

// FileResult is the outcome of one file of a bulk upload.
type FileResult struct {
	Path string
	Run  *core.Run
	Err  error
}

// ObserverFactory returns the observer for one file of a bulk upload.
type ObserverFactory func(path string) ingestion.Observer

// UploadFile extracts path and ingests its content. Text documents are one
// ingest call with the file metadata; every row of a tabular file is its own
// ingest call with the row as metadata, and the returned run sums them.
// For tabular files obs receives row progress instead of chunk progress.
func (u *Uploader) UploadFile(ctx context.Context, path string, obs ingestion.Observer) (*core.Run, error) {
	if obs == nil {
		obs = ingestion.NopObserver{}
	}

	result, err := extract.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	logger := u.logger.With("file", filepath.Base(path), "kind", string(result.Kind))

	if !result.Kind.Tabular() {
		logger.Debug("uploading document", "length", len(result.Content))
		return u.pipeline.Ingest(ctx, result.Content, result.Metadata, u.IngestConfig(), obs)
	}

	logger.Debug("uploading rows", "rows", len(result.Rows))
	return u.uploadRows(ctx, result.Rows, obs)
}

func (u *Uploader) uploadRows(ctx context.Context, rows []extract.Row, obs ingestion.Observer) (*core.Run, error) {
	merged := &core.Run{
		ID:        uuid.New().String(),
		Table:     u.cfg.Storage.Table,
		StartedAt: time.Now().UTC(),
	}

	if len(rows) == 0 {
		merged.FinishedAt = time.Now().UTC()
		obs.NothingToUpload()
		obs.Summary(merged)
		return merged, nil
	}

	for i, row := range rows {
		run, err := u.pipeline.Ingest(ctx, row.Content(), row.Map(), u.IngestConfig(), nil)
		merged.Merge(run)
		if err != nil {
			merged.FinishedAt = time.Now().UTC()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				merged.Canceled = true
				obs.Summary(merged)
				return merged, err
			}
			return nil, err
		}
		obs.Progress(i+1, len(rows))
	}

	merged.FinishedAt = time.Now().UTC()
	obs.Summary(merged)
	return merged, nil
}

// UploadFiles uploads paths concurrently on the worker pool and returns one
// result per path, in input order. newObserver may be nil. A failed file
// does not stop the others; the returned error is only set when ctx ends
// before every file was submitted.
func (u *Uploader) UploadFiles(ctx context.Context, paths []string, newObserver ObserverFactory) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		results[i].Path = path
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return results, err
		}

		var obs ingestion.Observer
		if newObserver != nil {
			obs = newObserver(path)
		}

		wg.Add(1)
		err := u.pool.Submit(func() {
			defer wg.Done()
			run, err := u.UploadFile(ctx, path, obs)
			results[i].Run = run
			results[i].Err = err
			if err != nil {
				u.logger.Error("file upload failed", "file", path, "err", err)
			}
		})
		if err != nil {
			wg.Done()
			results[i].Err = err
		}
	}

	wg.Wait()
	return results, nil
}

// Summarize merges the runs of results into one run.
func Summarize(results []FileResult) *core.Run {
	total := &core.Run{}
	for _, r := range results {
		total.Merge(r.Run)
	}
	return total
}
