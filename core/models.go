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


package core

import "time"

// ID is a unique identifier for stored rows.
// It is generated by the storage sink, never by the client.
type ID uint64

// Metadata is a JSON-safe mapping attached to every stored row.
// After normalization every leaf is a string, a nested Metadata, or a
// sequence of strings and nested Metadata values.
type Metadata = map[string]any

// Chunk is a bounded-size span of consecutive sentences from a source text.
type Chunk struct {
	Index       int    // Position in the chunk sequence, starting at 0
	Text        string // Trimmed, never empty
	SourceBytes int    // Bytes of source sentences folded into this chunk
}

// Record is a single persisted row: one chunk with its embedding and metadata.
type Record struct {
	Id        ID        `json:"id,omitempty"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
	Metadata  Metadata  `json:"metadata"`
	// InsertedAt is set by sinks that track it
	InsertedAt time.Time `json:"inserted_at,omitzero"`
}

// ChunkFailure records why a single chunk was not stored.
type ChunkFailure struct {
	Index int
	Err   error
}

// RunStatus summarizes the outcome of one ingestion run.
type RunStatus int

const (
	// RunEmpty means there was nothing to upload.
	RunEmpty RunStatus = iota
	// RunSucceeded means every attempted chunk was stored.
	RunSucceeded
	// RunPartial means some chunks were stored and some failed.
	RunPartial
	// RunFailed means chunks were attempted but none was stored.
	RunFailed
	// RunCanceled means the caller canceled the run between chunks.
	RunCanceled
)

func (s RunStatus) String() string {
	switch s {
	case RunEmpty:
		return "empty"
	case RunSucceeded:
		return "succeeded"
	case RunPartial:
		return "partial"
	case RunFailed:
		return "failed"
	case RunCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Run aggregates the counters of a single ingest call.
// It lives only for the duration of that call and is handed to the caller at the end.
type Run struct {
	ID         string
	Table      string
	Total      int // Chunks produced by the chunker
	Attempted  int // Chunks that reached the embedding step
	Skipped    int // Blank chunks
	Failed     int
	Succeeded  int
	Failures   []ChunkFailure
	Canceled   bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Processed returns how many chunks have been handled, whatever the outcome.
func (r *Run) Processed() int {
	return r.Skipped + r.Failed + r.Succeeded
}

// NothingToUpload reports whether the content produced no chunks.
func (r *Run) NothingToUpload() bool {
	return r.Total == 0
}

// Status derives the run outcome from its counters.
// Zero successes with a nonzero attempt count is a failed run.
func (r *Run) Status() RunStatus {
	switch {
	case r.Canceled:
		return RunCanceled
	case r.Total == 0:
		return RunEmpty
	case r.Attempted > 0 && r.Succeeded == 0:
		return RunFailed
	case r.Failed > 0:
		return RunPartial
	default:
		return RunSucceeded
	}
}

// Merge adds the counters of other into r. Used to summarize multi-row uploads.
func (r *Run) Merge(other *Run) {
	if other == nil {
		return
	}
	r.Total += other.Total
	r.Attempted += other.Attempted
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Succeeded += other.Succeeded
	r.Failures = append(r.Failures, other.Failures...)
	r.Canceled = r.Canceled || other.Canceled
	if r.StartedAt.IsZero() || (!other.StartedAt.IsZero() && other.StartedAt.Before(r.StartedAt)) {
		r.StartedAt = other.StartedAt
	}
	if other.FinishedAt.After(r.FinishedAt) {
		r.FinishedAt = other.FinishedAt
	}
}
