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
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/poiesic/filevec/core"
)

// ProgressReporter is an Observer that writes progress lines to a terminal.
// One reporter follows one run at a time.
type ProgressReporter struct {
	writer         io.Writer
	label          string
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressReporter creates a reporter writing to writer (typically
// os.Stderr). label prefixes every line, usually the file name.
// reportInterval: report progress every N chunks
func NewProgressReporter(writer io.Writer, label string, reportInterval int) *ProgressReporter {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressReporter{
		writer:         writer,
		label:          label,
		reportInterval: reportInterval,
	}
}

// Progress implements Observer.
func (p *ProgressReporter) Progress(processed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.startTime = time.Now()
		p.started = true
		p.lastReported = 0
	}

	// Cap at total
	if processed > total {
		processed = total
	}

	if processed-p.lastReported >= p.reportInterval || processed == total {
		p.report(processed, total)
		p.lastReported = processed
	}
}

// NothingToUpload implements Observer.
func (p *ProgressReporter) NothingToUpload() {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "%s: nothing to upload\n", p.label)
}

// Summary implements Observer.
func (p *ProgressReporter) Summary(run *core.Run) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		fmt.Fprintln(p.writer) // End the progress line
	}
	p.started = false

	if run.NothingToUpload() {
		return
	}
	fmt.Fprintf(p.writer, "%s: %s - %d succeeded, %d failed, %d skipped of %d chunks in %s\n",
		p.label, run.Status(), run.Succeeded, run.Failed, run.Skipped, run.Total,
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressReporter) report(current, total int) {
	elapsed := time.Since(p.startTime)
	rate := float64(current) / elapsed.Seconds()

	percentage := 0.0
	if total > 0 {
		percentage = float64(current) / float64(total) * 100.0
	}

	fmt.Fprintf(p.writer, "\r%s: %d/%d (%.1f%%) - %.1f chunks/s",
		p.label, current, total, percentage, rate)
}
