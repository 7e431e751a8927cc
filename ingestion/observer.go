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

import "github.com/poiesic/filevec/core"

// Observer receives progress of an ingest run. Calls are made synchronously
// on the ingesting goroutine.
type Observer interface {
	// Progress is called after every chunk with the number of chunks handled
	// so far, whatever their outcome.
	Progress(processed, total int)
	// NothingToUpload is called when the content produced no chunks.
	NothingToUpload()
	// Summary is called once at the end of every run, canceled runs included.
	Summary(run *core.Run)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) Progress(int, int) {}
func (NopObserver) NothingToUpload() {}
func (NopObserver) Summary(*core.Run) {}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnProgress        func(processed, total int)
	OnNothingToUpload func()
	OnSummary         func(run *core.Run)
}

func (o ObserverFuncs) Progress(processed, total int) {
	if o.OnProgress != nil {
		o.OnProgress(processed, total)
	}
}

func (o ObserverFuncs) NothingToUpload() {
	if o.OnNothingToUpload != nil {
		o.OnNothingToUpload()
	}
}

func (o ObserverFuncs) Summary(run *core.Run) {
	if o.OnSummary != nil {
		o.OnSummary(run)
	}
}
