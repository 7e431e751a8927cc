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

// Package storage defines the sink abstraction rows are written to.
//
// A Sink accepts one record at a time for a named table. Sinks assign row
// identifiers; callers never do. Optional capabilities (purging a table,
// counting its rows) are separate interfaces discovered with a type
// assertion, since not every backend can offer them.
//
// # Constructor Return Type Pattern
//
// Backend constructors return their concrete type so callers can reach the
// optional capabilities and Close:
//
//	sink, err := badger.OpenSink(path, false)   // *badger.Sink
//	sink, err := postgrest.NewSink(url, key)    // *postgrest.Sink
//
// # Errors
//
// Every failure returned by a sink wraps core.ErrStorage so the ingestion
// pipeline can classify it with errors.Is.
//
// # Thread Safety
//
// All sink implementations must be thread-safe and support concurrent
// inserts from multiple goroutines.
package storage
