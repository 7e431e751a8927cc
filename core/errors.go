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

import "errors"

// Error taxonomy shared by every ingestion component.
// Callers classify failures with errors.Is.
var (
	// ErrConfiguration indicates invalid settings (chunk size, dimension, missing
	// credentials). It is fatal and aborts a run before any chunk is processed.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidInput indicates text that cannot be embedded (empty or blank).
	ErrInvalidInput = errors.New("invalid input")

	// ErrProvider indicates an embedding backend failure: network, auth,
	// timeout or a malformed/empty response.
	ErrProvider = errors.New("embedding provider error")

	// ErrStorage indicates a storage sink write or read failure.
	ErrStorage = errors.New("storage error")

	// ErrExtraction indicates the source document could not be read.
	ErrExtraction = errors.New("extraction error")
)

// Domain validation errors
var (
	// ErrInvalidChunkSize indicates a chunk size outside the accepted range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidDimension indicates a target dimension that is not accepted.
	ErrInvalidDimension = errors.New("invalid target dimension")

	// ErrEmptyTable indicates a missing table name.
	ErrEmptyTable = errors.New("table name cannot be empty")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrDimensionMismatch indicates an embedding whose length differs from the table's.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
