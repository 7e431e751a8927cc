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

import (
	"fmt"
	"slices"
	"strings"
)

const (
	// MinChunkSize is the smallest chunk size accepted from configuration.
	MinChunkSize = 100
	// MaxChunkSize is the largest chunk size accepted from configuration.
	MaxChunkSize = 1000
	// DefaultChunkSize is used when nothing is configured.
	DefaultChunkSize = 500
	// DefaultDimension is used when nothing is configured.
	DefaultDimension = 1024
)

// AcceptedDimensions lists the vector lengths a target table may declare.
var AcceptedDimensions = []int{384, 786, 1024, 4096}

// ValidateChunkSize checks a configured chunk size against [MinChunkSize, MaxChunkSize].
func ValidateChunkSize(size int) error {
	if size < MinChunkSize || size > MaxChunkSize {
		return fmt.Errorf("%w: %w: %d not in [%d, %d]",
			ErrConfiguration, ErrInvalidChunkSize, size, MinChunkSize, MaxChunkSize)
	}
	return nil
}

// ValidateDimension checks that dim is one of AcceptedDimensions.
func ValidateDimension(dim int) error {
	if !slices.Contains(AcceptedDimensions, dim) {
		return fmt.Errorf("%w: %w: %d not in %v", ErrConfiguration, ErrInvalidDimension, dim, AcceptedDimensions)
	}
	return nil
}

// ValidateTable checks that a table name was supplied.
func ValidateTable(table string) error {
	if strings.TrimSpace(table) == "" {
		return fmt.Errorf("%w: %w", ErrConfiguration, ErrEmptyTable)
	}
	return nil
}

// ValidateRecord validates a Record before it is handed to a sink.
//
// Validation rules:
//   - Content must not be blank
//   - Embedding length must equal dim when dim > 0
//
// NOT validated:
//   - Metadata (normalized upstream, may be empty)
//   - Id (assigned by the sink)
func ValidateRecord(record *Record, dim int) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidInput)
	}
	if strings.TrimSpace(record.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyContent)
	}
	if dim > 0 && len(record.Embedding) != dim {
		return fmt.Errorf("%w: %w: got %d, want %d", ErrInvalidInput, ErrDimensionMismatch, len(record.Embedding), dim)
	}
	return nil
}
