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

// Package metadata normalizes caller-supplied metadata into a JSON-safe
// mapping that can be attached to every stored row.
//
// Arbitrary Go values are classified once at the boundary into a closed set
// of shapes (Scalar, Mapping, Sequence, Timestamp). Normalize then walks that
// tree and produces a core.Metadata in which every leaf is a string, a
// nested mapping, or a sequence of strings and mappings.
package metadata
