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

// Package sqlite implements storage.Sink on an embedded SQLite database using
// the pure-Go modernc.org/sqlite driver.
//
// Each target table is created on first use with the columns id, content,
// embedding (little-endian float32 BLOB), metadata (JSON text) and
// inserted_at.
package sqlite
