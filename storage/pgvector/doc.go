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

// Package pgvector implements storage.Sink directly against PostgreSQL with
// the pgvector extension, using GORM.
//
// The target table must already exist with the layout:
//
//	CREATE TABLE documents (
//	    id        bigserial PRIMARY KEY,
//	    content   text NOT NULL,
//	    embedding vector(1024),
//	    metadata  jsonb
//	);
//
// The table name is chosen per call, so one sink serves any number of tables.
package pgvector
