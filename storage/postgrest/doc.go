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

// Package postgrest implements storage.Sink against a Supabase project
// through its PostgREST REST API.
//
// Requests go through the supabase-community postgrest client. Rows are
// posted to /rest/v1/{table} with the project's service key sent
// both as the apikey header and as a bearer token. The target table needs
// content (text), embedding (vector) and metadata (jsonb) columns and an
// id primary key the server generates.
package postgrest
