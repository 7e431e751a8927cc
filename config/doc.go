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

// Package config loads the application settings for filevec.
//
// Settings come from a YAML, TOML or JSON file and are overlaid by environment
// variables, optionally loaded from a .env file. The JSON form uses the flat
// key set of custom_settings.json (SUPABASE_URL, TABLE_NAME, EXPECTED_DIM...),
// the same names the environment overlay reads.
package config
