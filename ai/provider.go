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

package ai

import (
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/filevec/core"
)

// Provider identifies an embedding backend.
type Provider int

const (
	// ProviderOpenAI selects the OpenAI embeddings API or a compatible server.
	ProviderOpenAI Provider = iota
	// ProviderCohere selects the Cohere embed API.
	ProviderCohere
)

// Providers lists every supported backend.
var Providers = []Provider{ProviderOpenAI, ProviderCohere}

func (p Provider) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderCohere:
		return "cohere"
	default:
		return fmt.Sprintf("provider(%d)", int(p))
	}
}

// Valid reports whether p is one of Providers.
func (p Provider) Valid() bool {
	return slices.Contains(Providers, p)
}

// ProviderNames returns the names accepted by ParseProvider.
func ProviderNames() []string {
	names := make([]string, len(Providers))
	for i, p := range Providers {
		names[i] = p.String()
	}
	return names
}

// ParseProvider converts a case-insensitive name into a Provider.
func ParseProvider(name string) (Provider, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, p := range Providers {
		if p.String() == normalized {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown embedding provider %q (want one of %s)",
		core.ErrConfiguration, name, strings.Join(ProviderNames(), ", "))
}

// MarshalText implements encoding.TextMarshaler.
func (p Provider) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: unknown embedding provider %d", core.ErrConfiguration, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Provider) UnmarshalText(text []byte) error {
	parsed, err := ParseProvider(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
