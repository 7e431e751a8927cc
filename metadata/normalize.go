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

package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/filevec/core"
)

// TimeFormat is the layout used for timestamps.
const TimeFormat = time.RFC3339Nano

// Normalize converts v into JSON-safe metadata. Anything that is not a
// mapping yields an empty mapping. The input is never mutated and
// Normalize(Normalize(m)) equals Normalize(m).
func Normalize(v any) core.Metadata {
	m, ok := Of(v).(Mapping)
	if !ok {
		return core.Metadata{}
	}
	return normalizeMapping(m)
}

func normalizeMapping(m Mapping) core.Metadata {
	out := make(core.Metadata, len(m.Entries))
	for k, v := range m.Entries {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v Value) any {
	switch x := v.(type) {
	case Mapping:
		return normalizeMapping(x)
	case Sequence:
		items := make([]any, len(x.Items))
		for i, item := range x.Items {
			if m, ok := item.(Mapping); ok {
				items[i] = normalizeMapping(m)
				continue
			}
			items[i] = String(item)
		}
		return items
	default:
		return String(v)
	}
}

// String renders a single value as a string. Mappings and sequences are
// rendered after their own normalization.
func String(v Value) string {
	switch x := v.(type) {
	case Timestamp:
		if !x.Valid {
			return ""
		}
		return x.T.Format(TimeFormat)
	case Scalar:
		return scalarString(x.V)
	case Sequence:
		parts := make([]string, len(x.Items))
		for i, item := range x.Items {
			parts[i] = String(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Mapping:
		return fmt.Sprint(normalizeMapping(x))
	default:
		return ""
	}
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	default:
		return fmt.Sprint(x)
	}
}
