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
	"reflect"
	"time"
)

// Value is one node of classified metadata. The set of implementations is
// closed: Scalar, Mapping, Sequence and Timestamp.
type Value interface {
	isValue()
}

// Scalar is any leaf that is not a timestamp.
type Scalar struct {
	V any
}

// Mapping is a string-keyed collection of values.
type Mapping struct {
	Entries map[string]Value
}

// Sequence is an ordered collection of values.
type Sequence struct {
	Items []Value
}

// Timestamp is a point in time. A nil *time.Time is carried as Valid=false.
type Timestamp struct {
	T     time.Time
	Valid bool
}

func (Scalar) isValue()    {}
func (Mapping) isValue()   {}
func (Sequence) isValue()  {}
func (Timestamp) isValue() {}

var stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()

// Of classifies v. Maps of any key type become Mapping (keys are rendered
// with fmt), slices and arrays become Sequence except byte slices, which are
// scalars.
func Of(v any) Value {
	switch x := v.(type) {
	case nil:
		return Scalar{}
	case Value:
		return x
	case time.Time:
		return Timestamp{T: x, Valid: true}
	case *time.Time:
		if x == nil {
			return Timestamp{}
		}
		return Timestamp{T: *x, Valid: true}
	case map[string]any:
		entries := make(map[string]Value, len(x))
		for k, e := range x {
			entries[k] = Of(e)
		}
		return Mapping{Entries: entries}
	case []any:
		items := make([]Value, len(x))
		for i, e := range x {
			items[i] = Of(e)
		}
		return Sequence{Items: items}
	case string, bool, []byte, fmt.Stringer, error:
		return Scalar{V: x}
	}

	rv := reflect.ValueOf(v)
	if rv.Type().Implements(stringerType) {
		return Scalar{V: v}
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Scalar{}
		}
		return Of(rv.Elem().Interface())
	case reflect.Map:
		entries := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries[fmt.Sprint(iter.Key().Interface())] = Of(iter.Value().Interface())
		}
		return Mapping{Entries: entries}
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Sequence{Items: []Value{}}
		}
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = Of(rv.Index(i).Interface())
		}
		return Sequence{Items: items}
	}
	return Scalar{V: v}
}
