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

package badger

import (
	"fmt"
	"strings"

	"github.com/poiesic/filevec/core"
	"github.com/poiesic/filevec/storage"
)

const (
	rowPrefix      = "row"
	rowIDSeqPrefix = "rowseq"
	knownPrefix    = "known"
)

// validateTable rejects names that would break key framing.
func validateTable(table string) error {
	if err := core.ValidateTable(table); err != nil {
		return err
	}
	if strings.ContainsAny(table, ":\x00") {
		return fmt.Errorf("%w: %q", storage.ErrInvalidTable, table)
	}
	return nil
}

func makeTablePrefix(table string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", rowPrefix, table))
}

func makeRowKey(table string, id core.ID) []byte {
	prefix := makeTablePrefix(table)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// BigEndian so lexicographic order is insertion order
	copy(buf[offset:], storage.MarshalID(id))
	return buf
}

func makeSequenceKey(table string) string {
	return fmt.Sprintf("%s:%s", rowIDSeqPrefix, table)
}

func makeKnownPrefix(dir string) []byte {
	return []byte(fmt.Sprintf("%s:%s\x00", knownPrefix, dir))
}

func makeKnownKey(dir, name string) []byte {
	return append(makeKnownPrefix(dir), name...)
}
