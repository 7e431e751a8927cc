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

package monitor

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/gobwas/glob"
)

// KnownSet maps file names to the fingerprint they had when last seen.
type KnownSet map[string]string

// Clone returns an independent copy of k.
func (k KnownSet) Clone() KnownSet {
	if k == nil {
		return KnownSet{}
	}
	return maps.Clone(k)
}

// Mark records f as seen.
func (k KnownSet) Mark(f File) {
	k[f.Name] = f.Fingerprint
}

// File is a regular file found in the monitored directory.
type File struct {
	Name        string
	Path        string
	Size        int64
	ModTime     time.Time
	Fingerprint string
}

// Options filter which files Detect reports. Patterns match base names.
type Options struct {
	Include []string // Empty means every file
	Exclude []string
}

type matcher struct {
	include []glob.Glob
	exclude []glob.Glob
}

func compile(opts Options) (*matcher, error) {
	m := &matcher{}
	for _, p := range opts.Include {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("include pattern %q: %w", p, err)
		}
		m.include = append(m.include, g)
	}
	for _, p := range opts.Exclude {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", p, err)
		}
		m.exclude = append(m.exclude, g)
	}
	return m, nil
}

func (m *matcher) match(name string) bool {
	for _, g := range m.exclude {
		if g.Match(name) {
			return false
		}
	}
	if len(m.include) == 0 {
		return true
	}
	for _, g := range m.include {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Fingerprint hashes the name, size and modification time of a file.
func Fingerprint(name string, size int64, modTime time.Time) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(name))
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(size))
	binary.BigEndian.PutUint64(buf[8:], uint64(modTime.UnixNano()))
	h.Write(buf[:])
	return hex.EncodeToString(h.Sum(nil))
}

// Detect lists the files of dir that are absent from known or whose
// fingerprint changed, sorted by name. It returns them with a new KnownSet
// holding known plus every file currently in dir; known is not modified.
// Subdirectories and hidden files are ignored.
func Detect(dir string, known KnownSet, opts Options) ([]File, KnownSet, error) {
	m, err := compile(opts)
	if err != nil {
		return nil, nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	next := known.Clone()
	var found []File
	for _, entry := range entries {
		name := entry.Name()
		if hidden(name) || !entry.Type().IsRegular() || !m.match(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between listing and stat.
			continue
		}

		f := File{
			Name:        name,
			Path:        filepath.Join(dir, name),
			Size:        info.Size(),
			ModTime:     info.ModTime(),
			Fingerprint: Fingerprint(name, info.Size(), info.ModTime()),
		}
		if known[name] != f.Fingerprint {
			found = append(found, f)
		}
		next.Mark(f)
	}

	slices.SortFunc(found, func(a, b File) int { return strings.Compare(a.Name, b.Name) })
	return found, next, nil
}
