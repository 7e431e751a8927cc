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
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/filevec/storage"
)

// KnownFileStore persists the fingerprints of files already uploaded from a
// watched directory, so monitoring can resume after a restart.
type KnownFileStore struct {
	backend *Backend
}

// NewKnownFileStore creates a store on backend.
func NewKnownFileStore(backend *Backend) *KnownFileStore {
	return &KnownFileStore{
		backend: backend,
	}
}

// Load returns the name to fingerprint mapping saved for dir. An unknown
// directory yields an empty mapping.
func (k *KnownFileStore) Load(ctx context.Context, dir string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	known := make(map[string]string)
	prefix := makeKnownPrefix(dir)
	err := k.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			name := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				known[name] = string(val)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, storage.Wrap("load known files", err)
	}
	return known, nil
}

// Save records fingerprints for dir, replacing entries with the same name.
func (k *KnownFileStore) Save(ctx context.Context, dir string, known map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := k.backend.WithTx(func(tx *badger.Txn) error {
		for name, fingerprint := range known {
			if err := tx.Set(makeKnownKey(dir, name), []byte(fingerprint)); err != nil {
				return fmt.Errorf("save %s: %w", name, err)
			}
		}
		return tx.Commit()
	}, true)
	return storage.Wrap("save known files", err)
}

// Forget removes every saved fingerprint for dir.
func (k *KnownFileStore) Forget(dir string) error {
	_, err := k.backend.DeletePrefix(makeKnownPrefix(dir))
	return storage.Wrap("forget known files", err)
}
