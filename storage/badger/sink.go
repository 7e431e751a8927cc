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
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/filevec/core"
	"github.com/poiesic/filevec/storage"
)

// Sink stores rows in a local badger database. Each table gets its own key
// prefix and id sequence; row values are JSON.
type Sink struct {
	backend   *Backend
	ownsStore bool
	logger    *slog.Logger

	mu   sync.Mutex
	seqs map[string]*badger.Sequence
}

var (
	_ storage.Sink       = (*Sink)(nil)
	_ storage.Purger     = (*Sink)(nil)
	_ storage.Counter    = (*Sink)(nil)
	_ storage.Lister     = (*Sink)(nil)
	_ storage.SinkCloser = (*Sink)(nil)
)

// NewSink creates a sink on an already open backend. Closing the sink does
// not close the backend.
func NewSink(backend *Backend) *Sink {
	return &Sink{
		backend: backend,
		logger:  slog.Default().With("component", "badger-sink"),
		seqs:    make(map[string]*badger.Sequence),
	}
}

// OpenSink opens a backend at path and returns a sink that owns it.
func OpenSink(path string, inMemory bool) (*Sink, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, storage.Wrap("open", err)
	}
	s := NewSink(backend)
	s.ownsStore = true
	return s, nil
}

// Backend exposes the underlying database.
func (s *Sink) Backend() *Backend {
	return s.backend
}

// Close releases id sequences and, when the sink opened it, the backend.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for table, seq := range s.seqs {
		if err := seq.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release sequence %s: %w", table, err))
		}
	}
	s.seqs = make(map[string]*badger.Sequence)

	if s.ownsStore && !s.backend.IsClosed() {
		if err := s.backend.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return storage.Wrap("close", errors.Join(errs...))
}

func (s *Sink) sequence(table string) (*badger.Sequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq, ok := s.seqs[table]; ok {
		return seq, nil
	}
	seq, err := s.backend.GetSequence(makeSequenceKey(table))
	if err != nil {
		return nil, err
	}
	s.seqs[table] = seq
	return seq, nil
}

func (s *Sink) nextID(table string) (core.ID, error) {
	seq, err := s.sequence(table)
	if err != nil {
		return 0, err
	}
	nextID, err := seq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if nextID == 0 {
		nextID, err = seq.Next()
		if err != nil {
			return 0, err
		}
	}
	return core.ID(nextID), nil
}

func (s *Sink) check(ctx context.Context, table string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return validateTable(table)
}

// Insert stores record under a freshly allocated id.
func (s *Sink) Insert(ctx context.Context, table string, record core.Record) error {
	if err := s.check(ctx, table); err != nil {
		return storage.Wrap("insert", err)
	}

	id, err := s.nextID(table)
	if err != nil {
		return storage.Wrap("insert", err)
	}
	record.Id = id
	record.InsertedAt = time.Now().UTC()

	value, err := storage.MarshalRecord(&record)
	if err != nil {
		return storage.Wrap("insert", err)
	}

	err = s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeRowKey(table, id), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return storage.Wrap("insert", err)
	}

	s.logger.Debug("row stored", "table", table, "id", id, "length", len(record.Content))
	return nil
}

// Count returns the number of rows in table.
func (s *Sink) Count(ctx context.Context, table string) (int, error) {
	if err := s.check(ctx, table); err != nil {
		return 0, storage.Wrap("count", err)
	}

	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeTablePrefix(table)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, storage.Wrap("count", err)
	}
	return count, nil
}

// List returns up to limit rows of table in insertion order. limit <= 0
// returns every row.
func (s *Sink) List(ctx context.Context, table string, limit int) ([]core.Record, error) {
	if err := s.check(ctx, table); err != nil {
		return nil, storage.Wrap("list", err)
	}

	var records []core.Record
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeTablePrefix(table)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			err := iter.Item().Value(func(val []byte) error {
				record, err := storage.UnmarshalRecord(val)
				if err != nil {
					return err
				}
				records = append(records, *record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, storage.Wrap("list", err)
	}
	return records, nil
}

// DeleteAll removes every row of table. The id sequence keeps counting.
func (s *Sink) DeleteAll(ctx context.Context, table string) (int, error) {
	if err := s.check(ctx, table); err != nil {
		return 0, storage.Wrap("delete all", err)
	}
	count, err := s.backend.DeletePrefix(makeTablePrefix(table))
	if err != nil {
		return count, storage.Wrap("delete all", err)
	}
	s.logger.Info("table purged", "table", table, "rows", count)
	return count, nil
}
