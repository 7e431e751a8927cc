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

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/poiesic/filevec/core"
	"github.com/poiesic/filevec/storage"
)

// Memory opens a private in-memory database.
const Memory = ":memory:"

// Sink stores rows in SQLite tables.
type Sink struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.Mutex
	tables map[string]bool
}

var (
	_ storage.Sink       = (*Sink)(nil)
	_ storage.Purger     = (*Sink)(nil)
	_ storage.Counter    = (*Sink)(nil)
	_ storage.Lister     = (*Sink)(nil)
	_ storage.SinkCloser = (*Sink)(nil)
)

// Open opens (creating if needed) the database file at path, or a private
// in-memory database when path is Memory.
func Open(path string) (*Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", core.ErrConfiguration)
	}

	dsn := path
	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, storage.Wrap("open", fmt.Errorf("creating data directory: %w", err))
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storage.Wrap("open", fmt.Errorf("opening database: %w", err))
	}
	// One connection serializes writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storage.Wrap("open", err)
	}

	return &Sink{
		db:     db,
		logger: slog.Default().With("component", "sqlite-sink"),
		tables: make(map[string]bool),
	}, nil
}

// Close closes the database connection.
func (s *Sink) Close() error {
	return storage.Wrap("close", s.db.Close())
}

func (s *Sink) ensureTable(ctx context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tables[table] {
		return nil
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %q (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			embedding BLOB NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			inserted_at DATETIME NOT NULL
		)`, table))
	if err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}
	s.tables[table] = true
	return nil
}

func (s *Sink) exists(ctx context.Context, table string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	return n > 0, err
}

// Insert stores one row; SQLite assigns the id.
func (s *Sink) Insert(ctx context.Context, table string, record core.Record) error {
	if err := storage.ValidateIdentifier(table); err != nil {
		return storage.Wrap("insert", err)
	}
	if err := s.ensureTable(ctx, table); err != nil {
		return storage.Wrap("insert", err)
	}

	metadata := record.Metadata
	if metadata == nil {
		metadata = core.Metadata{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return storage.Wrap("insert", fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err))
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %q (content, embedding, metadata, inserted_at) VALUES (?, ?, ?, ?)`, table),
		record.Content, storage.MarshalVector(record.Embedding), string(raw), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return storage.Wrap("insert", err)
	}

	id, _ := res.LastInsertId()
	s.logger.Debug("row stored", "table", table, "id", id)
	return nil
}

// Count returns the number of rows in table; a table never written to has none.
func (s *Sink) Count(ctx context.Context, table string) (int, error) {
	if err := storage.ValidateIdentifier(table); err != nil {
		return 0, storage.Wrap("count", err)
	}
	ok, err := s.exists(ctx, table)
	if err != nil {
		return 0, storage.Wrap("count", err)
	}
	if !ok {
		return 0, nil
	}

	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %q`, table)).Scan(&n); err != nil {
		return 0, storage.Wrap("count", err)
	}
	return n, nil
}

// DeleteAll removes every row of table and keeps the table.
func (s *Sink) DeleteAll(ctx context.Context, table string) (int, error) {
	if err := storage.ValidateIdentifier(table); err != nil {
		return 0, storage.Wrap("delete all", err)
	}
	ok, err := s.exists(ctx, table)
	if err != nil {
		return 0, storage.Wrap("delete all", err)
	}
	if !ok {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q`, table))
	if err != nil {
		return 0, storage.Wrap("delete all", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Info("table purged", "table", table, "rows", n)
	return int(n), nil
}

// List returns up to limit rows in id order. limit <= 0 returns every row.
func (s *Sink) List(ctx context.Context, table string, limit int) ([]core.Record, error) {
	if err := storage.ValidateIdentifier(table); err != nil {
		return nil, storage.Wrap("list", err)
	}
	ok, err := s.exists(ctx, table)
	if err != nil {
		return nil, storage.Wrap("list", err)
	}
	if !ok {
		return nil, nil
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, content, embedding, metadata, inserted_at FROM %q ORDER BY id LIMIT ?`, table), limit)
	if err != nil {
		return nil, storage.Wrap("list", err)
	}
	defer rows.Close()

	var records []core.Record
	for rows.Next() {
		var (
			id         int64
			content    string
			blob       []byte
			metadata   string
			insertedAt string
		)
		if err := rows.Scan(&id, &content, &blob, &metadata, &insertedAt); err != nil {
			return nil, storage.Wrap("list", err)
		}
		vec, err := storage.UnmarshalVector(blob)
		if err != nil {
			return nil, storage.Wrap("list", err)
		}
		record := core.Record{Id: core.ID(id), Content: content, Embedding: vec}
		if err := json.Unmarshal([]byte(metadata), &record.Metadata); err != nil {
			return nil, storage.Wrap("list", fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err))
		}
		record.InsertedAt, _ = time.Parse(time.RFC3339Nano, insertedAt)
		records = append(records, record)
	}
	return records, storage.Wrap("list", rows.Err())
}
