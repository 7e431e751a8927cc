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

package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/poiesic/filevec/core"
	"github.com/poiesic/filevec/storage"
)

// Row is the stored shape of a record.
type Row struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	Content   string          `gorm:"type:text;not null"`
	Embedding pgvector.Vector `gorm:"type:vector"`
	Metadata  datatypes.JSON  `gorm:"type:jsonb"`
}

// Sink writes rows with GORM.
type Sink struct {
	db     *gorm.DB
	logger *slog.Logger
}

var (
	_ storage.Sink       = (*Sink)(nil)
	_ storage.Purger     = (*Sink)(nil)
	_ storage.Counter    = (*Sink)(nil)
	_ storage.SinkCloser = (*Sink)(nil)
)

// Open connects to the database described by dsn, for example
// "host=localhost user=postgres dbname=vectors sslmode=disable".
func Open(dsn string) (*Sink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres DSN is required", core.ErrConfiguration)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, storage.Wrap("open", err)
	}
	return NewSink(db), nil
}

// NewSink wraps an existing GORM handle.
func NewSink(db *gorm.DB) *Sink {
	return &Sink{
		db:     db,
		logger: slog.Default().With("component", "pgvector-sink"),
	}
}

// Close closes the underlying connection pool.
func (s *Sink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return storage.Wrap("close", err)
	}
	return storage.Wrap("close", sqlDB.Close())
}

func (s *Sink) table(ctx context.Context, table string) (*gorm.DB, error) {
	if err := storage.ValidateIdentifier(table); err != nil {
		return nil, err
	}
	return s.db.WithContext(ctx).Table(table), nil
}

// Insert stores one row; the database assigns the id.
func (s *Sink) Insert(ctx context.Context, table string, record core.Record) error {
	tx, err := s.table(ctx, table)
	if err != nil {
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

	row := Row{
		Content:   record.Content,
		Embedding: pgvector.NewVector(record.Embedding),
		Metadata:  datatypes.JSON(raw),
	}
	if err := tx.Create(&row).Error; err != nil {
		return storage.Wrap("insert", err)
	}

	s.logger.Debug("row stored", "table", table, "id", row.ID)
	return nil
}

// DeleteAll removes every row of table.
func (s *Sink) DeleteAll(ctx context.Context, table string) (int, error) {
	tx, err := s.table(ctx, table)
	if err != nil {
		return 0, storage.Wrap("delete all", err)
	}

	result := tx.Where("id <> ?", 0).Delete(&Row{})
	if result.Error != nil {
		return 0, storage.Wrap("delete all", result.Error)
	}
	s.logger.Info("table purged", "table", table, "rows", result.RowsAffected)
	return int(result.RowsAffected), nil
}

// Count returns the number of rows in table.
func (s *Sink) Count(ctx context.Context, table string) (int, error) {
	tx, err := s.table(ctx, table)
	if err != nil {
		return 0, storage.Wrap("count", err)
	}

	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, storage.Wrap("count", err)
	}
	return int(n), nil
}
