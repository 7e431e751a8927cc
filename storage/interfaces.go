package storage

import (
	"context"
	"io"

	"github.com/poiesic/filevec/core"
)

// Sink persists records into named tables.
type Sink interface {
	// Insert stores one record in table. The sink assigns the row id.
	// Failures wrap core.ErrStorage.
	Insert(ctx context.Context, table string, record core.Record) error
}

// Purger removes every row of a table.
type Purger interface {
	// DeleteAll removes all rows from table and returns how many were removed.
	DeleteAll(ctx context.Context, table string) (int, error)
}

// Counter reports how many rows a table holds.
type Counter interface {
	Count(ctx context.Context, table string) (int, error)
}

// Lister reads back stored rows in insertion order.
type Lister interface {
	List(ctx context.Context, table string, limit int) ([]core.Record, error)
}

// SinkCloser is a Sink that holds resources.
type SinkCloser interface {
	Sink
	io.Closer
}
