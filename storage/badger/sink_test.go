package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/filevec/core"
	"github.com/poiesic/filevec/storage"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	sink, err := NewMemorySink()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

func record(content string) core.Record {
	return core.Record{
		Content:   content,
		Embedding: []float32{1, 2, 3},
		Metadata:  core.Metadata{"source": "test"},
	}
}

func TestSink_InsertAndList(t *testing.T) {
	ctx := context.Background()
	sink := newTestSink(t)

	for i := range 12 {
		require.NoError(t, sink.Insert(ctx, "documents", record(fmt.Sprintf("chunk %d", i))))
	}

	rows, err := sink.List(ctx, "documents", 0)
	require.NoError(t, err)
	require.Len(t, rows, 12)

	// Insertion order survives the 9 -> 10 id boundary.
	for i, row := range rows {
		assert.Equal(t, fmt.Sprintf("chunk %d", i), row.Content)
		assert.NotZero(t, row.Id)
		assert.False(t, row.InsertedAt.IsZero())
		assert.Equal(t, []float32{1, 2, 3}, row.Embedding)
		assert.Equal(t, core.Metadata{"source": "test"}, row.Metadata)
	}
	assert.Less(t, rows[0].Id, rows[11].Id)

	limited, err := sink.List(ctx, "documents", 5)
	require.NoError(t, err)
	assert.Len(t, limited, 5)
}

func TestSink_TablesAreIsolated(t *testing.T) {
	ctx := context.Background()
	sink := newTestSink(t)

	require.NoError(t, sink.Insert(ctx, "a", record("one")))
	require.NoError(t, sink.Insert(ctx, "a", record("two")))
	require.NoError(t, sink.Insert(ctx, "ab", record("three")))

	n, err := sink.Count(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = sink.Count(ctx, "ab")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = sink.Count(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSink_DeleteAll(t *testing.T) {
	ctx := context.Background()
	sink := newTestSink(t)

	for i := range 3 {
		require.NoError(t, sink.Insert(ctx, "docs", record(fmt.Sprint(i))))
	}
	require.NoError(t, sink.Insert(ctx, "other", record("keep")))

	removed, err := sink.DeleteAll(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	n, err := sink.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = sink.Count(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Ids keep growing after a purge.
	require.NoError(t, sink.Insert(ctx, "docs", record("again")))
	rows, err := sink.List(ctx, "docs", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Greater(t, rows[0].Id, core.ID(3))
}

func TestSink_Errors(t *testing.T) {
	ctx := context.Background()
	sink := newTestSink(t)

	err := sink.Insert(ctx, "", record("x"))
	assert.ErrorIs(t, err, core.ErrStorage)
	assert.ErrorIs(t, err, core.ErrEmptyTable)

	err = sink.Insert(ctx, "bad:name", record("x"))
	assert.ErrorIs(t, err, storage.ErrInvalidTable)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	err = sink.Insert(canceled, "docs", record("x"))
	assert.ErrorIs(t, err, core.ErrStorage)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSink_Closed(t *testing.T) {
	sink, err := NewMemorySink()
	require.NoError(t, err)
	require.NoError(t, sink.Insert(context.Background(), "docs", record("x")))
	require.NoError(t, sink.Close())

	err = sink.Insert(context.Background(), "docs", record("y"))
	assert.ErrorIs(t, err, core.ErrStorage)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestSink_SharedBackendNotClosed(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	sink := NewSink(backend)
	require.NoError(t, sink.Insert(context.Background(), "docs", record("x")))
	require.NoError(t, sink.Close())
	assert.False(t, backend.IsClosed())
}

func TestSink_ConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	sink := newTestSink(t)

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 25 {
				assert.NoError(t, sink.Insert(ctx, "docs", record(fmt.Sprintf("%d-%d", w, i))))
			}
		}()
	}
	wg.Wait()

	rows, err := sink.List(ctx, "docs", 0)
	require.NoError(t, err)
	require.Len(t, rows, 100)

	seen := make(map[core.ID]bool)
	for _, row := range rows {
		assert.False(t, seen[row.Id], "duplicate id %d", row.Id)
		seen[row.Id] = true
	}
}
