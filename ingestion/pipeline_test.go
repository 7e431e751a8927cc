package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/filevec/ai/mock"
	"github.com/poiesic/filevec/chunking"
	"github.com/poiesic/filevec/core"
	"github.com/poiesic/filevec/storage/badger"
)

// recordingSink keeps inserted rows in memory and fails the inserts listed
// in failOn (1-based call numbers).
type recordingSink struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
	rows   []core.Record
	tables []string
}

func newRecordingSink(failOn ...int) *recordingSink {
	s := &recordingSink{failOn: make(map[int]bool)}
	for _, n := range failOn {
		s.failOn[n] = true
	}
	return s
}

func (s *recordingSink) Insert(ctx context.Context, table string, record core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failOn[s.calls] {
		return errors.New("connection reset")
	}
	s.rows = append(s.rows, record)
	s.tables = append(s.tables, table)
	return nil
}

func (s *recordingSink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recordingObserver captures every observer event.
type recordingObserver struct {
	progress  [][2]int
	nothing   int
	summaries []*core.Run
}

func (o *recordingObserver) Progress(processed, total int) {
	o.progress = append(o.progress, [2]int{processed, total})
}
func (o *recordingObserver) NothingToUpload() { o.nothing++ }
func (o *recordingObserver) Summary(run *core.Run) { o.summaries = append(o.summaries, run) }

// fiveChunks is content that splits into exactly five chunks at size 100.
func fiveChunks() string {
	sentences := make([]string, 5)
	for i := range sentences {
		sentences[i] = fmt.Sprintf("This is sentence %d and it carries enough words to fill most of a chunk.", i+1)
	}
	return strings.Join(sentences, " ")
}

func testConfig() IngestConfig {
	return IngestConfig{Table: "documents", TargetDimension: 1024, ChunkSize: 100}
}

func newTestPipeline(t *testing.T, embedder *mock.MockEmbedder, sink *recordingSink, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithSplitter(chunking.RegexSplitter{})}, opts...)
	p, err := NewPipeline(embedder, sink, opts...)
	require.NoError(t, err)
	return p
}

func TestNewPipeline_RequiresCollaborators(t *testing.T) {
	_, err := NewPipeline(nil, newRecordingSink())
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewPipeline(mock.NewMockEmbedder(), nil)
	assert.ErrorIs(t, err, ErrSinkRequired)

	_, err = NewPipeline(mock.NewMockEmbedder(), newRecordingSink(), WithCallTimeout(0))
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestIngest_FiveChunksAllStored(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimension(1024)
	sink := newRecordingSink()
	p := newTestPipeline(t, embedder, sink)
	obs := &recordingObserver{}

	run, err := p.Ingest(context.Background(), fiveChunks(), map[string]any{"filename": "a.pdf"}, testConfig(), obs)
	require.NoError(t, err)

	assert.Equal(t, 5, run.Total)
	assert.Equal(t, 5, run.Attempted)
	assert.Equal(t, 5, run.Succeeded)
	assert.Zero(t, run.Failed)
	assert.Equal(t, core.RunSucceeded, run.Status())
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))

	require.Len(t, sink.rows, 5)
	for i, row := range sink.rows {
		assert.Contains(t, row.Content, fmt.Sprintf("sentence %d ", i+1), "rows are written in chunk order")
		assert.Len(t, row.Embedding, 1024)
		assert.Equal(t, core.Metadata{"filename": "a.pdf"}, row.Metadata)
		assert.Equal(t, "documents", sink.tables[i])
	}

	assert.Equal(t, [][2]int{{1, 5}, {2, 5}, {3, 5}, {4, 5}, {5, 5}}, obs.progress)
	require.Len(t, obs.summaries, 1)
	assert.Same(t, run, obs.summaries[0])
	assert.Zero(t, obs.nothing)
}

func TestIngest_OneOfFiveEmbeddingsFails(t *testing.T) {
	embedder := mock.NewFailingEmbedder(1024, 3)
	sink := newRecordingSink()
	p, err := NewPipeline(embedder, sink, WithSplitter(chunking.RegexSplitter{}))
	require.NoError(t, err)

	run, err := p.Ingest(context.Background(), fiveChunks(), nil, testConfig(), nil)
	require.NoError(t, err, "chunk failures are not run errors")

	assert.Equal(t, 4, run.Succeeded)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 5, run.Total)
	assert.Equal(t, core.RunPartial, run.Status())
	assert.Len(t, sink.rows, 4)

	require.Len(t, run.Failures, 1)
	assert.Equal(t, 2, run.Failures[0].Index)
	assert.ErrorIs(t, run.Failures[0].Err, core.ErrProvider)
}

func TestIngest_EmptyContent(t *testing.T) {
	for _, content := range []string{"", "   \n\t  "} {
		embedder := mock.NewMockEmbedder()
		sink := newRecordingSink()
		p := newTestPipeline(t, embedder, sink)
		obs := &recordingObserver{}

		run, err := p.Ingest(context.Background(), content, map[string]any{}, testConfig(), obs)
		require.NoError(t, err)

		assert.Zero(t, run.Total)
		assert.True(t, run.NothingToUpload())
		assert.Equal(t, core.RunEmpty, run.Status())
		assert.Zero(t, sink.Calls(), "no sink calls")
		assert.Zero(t, embedder.CallCount(), "no embed calls")
		assert.Equal(t, 1, obs.nothing)
		assert.Len(t, obs.summaries, 1)
		assert.Empty(t, obs.progress)
	}
}

func TestIngest_ConfigErrorsAbortBeforeWork(t *testing.T) {
	tests := []struct {
		name   string
		cfg    IngestConfig
		target error
	}{
		{"empty table", IngestConfig{TargetDimension: 1024, ChunkSize: 100}, core.ErrEmptyTable},
		{"unaccepted dimension", IngestConfig{Table: "t", TargetDimension: 1536, ChunkSize: 100}, core.ErrInvalidDimension},
		{"zero chunk size", IngestConfig{Table: "t", TargetDimension: 1024}, core.ErrInvalidChunkSize},
		{"negative chunk size", IngestConfig{Table: "t", TargetDimension: 1024, ChunkSize: -5}, core.ErrInvalidChunkSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := mock.NewMockEmbedder()
			sink := newRecordingSink()
			p := newTestPipeline(t, embedder, sink)

			run, err := p.Ingest(context.Background(), fiveChunks(), nil, tt.cfg, nil)
			assert.Nil(t, run)
			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.ErrorIs(t, err, tt.target)
			assert.Zero(t, embedder.CallCount())
			assert.Zero(t, sink.Calls())
		})
	}
}

func TestIngest_DimensionReconciliation(t *testing.T) {
	content := "Hello world. This is a test."

	tests := []struct {
		name   string
		native int
	}{
		{"truncate 1536 to 1024", 1536},
		{"pad 512 to 1024", 512},
		{"keep 1024", 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := newRecordingSink()
			p := newTestPipeline(t, mock.NewMockEmbedderWithDimension(tt.native), sink)

			run, err := p.Ingest(context.Background(), content, nil, testConfig(), nil)
			require.NoError(t, err)
			require.Equal(t, 1, run.Succeeded)

			raw, err := mock.NewMockEmbedderWithDimension(tt.native).EmbedText(context.Background(), content)
			require.NoError(t, err)

			stored := sink.rows[0].Embedding
			require.Len(t, stored, 1024)
			n := min(tt.native, 1024)
			assert.Equal(t, raw[:n], stored[:n], "prefix preserved")
			for _, v := range stored[n:] {
				assert.Zero(t, v, "padding is zero")
			}
		})
	}
}

func TestIngest_MetadataNormalizedOnce(t *testing.T) {
	sink := newRecordingSink()
	p := newTestPipeline(t, mock.NewMockEmbedder(), sink)
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	md := map[string]any{
		"filename": "report.docx",
		"pages":    12,
		"created":  when,
		"missing":  nil,
		"tags":     []any{"a", 2},
	}
	_, err := p.Ingest(context.Background(), fiveChunks(), md, testConfig(), nil)
	require.NoError(t, err)

	want := core.Metadata{
		"filename": "report.docx",
		"pages":    "12",
		"created":  "2024-05-01T12:00:00Z",
		"missing":  "",
		"tags":     []any{"a", "2"},
	}
	require.Len(t, sink.rows, 5)
	for _, row := range sink.rows {
		assert.Equal(t, want, row.Metadata)
	}
	assert.Equal(t, 12, md["pages"], "caller metadata is not mutated")
}

func TestIngest_StorageFailureContinues(t *testing.T) {
	sink := newRecordingSink(2)
	p := newTestPipeline(t, mock.NewMockEmbedder(), sink)

	run, err := p.Ingest(context.Background(), fiveChunks(), nil, testConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, 4, run.Succeeded)
	assert.Equal(t, 1, run.Failed)
	require.Len(t, run.Failures, 1)
	assert.Equal(t, 1, run.Failures[0].Index)
	assert.ErrorIs(t, run.Failures[0].Err, core.ErrStorage)
}

func TestIngest_AllChunksFail(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("401 unauthorized")
	}
	sink := newRecordingSink()
	p := newTestPipeline(t, embedder, sink)

	run, err := p.Ingest(context.Background(), fiveChunks(), nil, testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, core.RunFailed, run.Status())
	assert.Equal(t, 5, run.Failed)
	assert.Zero(t, sink.Calls())
	for _, f := range run.Failures {
		assert.ErrorIs(t, f.Err, core.ErrProvider)
	}
}

func TestIngest_EmptyVectorIsProviderError(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{}, nil
	}
	p := newTestPipeline(t, embedder, newRecordingSink())

	run, err := p.Ingest(context.Background(), "One sentence.", nil, testConfig(), nil)
	require.NoError(t, err)
	require.Len(t, run.Failures, 1)
	assert.ErrorIs(t, run.Failures[0].Err, core.ErrProvider)
}

func TestIngest_CancellationBetweenChunks(t *testing.T) {
	sink := newRecordingSink()
	p := newTestPipeline(t, mock.NewMockEmbedder(), sink)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var summaries int
	obs := ObserverFuncs{
		OnProgress: func(processed, total int) {
			if processed == 2 {
				cancel()
			}
		},
		OnSummary: func(*core.Run) { summaries++ },
	}

	run, err := p.Ingest(ctx, fiveChunks(), nil, testConfig(), obs)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, run)
	assert.True(t, run.Canceled)
	assert.Equal(t, core.RunCanceled, run.Status())
	assert.Equal(t, 2, run.Succeeded)
	assert.Len(t, sink.rows, 2, "written rows are kept")
	assert.Equal(t, 1, summaries)
}

func TestIngest_CallTimeout(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	sink := newRecordingSink()
	p := newTestPipeline(t, embedder, sink, WithCallTimeout(20*time.Millisecond))

	run, err := p.Ingest(context.Background(), "First sentence. Second sentence.", nil, testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, core.RunFailed, run.Status())
	require.NotEmpty(t, run.Failures)
	assert.ErrorIs(t, run.Failures[0].Err, core.ErrProvider)
	assert.ErrorIs(t, run.Failures[0].Err, context.DeadlineExceeded)
}

// stallingSink never returns from its first insert until ctx is done.
type stallingSink struct {
	recordingSink
	stalled bool
}

func (s *stallingSink) Insert(ctx context.Context, table string, record core.Record) error {
	s.mu.Lock()
	first := !s.stalled
	s.stalled = true
	s.mu.Unlock()
	if first {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.recordingSink.Insert(ctx, table, record)
}

func TestIngest_InsertTimeout(t *testing.T) {
	sink := &stallingSink{recordingSink: recordingSink{failOn: map[int]bool{}}}
	p, err := NewPipeline(mock.NewMockEmbedder(), sink,
		WithSplitter(chunking.RegexSplitter{}),
		WithCallTimeout(20*time.Millisecond),
	)
	require.NoError(t, err)

	run, err := p.Ingest(context.Background(), fiveChunks(), nil, testConfig(), nil)
	require.NoError(t, err)
	require.Len(t, run.Failures, 1)
	assert.Equal(t, 0, run.Failures[0].Index)
	assert.ErrorIs(t, run.Failures[0].Err, core.ErrStorage)
	assert.ErrorIs(t, run.Failures[0].Err, context.DeadlineExceeded)

	assert.Equal(t, 5, run.Processed(), "run continues past the stalled insert")
	assert.Equal(t, 4, run.Succeeded)
	assert.Equal(t, core.RunPartial, run.Status())
	assert.Len(t, sink.rows, 4)
}

func TestIngest_BadgerSink(t *testing.T) {
	sink, err := badger.NewMemorySink()
	require.NoError(t, err)
	defer sink.Close()

	p, err := NewPipeline(mock.NewMockEmbedderWithDimension(1536), sink, WithSplitter(chunking.RegexSplitter{}))
	require.NoError(t, err)

	run, err := p.Ingest(context.Background(), fiveChunks(), map[string]any{"filename": "a.txt"}, testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, run.Succeeded)

	rows, err := sink.List(context.Background(), "documents", 0)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for _, row := range rows {
		assert.Len(t, row.Embedding, 1024)
		assert.Equal(t, core.Metadata{"filename": "a.txt"}, row.Metadata)
	}
}

func TestIngest_DefaultSplitter(t *testing.T) {
	sink := newRecordingSink()
	p, err := NewPipeline(mock.NewMockEmbedder(), sink)
	require.NoError(t, err)

	run, err := p.Ingest(context.Background(), fiveChunks(), nil, testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, run.Total)
}
