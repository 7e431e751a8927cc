package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/filevec/core"
)

func TestChunker_Chunk(t *testing.T) {
	chunker := NewChunker(RegexSplitter{})

	t.Run("sentences grouped under the limit", func(t *testing.T) {
		chunks, err := chunker.Chunk("Hello world. This is a test. Short.", 20)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		assert.Equal(t, "Hello world.", chunks[0].Text)
		assert.Equal(t, "This is a test.", chunks[1].Text)
		assert.Equal(t, "Short.", chunks[2].Text)
		for i, ch := range chunks {
			assert.Equal(t, i, ch.Index)
			assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 20)
		}
	})

	t.Run("everything fits in one chunk", func(t *testing.T) {
		chunks, err := chunker.Split("Hello world. This is a test. Short.", 100)
		require.NoError(t, err)
		assert.Equal(t, []string{"Hello world. This is a test. Short."}, chunks)
	})

	t.Run("separator counts toward the limit", func(t *testing.T) {
		// "Aaaa." + " " + "Bbbb." is 11 characters.
		chunks, err := chunker.Split("Aaaa. Bbbb.", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"Aaaa.", "Bbbb."}, chunks)

		chunks, err = chunker.Split("Aaaa. Bbbb.", 11)
		require.NoError(t, err)
		assert.Equal(t, []string{"Aaaa. Bbbb."}, chunks)
	})

	t.Run("oversized sentence kept whole", func(t *testing.T) {
		long := strings.Repeat("x", 50) + "."
		chunks, err := chunker.Split("Tiny. "+long+" End.", 20)
		require.NoError(t, err)
		assert.Equal(t, []string{"Tiny.", long, "End."}, chunks)
	})

	t.Run("oversized first sentence does not produce an empty chunk", func(t *testing.T) {
		long := strings.Repeat("y", 30) + "."
		chunks, err := chunker.Split(long, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{long}, chunks)
	})

	t.Run("blank input", func(t *testing.T) {
		chunks, err := chunker.Chunk(" \n ", 100)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("invalid size", func(t *testing.T) {
		for _, size := range []int{0, -1} {
			_, err := chunker.Chunk("Hello.", size)
			assert.ErrorIs(t, err, core.ErrConfiguration)
		}
	})

	t.Run("source bytes counted", func(t *testing.T) {
		chunks, err := chunker.Chunk("Héllo. World.", 100)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, len("Héllo.")+len("World."), chunks[0].SourceBytes)
	})

	t.Run("lengths measured in characters", func(t *testing.T) {
		// Each sentence is 6 runes but more bytes.
		chunks, err := chunker.Split("Ééééé. Ààààà.", 13)
		require.NoError(t, err)
		assert.Equal(t, []string{"Ééééé. Ààààà."}, chunks)
	})
}

type stubSplitter []string

func (s stubSplitter) Split(string) []string { return s }

func TestChunker_SkipsBlankSentences(t *testing.T) {
	chunker := NewChunker(stubSplitter{"", "  ", "One.", "\t", "Two."})
	chunks, err := chunker.Split("ignored", 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"One. Two."}, chunks)
}

func TestChunker_Properties(t *testing.T) {
	text := "Go is expressive, concise, clean, and efficient. Its concurrency mechanisms make it easy to " +
		"write programs that get the most out of multicore and networked machines. Its novel type system " +
		"enables flexible and modular program construction! Go compiles quickly to machine code yet has " +
		"the convenience of garbage collection and the power of run-time reflection? It is a fast, " +
		"statically typed, compiled language that feels like a dynamically typed, interpreted language."

	splitter := RegexSplitter{}
	sentences := splitter.Split(text)
	chunker := NewChunker(splitter)

	for _, size := range []int{10, 40, 100, 150, 1000} {
		chunks, err := chunker.Split(text, size)
		require.NoError(t, err)

		// Concatenation reconstructs the sentence content in order.
		assert.Equal(t, strings.Join(sentences, " "), strings.Join(chunks, " "), "size %d", size)

		for _, ch := range chunks {
			assert.NotEmpty(t, strings.TrimSpace(ch))
			if utf8.RuneCountInString(ch) > size {
				// Only a single sentence may exceed the limit.
				assert.Contains(t, sentences, ch, "size %d", size)
			}
		}
	}
}
