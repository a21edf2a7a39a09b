package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkerShortTextSingleChunk(t *testing.T) {
	chunker := NewChunker(1000, 200)

	chunks, err := chunker.Split("a short paragraph")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "a short paragraph", chunks[0].Text)
}

func TestChunkerEmptyInput(t *testing.T) {
	chunker := NewChunker(1000, 200)

	_, err := chunker.Split("")
	assert.ErrorIs(t, err, ErrNoChunks)

	_, err = chunker.Split("   \n\n  ")
	assert.ErrorIs(t, err, ErrNoChunks)
}

func TestChunkerPrefersParagraphBoundaries(t *testing.T) {
	chunker := NewChunker(15, 0)

	chunks, err := chunker.Split("alpha beta\n\ngamma delta")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "alpha beta", chunks[0].Text)
	assert.Equal(t, "gamma delta", chunks[1].Text)
}

func TestChunkerNeverExceedsMaxSize(t *testing.T) {
	words := make([]string, 200)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ")

	chunker := NewChunker(50, 10)
	chunks, err := chunker.Split(text)
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk.Text)), 50, "chunk %d too long", chunk.Index)
	}
}

func TestChunkerIndicesSequential(t *testing.T) {
	text := strings.Repeat("Sentence one. ", 40)

	chunker := NewChunker(60, 10)
	chunks, err := chunker.Split(text)
	require.NoError(t, err)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
	}
}

func TestChunkerDeterministic(t *testing.T) {
	text := strings.Repeat("Some sentence here. Another one follows. ", 30)

	chunker := NewChunker(80, 20)
	first, err := chunker.Split(text)
	require.NoError(t, err)
	second, err := chunker.Split(text)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestChunkerRuneFallback(t *testing.T) {
	// 没有任何分隔符时退化到按字符切分，步长=size-overlap
	text := strings.Repeat("a", 20)

	chunker := NewChunker(10, 2)
	chunks, err := chunker.Split(text)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 10, len(chunks[0].Text))
	assert.Equal(t, 10, len(chunks[1].Text))
	assert.Equal(t, 4, len(chunks[2].Text))
}

func TestChunkerKeepsOverlapContext(t *testing.T) {
	// 块尾的单词应作为重叠上下文出现在下一个块的开头
	text := "one two three four five six seven eight nine ten"

	chunker := NewChunker(20, 8)
	chunks, err := chunker.Split(text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1].Text)
		lastWord := prevWords[len(prevWords)-1]
		assert.True(t, strings.HasPrefix(chunks[i].Text, lastWord),
			"chunk %d should start with overlap from chunk %d", i, i-1)
	}
}

func TestChunkerClampsInvalidConfig(t *testing.T) {
	chunker := NewChunker(0, -1)
	assert.Equal(t, 1000, chunker.chunkSize)
	assert.Equal(t, 0, chunker.chunkOverlap)

	// overlap不小于size时收缩为size/4
	chunker = NewChunker(100, 100)
	assert.Equal(t, 25, chunker.chunkOverlap)
}
