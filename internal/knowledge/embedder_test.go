package knowledge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubbedEmbedder(t *testing.T, call batchFunc) *OpenAIEmbedder {
	t.Helper()
	embedder, ok := NewOpenAIEmbedder("test-key", "text-embedding-3-small").(*OpenAIEmbedder)
	require.True(t, ok)
	embedder.call = call
	return embedder
}

// textIndex 解析测试文本"text-<n>"中的序号
func textIndex(t *testing.T, text string) int {
	t.Helper()
	idx, err := strconv.Atoi(strings.TrimPrefix(text, "text-"))
	require.NoError(t, err)
	return idx
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	var mu sync.Mutex
	var batchSizes []int

	embedder := newStubbedEmbedder(t, func(ctx context.Context, texts []string) ([][]float32, error) {
		mu.Lock()
		batchSizes = append(batchSizes, len(texts))
		mu.Unlock()

		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = []float32{float32(textIndex(t, text))}
		}
		return vectors, nil
	})

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	results, err := embedder.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, results, 250)

	// 输出[i]对应输入[i]，与批次执行顺序无关
	for i, vector := range results {
		require.Len(t, vector, 1)
		assert.Equal(t, float32(i), vector[0])
	}

	// 250条按100上限分为 100+100+50 三批
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batchSizes, 3)
	total := 0
	for _, size := range batchSizes {
		assert.LessOrEqual(t, size, maxEmbeddingBatchSize)
		total += size
	}
	assert.Equal(t, 250, total)
}

func TestEmbedBatchFailureAbortsAll(t *testing.T) {
	embedder := newStubbedEmbedder(t, func(ctx context.Context, texts []string) ([][]float32, error) {
		for _, text := range texts {
			if text == "text-150" {
				return nil, fmt.Errorf("rate limited")
			}
		}
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{0}
		}
		return vectors, nil
	})

	texts := make([]string, 200)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	// 任一批次失败则整体失败，不返回部分结果
	results, err := embedder.EmbedBatch(context.Background(), texts)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Nil(t, results)
}

func TestEmbedBatchRejectsLengthMismatch(t *testing.T) {
	embedder := newStubbedEmbedder(t, func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	})

	_, err := embedder.EmbedBatch(context.Background(), []string{"text-0", "text-1"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 vectors")
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	embedder := newStubbedEmbedder(t, func(ctx context.Context, texts []string) ([][]float32, error) {
		t.Fatal("should not be called for empty input")
		return nil, nil
	})

	results, err := embedder.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEmbedSingleText(t *testing.T) {
	embedder := newStubbedEmbedder(t, func(ctx context.Context, texts []string) ([][]float32, error) {
		require.Len(t, texts, 1)
		return [][]float32{{0.1, 0.2}}, nil
	})

	vector, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vector)

	_, err = embedder.Embed(context.Background(), "   ")
	assert.Error(t, err)
}

func TestNoopEmbedderNotReady(t *testing.T) {
	noop := &NoopEmbedder{}
	assert.False(t, noop.Ready())

	_, err := noop.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrEmbedderNotConfigured)

	// 空API Key直接降级为Noop实现
	embedder := NewOpenAIEmbedder("", "text-embedding-3-small")
	assert.False(t, embedder.Ready())
}
