package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/draco-cheng/backend-go/internal/errors"
	"github.com/draco-cheng/backend-go/internal/knowledge"
)

// recordingGenerator 记录收到的消息序列的生成替身
type recordingGenerator struct {
	ready    bool
	answer   string
	calls    int
	received []knowledge.Message
}

func (g *recordingGenerator) Complete(ctx context.Context, messages []knowledge.Message) (string, error) {
	g.calls++
	g.received = messages
	return g.answer, nil
}

func (g *recordingGenerator) Ready() bool {
	return g.ready
}

func newTestRAGService(store knowledge.VectorStore, generator knowledge.Generator) *RAGService {
	return NewRAGService(
		newTestConfig(),
		&stubEmbedder{ready: true},
		generator,
		store,
		nil,
		NewMetricsService(),
	)
}

func seedStore(t *testing.T, store knowledge.VectorStore, documentID, filename string, contents ...string) {
	t.Helper()

	records := make([]knowledge.ChunkRecord, len(contents))
	for i, content := range contents {
		records[i] = knowledge.ChunkRecord{
			Filename:   filename,
			ChunkIndex: i,
			Content:    content,
			Embedding:  []float32{1, 0},
			Metadata: knowledge.ChunkMetadata{
				DocumentID:  documentID,
				UploadDate:  "2026-01-01T00:00:00Z",
				FileType:    "txt",
				TotalChunks: len(contents),
			},
		}
	}

	_, err := store.Insert(context.Background(), records)
	require.NoError(t, err)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	generator := &recordingGenerator{ready: true, answer: "hi"}
	service := newTestRAGService(knowledge.NewMemoryVectorStore(), generator)

	_, err := service.Chat(context.Background(), &ChatRequest{Message: "   "})
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 400, appErr.HTTPCode)
	assert.Equal(t, "Message cannot be empty", appErr.Message)
	assert.Equal(t, 0, generator.calls)
}

func TestChatRequiresReadyGenerator(t *testing.T) {
	generator := &recordingGenerator{ready: false}
	service := newTestRAGService(knowledge.NewMemoryVectorStore(), generator)

	_, err := service.Chat(context.Background(), &ChatRequest{Message: "hello"})
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 503, appErr.HTTPCode)
}

func TestChatEmptyStoreFallback(t *testing.T) {
	generator := &recordingGenerator{ready: true, answer: "should not be used"}
	service := newTestRAGService(knowledge.NewMemoryVectorStore(), generator)

	resp, err := service.Chat(context.Background(), &ChatRequest{Message: "Who is Draco?"})
	require.NoError(t, err)

	// 空知识库直接兜底，不调用生成服务
	assert.Equal(t, noDocumentsResponse, resp.Response)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, 0, generator.calls)
}

func TestChatWithRetrieval(t *testing.T) {
	store := knowledge.NewMemoryVectorStore()
	longContent := strings.Repeat("Draco has ten years of backend experience. ", 10)
	seedStore(t, store, "doc-1", "resume.txt", longContent, "Draco studied computer science.")

	generator := &recordingGenerator{ready: true, answer: "He is an engineer."}
	service := newTestRAGService(store, generator)

	resp, err := service.Chat(context.Background(), &ChatRequest{
		Message: "What does Draco do?",
		History: []ChatMessage{
			{Role: "user", Content: "Hi"},
			{Role: "assistant", Content: "Hello!"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "He is an engineer.", resp.Response)
	assert.Equal(t, 1, generator.calls)

	// 消息顺序：系统提示、检索上下文、历史、当前问题
	messages := generator.received
	require.Len(t, messages, 5)
	assert.Equal(t, knowledge.RoleSystem, messages[0].Role)
	assert.Equal(t, knowledge.RoleSystem, messages[1].Role)
	assert.Contains(t, messages[1].Content, "backend experience")
	assert.Equal(t, "Hi", messages[2].Content)
	assert.Equal(t, "Hello!", messages[3].Content)
	assert.Equal(t, knowledge.RoleUser, messages[4].Role)
	assert.Equal(t, "What does Draco do?", messages[4].Content)

	// 来源带200字符预览和分数
	require.Len(t, resp.Sources, 2)
	for _, source := range resp.Sources {
		assert.Equal(t, "doc-1", source.DocumentID)
		assert.Equal(t, "resume.txt", source.Filename)
		assert.True(t, strings.HasSuffix(source.Content, "..."))
		assert.LessOrEqual(t, len([]rune(source.Content)), sourcePreviewChars+3)
		assert.GreaterOrEqual(t, source.Score, 0.5)
	}
}

func TestChatDirectModeSkipsRetrieval(t *testing.T) {
	store := knowledge.NewMemoryVectorStore()
	seedStore(t, store, "doc-1", "resume.txt", "Draco builds services.")

	generator := &recordingGenerator{ready: true, answer: "direct answer"}
	service := newTestRAGService(store, generator)

	useRAG := false
	resp, err := service.Chat(context.Background(), &ChatRequest{
		Message: "Tell me a joke",
		UseRAG:  &useRAG,
	})
	require.NoError(t, err)
	assert.Equal(t, "direct answer", resp.Response)
	assert.Empty(t, resp.Sources)

	// 直连模式：只有系统提示和用户消息，没有检索上下文
	require.Len(t, generator.received, 2)
	assert.Equal(t, knowledge.RoleSystem, generator.received[0].Role)
	assert.Equal(t, knowledge.RoleUser, generator.received[1].Role)
}

func TestPreviewContent(t *testing.T) {
	short := previewContent("short text")
	assert.Equal(t, "short text...", short)

	long := previewContent(strings.Repeat("x", 500))
	assert.Equal(t, sourcePreviewChars+3, len([]rune(long)))
	assert.True(t, strings.HasSuffix(long, "..."))
}
