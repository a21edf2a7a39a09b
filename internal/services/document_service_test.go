package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draco-cheng/backend-go/internal/config"
	apperrors "github.com/draco-cheng/backend-go/internal/errors"
	"github.com/draco-cheng/backend-go/internal/knowledge"
)

// stubEmbedder 固定向量的嵌入替身
type stubEmbedder struct {
	ready bool
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

func (s *stubEmbedder) Dimensions() int {
	return 2
}

func (s *stubEmbedder) Ready() bool {
	return s.ready
}

// recordingArchive 记录归档操作的对象存储替身
type recordingArchive struct {
	puts    []string
	removes []string
}

func (a *recordingArchive) Put(ctx context.Context, objectName string, data []byte, contentType string) error {
	a.puts = append(a.puts, objectName)
	return nil
}

func (a *recordingArchive) Remove(ctx context.Context, objectName string) error {
	a.removes = append(a.removes, objectName)
	return nil
}

func (a *recordingArchive) Ready() bool {
	return true
}

func newTestConfig() *config.Config {
	return &config.Config{
		Knowledge: config.KnowledgeConfig{
			ChunkSize:      50,
			ChunkOverlap:   10,
			TopK:           5,
			ScoreThreshold: 0.5,
		},
		AI: config.AIConfig{
			EmbeddingModel: "text-embedding-3-small",
		},
		Upload: config.UploadConfig{MaxSizeMB: 1},
	}
}

func newTestDocumentService(store knowledge.VectorStore) *DocumentService {
	cfg := newTestConfig()
	return NewDocumentService(
		cfg,
		knowledge.NewExtractorManager(),
		knowledge.NewChunker(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap),
		&stubEmbedder{ready: true},
		store,
		nil,
		NewMetricsService(),
	)
}

func TestUploadRoundTrip(t *testing.T) {
	store := knowledge.NewMemoryVectorStore()
	service := newTestDocumentService(store)

	content := strings.Repeat("A sentence about work experience. ", 10)
	result, err := service.Upload(context.Background(), "resume.txt", []byte(content))
	require.NoError(t, err)
	assert.NotEmpty(t, result.DocumentID)
	assert.Equal(t, "resume.txt", result.Filename)
	assert.Greater(t, result.ChunkCount, 1)
	assert.Equal(t, "success", result.Status)
	assert.Contains(t, result.Message, "Successfully processed")

	// 入库后的文档可以列出，分块数一致
	docs, err := service.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, result.DocumentID, docs[0].ID)
	assert.Equal(t, result.ChunkCount, docs[0].ChunkCount)
	assert.Equal(t, "txt", docs[0].FileType)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	service := newTestDocumentService(knowledge.NewMemoryVectorStore())

	_, err := service.Upload(context.Background(), "photo.png", []byte("binary"))
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 400, appErr.HTTPCode)
	assert.Contains(t, appErr.Message, "Unsupported file type")
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	service := newTestDocumentService(knowledge.NewMemoryVectorStore())

	// 超过1MB上限，在解析之前就被拒绝
	data := make([]byte, 2<<20)
	_, err := service.Upload(context.Background(), "big.txt", data)
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeFileTooLarge, appErr.Code)
}

func TestUploadRejectsShortContent(t *testing.T) {
	service := newTestDocumentService(knowledge.NewMemoryVectorStore())

	_, err := service.Upload(context.Background(), "tiny.txt", []byte("hi"))
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 400, appErr.HTTPCode)
	assert.Contains(t, appErr.Message, "too short")
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	service := newTestDocumentService(knowledge.NewMemoryVectorStore())

	_, err := service.Upload(context.Background(), "empty.txt", nil)
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 400, appErr.HTTPCode)
}

func TestUploadRequiresReadyEmbedder(t *testing.T) {
	cfg := newTestConfig()
	service := NewDocumentService(
		cfg,
		knowledge.NewExtractorManager(),
		knowledge.NewChunker(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap),
		&stubEmbedder{ready: false},
		knowledge.NewMemoryVectorStore(),
		nil,
		NewMetricsService(),
	)

	content := strings.Repeat("Some content here. ", 5)
	_, err := service.Upload(context.Background(), "a.txt", []byte(content))
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 503, appErr.HTTPCode)
}

func TestGetDocumentNotFound(t *testing.T) {
	service := newTestDocumentService(knowledge.NewMemoryVectorStore())

	_, err := service.GetDocument(context.Background(), "missing-id")
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 404, appErr.HTTPCode)
}

func TestDeleteDocumentRoundTrip(t *testing.T) {
	store := knowledge.NewMemoryVectorStore()
	service := newTestDocumentService(store)

	content := strings.Repeat("A paragraph with enough text to chunk. ", 10)
	result, err := service.Upload(context.Background(), "notes.txt", []byte(content))
	require.NoError(t, err)

	deleted, err := service.DeleteDocument(context.Background(), result.DocumentID)
	require.NoError(t, err)
	assert.True(t, deleted.Success)
	assert.Equal(t, int64(result.ChunkCount), deleted.ChunksDeleted)
	assert.Contains(t, deleted.Message, "notes.txt")

	// 删除后再次删除返回404
	_, err = service.DeleteDocument(context.Background(), result.DocumentID)
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 404, appErr.HTTPCode)
}

func TestArchiveLifecycle(t *testing.T) {
	cfg := newTestConfig()
	archive := &recordingArchive{}
	service := NewDocumentService(
		cfg,
		knowledge.NewExtractorManager(),
		knowledge.NewChunker(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap),
		&stubEmbedder{ready: true},
		knowledge.NewMemoryVectorStore(),
		archive,
		NewMetricsService(),
	)

	content := strings.Repeat("Archived content for lifecycle checks. ", 10)
	result, err := service.Upload(context.Background(), "cv.txt", []byte(content))
	require.NoError(t, err)

	// 上传归档原始文件，对象名为 documentID/filename
	require.Len(t, archive.puts, 1)
	assert.Equal(t, result.DocumentID+"/cv.txt", archive.puts[0])

	// 删除时同步清理归档对象
	_, err = service.DeleteDocument(context.Background(), result.DocumentID)
	require.NoError(t, err)
	require.Len(t, archive.removes, 1)
	assert.Equal(t, archive.puts[0], archive.removes[0])
}

func TestStorageStats(t *testing.T) {
	service := newTestDocumentService(knowledge.NewMemoryVectorStore())

	stats, err := service.StorageStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalDocuments)

	content := strings.Repeat("Statistics need some document content. ", 10)
	_, err = service.Upload(context.Background(), "stats.txt", []byte(content))
	require.NoError(t, err)

	stats, err = service.StorageStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalDocuments)
	assert.Greater(t, stats.TotalChunks, 0)
}
