package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draco-cheng/backend-go/internal/config"
	apperrors "github.com/draco-cheng/backend-go/internal/errors"
	"github.com/draco-cheng/backend-go/internal/knowledge"
	"github.com/draco-cheng/backend-go/internal/logger"
	"github.com/draco-cheng/backend-go/internal/storage"
)

// minCleanedTextChars 清洗后文本的最小长度，低于该值视为无效文档
const minCleanedTextChars = 10

// UploadResult 上传处理结果
type UploadResult struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunks_created"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// DeleteResult 删除处理结果
type DeleteResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ChunksDeleted int64  `json:"chunks_deleted"`
}

// DocumentService 文档入库与管理服务
type DocumentService struct {
	extractor *knowledge.ExtractorManager
	chunker   *knowledge.Chunker
	embedder  knowledge.Embedder
	store     knowledge.VectorStore
	archive   storage.ObjectStorage
	metrics   *MetricsService
	maxBytes  int64
}

// NewDocumentService 创建文档服务
func NewDocumentService(
	cfg *config.Config,
	extractor *knowledge.ExtractorManager,
	chunker *knowledge.Chunker,
	embedder knowledge.Embedder,
	store knowledge.VectorStore,
	archive storage.ObjectStorage,
	metrics *MetricsService,
) *DocumentService {
	return &DocumentService{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		archive:   archive,
		metrics:   metrics,
		maxBytes:  cfg.Upload.MaxUploadBytes(),
	}
}

// Upload 处理文档上传：提取文本、清洗、分块、向量化并入库
func (s *DocumentService) Upload(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	if !s.extractor.Supports(filename) {
		s.metrics.RecordUpload("rejected", 0)
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("Unsupported file type: %s. Supported types: pdf, docx, xlsx, md, txt", ext))
	}
	if int64(len(data)) > s.maxBytes {
		s.metrics.RecordUpload("rejected", 0)
		return nil, apperrors.NewFileTooLargeError(
			fmt.Sprintf("File too large. Maximum size is %d MB", s.maxBytes/(1024*1024)))
	}
	if len(data) == 0 {
		s.metrics.RecordUpload("rejected", 0)
		return nil, apperrors.NewValidationError("Uploaded file is empty")
	}

	if !s.embedder.Ready() {
		return nil, apperrors.NewDependencyUnavailableError("embedding service")
	}
	if !s.store.Ready() {
		return nil, apperrors.NewDependencyUnavailableError("vector store")
	}

	rawText, err := s.extractor.Extract(data, filename)
	if err != nil {
		s.metrics.RecordUpload("failed", 0)
		return nil, apperrors.NewExtractionError(
			fmt.Sprintf("Failed to parse %s: %v", filename, err))
	}

	cleaned := knowledge.Normalize(rawText)
	if len([]rune(cleaned)) < minCleanedTextChars {
		s.metrics.RecordUpload("rejected", 0)
		return nil, apperrors.NewValidationError("File content is too short or empty")
	}

	chunks, err := s.chunker.Split(cleaned)
	if err != nil {
		s.metrics.RecordUpload("failed", 0)
		return nil, apperrors.NewExtractionError(
			fmt.Sprintf("Failed to chunk %s: %v", filename, err))
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		s.metrics.RecordUpload("failed", 0)
		return nil, apperrors.NewUpstreamError("embedding generation", err)
	}
	s.metrics.RecordEmbeddingBatches((len(texts) + 99) / 100)

	documentID := uuid.NewString()
	uploadDate := time.Now().UTC().Format(time.RFC3339)
	fileType := strings.TrimPrefix(ext, ".")

	records := make([]knowledge.ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = knowledge.ChunkRecord{
			Filename:   filename,
			ChunkIndex: chunk.Index,
			Content:    chunk.Text,
			Embedding:  embeddings[i],
			Metadata: knowledge.ChunkMetadata{
				DocumentID:  documentID,
				UploadDate:  uploadDate,
				FileType:    fileType,
				TotalChunks: len(chunks),
			},
		}
	}

	if _, err := s.store.Insert(ctx, records); err != nil {
		s.metrics.RecordUpload("failed", 0)
		return nil, apperrors.NewUpstreamError("vector store insert", err)
	}

	// 原始文件归档失败不影响入库结果
	if s.archive != nil {
		objectName := fmt.Sprintf("%s/%s", documentID, filename)
		if err := s.archive.Put(ctx, objectName, data, ""); err != nil {
			logger.Warn("raw file archive failed",
				zap.String("document_id", documentID),
				zap.Error(err))
		}
	}

	s.metrics.RecordUpload("success", len(chunks))
	logger.Info("document ingested",
		zap.String("document_id", documentID),
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)))

	return &UploadResult{
		DocumentID: documentID,
		Filename:   filename,
		ChunkCount: len(chunks),
		Status:     "success",
		Message:    fmt.Sprintf("Successfully processed %s into %d chunks", filename, len(chunks)),
	}, nil
}

// ListDocuments 列出全部已入库文档
func (s *DocumentService) ListDocuments(ctx context.Context) ([]knowledge.DocumentSummary, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, apperrors.NewUpstreamError("vector store list", err)
	}
	return docs, nil
}

// GetDocument 按ID获取文档摘要
func (s *DocumentService) GetDocument(ctx context.Context, documentID string) (*knowledge.DocumentSummary, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, apperrors.NewUpstreamError("vector store get", err)
	}
	if doc == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("Document %s", documentID))
	}
	return doc, nil
}

// DeleteDocument 删除文档的全部分块
func (s *DocumentService) DeleteDocument(ctx context.Context, documentID string) (*DeleteResult, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, apperrors.NewUpstreamError("vector store get", err)
	}
	if doc == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("Document %s", documentID))
	}

	deleted, err := s.store.DeleteDocument(ctx, documentID)
	if err != nil {
		return nil, apperrors.NewUpstreamError("vector store delete", err)
	}

	// 同步清理归档的原始文件，失败不影响删除结果
	if s.archive != nil {
		objectName := fmt.Sprintf("%s/%s", documentID, doc.Filename)
		if err := s.archive.Remove(ctx, objectName); err != nil {
			logger.Warn("raw file archive cleanup failed",
				zap.String("document_id", documentID),
				zap.Error(err))
		}
	}

	s.metrics.RecordDelete()
	logger.Info("document deleted",
		zap.String("document_id", documentID),
		zap.Int64("chunks_deleted", deleted))

	return &DeleteResult{
		Success:       true,
		Message:       fmt.Sprintf("Successfully deleted document %s", doc.Filename),
		ChunksDeleted: deleted,
	}, nil
}

// StorageStats 返回存储统计
func (s *DocumentService) StorageStats(ctx context.Context) (*knowledge.StorageStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, apperrors.NewUpstreamError("vector store stats", err)
	}
	return stats, nil
}
