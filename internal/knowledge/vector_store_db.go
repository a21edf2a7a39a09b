package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// chunkRow 分块在关系库中的行结构，向量以JSON存储
type chunkRow struct {
	ID         uint   `gorm:"primaryKey"`
	DocumentID string `gorm:"size:64;index"`
	Filename   string `gorm:"size:512"`
	ChunkIndex int
	Content    string `gorm:"type:text"`
	FileType   string `gorm:"size:16"`
	UploadDate string `gorm:"size:64"`
	TotalCount int
	Embedding  string `gorm:"type:text"`
	CreatedAt  time.Time
}

func (chunkRow) TableName() string {
	return "document_chunks"
}

type databaseVectorStore struct {
	db *gorm.DB
}

// NewDatabaseVectorStore 创建基于Postgres的向量存储，向量检索在内存中计算
func NewDatabaseVectorStore(dsn string) (VectorStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(&chunkRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate chunk table: %w", err)
	}

	return &databaseVectorStore{db: db}, nil
}

func (s *databaseVectorStore) Insert(ctx context.Context, chunks []ChunkRecord) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	rows := make([]chunkRow, 0, len(chunks))
	for _, chunk := range chunks {
		embeddingJSON, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to encode embedding: %w", err)
		}
		rows = append(rows, chunkRow{
			DocumentID: chunk.Metadata.DocumentID,
			Filename:   chunk.Filename,
			ChunkIndex: chunk.ChunkIndex,
			Content:    chunk.Content,
			FileType:   chunk.Metadata.FileType,
			UploadDate: chunk.Metadata.UploadDate,
			TotalCount: chunk.Metadata.TotalChunks,
			Embedding:  string(embeddingJSON),
		})
	}

	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to insert chunks: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, fmt.Sprintf("db_%d", row.ID))
	}
	return ids, nil
}

func (s *databaseVectorStore) Search(ctx context.Context, req SearchRequest) ([]SearchMatch, error) {
	if len(req.Embedding) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}
	if req.TopK <= 0 {
		req.TopK = 5
	}

	var rows []chunkRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	queryNorm := vectorNorm(req.Embedding)
	if queryNorm == 0 {
		return []SearchMatch{}, nil
	}

	matches := make([]SearchMatch, 0, len(rows))
	for _, row := range rows {
		var embedding []float32
		if err := json.Unmarshal([]byte(row.Embedding), &embedding); err != nil {
			continue
		}
		score := cosineSimilarity(req.Embedding, embedding, queryNorm)
		matches = append(matches, SearchMatch{
			DocumentID: row.DocumentID,
			Filename:   row.Filename,
			ChunkIndex: row.ChunkIndex,
			Content:    row.Content,
			Score:      score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	limit := req.TopK * 10
	if len(matches) > limit {
		matches = matches[:limit]
	}

	filtered := make([]SearchMatch, 0, req.TopK)
	for _, match := range matches {
		if match.Score < req.Threshold {
			continue
		}
		filtered = append(filtered, match)
		if len(filtered) >= req.TopK {
			break
		}
	}
	return filtered, nil
}

func (s *databaseVectorStore) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	records, err := s.loadMetadata(ctx, "")
	if err != nil {
		return nil, err
	}
	return groupDocuments(records), nil
}

func (s *databaseVectorStore) GetDocument(ctx context.Context, documentID string) (*DocumentSummary, error) {
	records, err := s.loadMetadata(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &DocumentSummary{
		ID:         documentID,
		Filename:   records[0].Filename,
		UploadDate: records[0].Metadata.UploadDate,
		FileType:   records[0].Metadata.FileType,
		ChunkCount: len(records),
	}, nil
}

func (s *databaseVectorStore) DeleteDocument(ctx context.Context, documentID string) (int64, error) {
	result := s.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&chunkRow{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete chunks: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *databaseVectorStore) Stats(ctx context.Context) (*StorageStats, error) {
	var totalChunks int64
	if err := s.db.WithContext(ctx).Model(&chunkRow{}).Count(&totalChunks).Error; err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	var totalDocuments int64
	if err := s.db.WithContext(ctx).Model(&chunkRow{}).
		Distinct("document_id").Count(&totalDocuments).Error; err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	return buildStats(int(totalDocuments), int(totalChunks)), nil
}

func (s *databaseVectorStore) Ready() bool {
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}

func (s *databaseVectorStore) loadMetadata(ctx context.Context, documentID string) ([]ChunkRecord, error) {
	query := s.db.WithContext(ctx).Model(&chunkRow{}).
		Select("document_id", "filename", "upload_date", "file_type")
	if documentID != "" {
		query = query.Where("document_id = ?", documentID)
	}

	var rows []chunkRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load chunk metadata: %w", err)
	}

	records := make([]ChunkRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, ChunkRecord{
			Filename: row.Filename,
			Metadata: ChunkMetadata{
				DocumentID: row.DocumentID,
				UploadDate: row.UploadDate,
				FileType:   row.FileType,
			},
		})
	}
	return records, nil
}
