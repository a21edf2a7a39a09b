package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address    string
	Username   string
	Password   string
	Collection string
	VectorSize int
	Distance   string
	Database   string
	UseTLS     bool
	Timeout    time.Duration
}

// listQueryLimit 聚合查询的扫描上限
const listQueryLimit = 16384

type milvusVectorStore struct {
	milvusClient client.Client
	collection   string
	vectorSize   int
	distance     string
}

// NewMilvusVectorStore 创建Milvus向量存储
func NewMilvusVectorStore(opts MilvusOptions) (VectorStore, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.Collection == "" {
		opts.Collection = "document_chunks"
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = 1536
	}
	if opts.Database == "" {
		opts.Database = "default"
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	milvusClient, err := client.NewClient(ctx, client.Config{
		Address:       opts.Address,
		DBName:        opts.Database,
		Username:      opts.Username,
		Password:      opts.Password,
		EnableTLSAuth: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	return &milvusVectorStore{
		milvusClient: milvusClient,
		collection:   opts.Collection,
		vectorSize:   opts.VectorSize,
		distance:     formatMilvusDistance(opts.Distance),
	}, nil
}

func formatMilvusDistance(value string) string {
	switch strings.ToUpper(value) {
	case "DOT", "IP", "INNER_PRODUCT":
		return "IP"
	case "L2", "EUCLIDEAN":
		return "L2"
	default:
		return "COSINE"
	}
}

func (s *milvusVectorStore) metricType() entity.MetricType {
	switch s.distance {
	case "IP":
		return entity.IP
	case "L2":
		return entity.L2
	default:
		return entity.COSINE
	}
}

func (s *milvusVectorStore) ensureCollection(ctx context.Context) error {
	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if !hasCollection {
		schema := &entity.Schema{
			CollectionName: s.collection,
			Description:    "Uploaded document chunks with embeddings",
			Fields: []*entity.Field{
				{
					Name:       "pk",
					DataType:   entity.FieldTypeInt64,
					PrimaryKey: true,
					AutoID:     true,
				},
				{
					Name:       "document_id",
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "64"},
				},
				{
					Name:       "filename",
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "512"},
				},
				{
					Name:     "chunk_index",
					DataType: entity.FieldTypeInt64,
				},
				{
					Name:       "content",
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "65535"},
				},
				{
					Name:       "file_type",
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "16"},
				},
				{
					Name:       "upload_date",
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "64"},
				},
				{
					Name:     "total_chunks",
					DataType: entity.FieldTypeInt64,
				},
				{
					Name:       "vector",
					DataType:   entity.FieldTypeFloatVector,
					TypeParams: map[string]string{"dim": fmt.Sprintf("%d", s.vectorSize)},
				},
			},
		}

		if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		// 创建索引 - HNSW失败时退到IVF_FLAT
		var index entity.Index
		index, indexErr := entity.NewIndexHNSW(s.metricType(), 8, 64)
		if indexErr != nil {
			index, indexErr = entity.NewIndexIvfFlat(s.metricType(), 128)
			if indexErr != nil {
				return fmt.Errorf("failed to create index: %w", indexErr)
			}
		}
		if err := s.milvusClient.CreateIndex(ctx, s.collection, "vector", index, false); err != nil {
			return fmt.Errorf("failed to create vector index: %w", err)
		}
	}

	// 集合必须加载后才能检索
	if err := s.milvusClient.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	return nil
}

func (s *milvusVectorStore) Insert(ctx context.Context, chunks []ChunkRecord) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	documentIDs := make([]string, 0, len(chunks))
	filenames := make([]string, 0, len(chunks))
	chunkIndexes := make([]int64, 0, len(chunks))
	contents := make([]string, 0, len(chunks))
	fileTypes := make([]string, 0, len(chunks))
	uploadDates := make([]string, 0, len(chunks))
	totalChunks := make([]int64, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))

	for _, chunk := range chunks {
		if len(chunk.Embedding) != s.vectorSize {
			return nil, fmt.Errorf("chunk %d of %s: embedding has %d dimensions, expected %d",
				chunk.ChunkIndex, chunk.Filename, len(chunk.Embedding), s.vectorSize)
		}
		documentIDs = append(documentIDs, chunk.Metadata.DocumentID)
		filenames = append(filenames, chunk.Filename)
		chunkIndexes = append(chunkIndexes, int64(chunk.ChunkIndex))
		contents = append(contents, chunk.Content)
		fileTypes = append(fileTypes, chunk.Metadata.FileType)
		uploadDates = append(uploadDates, chunk.Metadata.UploadDate)
		totalChunks = append(totalChunks, int64(chunk.Metadata.TotalChunks))
		vectors = append(vectors, chunk.Embedding)
	}

	result, err := s.milvusClient.Insert(ctx, s.collection, "",
		entity.NewColumnVarChar("document_id", documentIDs),
		entity.NewColumnVarChar("filename", filenames),
		entity.NewColumnInt64("chunk_index", chunkIndexes),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnVarChar("file_type", fileTypes),
		entity.NewColumnVarChar("upload_date", uploadDates),
		entity.NewColumnInt64("total_chunks", totalChunks),
		entity.NewColumnFloatVector("vector", s.vectorSize, vectors),
	)
	if err != nil {
		return nil, fmt.Errorf("milvus insert failed: %w", err)
	}

	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		return nil, fmt.Errorf("milvus flush failed: %w", err)
	}

	ids := make([]string, 0, len(chunks))
	if pkColumn, ok := result.(*entity.ColumnInt64); ok {
		for _, pk := range pkColumn.Data() {
			ids = append(ids, fmt.Sprintf("milvus_%d", pk))
		}
	} else {
		for i := range chunks {
			ids = append(ids, fmt.Sprintf("milvus_%s_%d", chunks[i].Metadata.DocumentID, i))
		}
	}
	return ids, nil
}

func (s *milvusVectorStore) Search(ctx context.Context, req SearchRequest) ([]SearchMatch, error) {
	if len(req.Embedding) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}
	if req.TopK <= 0 {
		req.TopK = 5
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("build search params: %w", err)
	}
	searchResults, err := s.milvusClient.Search(
		ctx,
		s.collection,
		[]string{},
		"",
		[]string{"document_id", "filename", "chunk_index", "content"},
		[]entity.Vector{entity.FloatVector(req.Embedding)},
		"vector",
		s.metricType(),
		req.TopK*10, // 超量候选，下游过滤可能缩小结果集
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}
	if len(searchResults) == 0 {
		return []SearchMatch{}, nil
	}

	result := searchResults[0]
	if result.Err != nil {
		return nil, fmt.Errorf("milvus search error: %w", result.Err)
	}
	if result.ResultCount == 0 {
		return []SearchMatch{}, nil
	}

	documentIDs := stringColumnData(result.Fields, "document_id")
	filenames := stringColumnData(result.Fields, "filename")
	chunkIndexes := int64ColumnData(result.Fields, "chunk_index")
	contents := stringColumnData(result.Fields, "content")

	metric := s.metricType()
	matches := make([]SearchMatch, 0, req.TopK)
	for i := 0; i < result.ResultCount; i++ {
		score := float64(0)
		if i < len(result.Scores) {
			score = float64(result.Scores[i])
		}
		if !scorePassesThreshold(metric, score, req.Threshold) {
			continue
		}

		match := SearchMatch{Score: score}
		if i < len(documentIDs) {
			match.DocumentID = documentIDs[i]
		}
		if i < len(filenames) {
			match.Filename = filenames[i]
		}
		if i < len(chunkIndexes) {
			match.ChunkIndex = int(chunkIndexes[i])
		}
		if i < len(contents) {
			match.Content = contents[i]
		}
		matches = append(matches, match)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return scoreBetter(metric, matches[i].Score, matches[j].Score)
	})
	if len(matches) > req.TopK {
		matches = matches[:req.TopK]
	}
	return matches, nil
}

// scorePassesThreshold 按度量方向判断得分是否达标
// L2是距离度量，越小越相似；COSINE/IP是相似度度量，越大越相似
func scorePassesThreshold(metric entity.MetricType, score, threshold float64) bool {
	if metric == entity.L2 {
		return score <= threshold
	}
	return score >= threshold
}

// scoreBetter 按度量方向比较两个得分，a更优时返回true
func scoreBetter(metric entity.MetricType, a, b float64) bool {
	if metric == entity.L2 {
		return a < b
	}
	return a > b
}

func (s *milvusVectorStore) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	records, err := s.queryChunkMetadata(ctx, "chunk_index >= 0")
	if err != nil {
		return nil, err
	}
	return groupDocuments(records), nil
}

func (s *milvusVectorStore) GetDocument(ctx context.Context, documentID string) (*DocumentSummary, error) {
	records, err := s.queryChunkMetadata(ctx, fmt.Sprintf("document_id == %q", documentID))
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

func (s *milvusVectorStore) DeleteDocument(ctx context.Context, documentID string) (int64, error) {
	expr := fmt.Sprintf("document_id == %q", documentID)

	records, err := s.queryChunkMetadata(ctx, expr)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := s.milvusClient.Delete(ctx, s.collection, "", expr); err != nil {
		return 0, fmt.Errorf("milvus delete failed: %w", err)
	}
	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		return 0, fmt.Errorf("milvus flush failed: %w", err)
	}

	return int64(len(records)), nil
}

func (s *milvusVectorStore) Stats(ctx context.Context) (*StorageStats, error) {
	records, err := s.queryChunkMetadata(ctx, "chunk_index >= 0")
	if err != nil {
		return nil, err
	}

	docs := make(map[string]struct{})
	for _, rec := range records {
		docs[rec.Metadata.DocumentID] = struct{}{}
	}
	return buildStats(len(docs), len(records)), nil
}

func (s *milvusVectorStore) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}

// queryChunkMetadata 按表达式查询分块的标量字段，用于分组聚合
func (s *milvusVectorStore) queryChunkMetadata(ctx context.Context, expr string) ([]ChunkRecord, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	resultSet, err := s.milvusClient.Query(
		ctx,
		s.collection,
		[]string{},
		expr,
		[]string{"document_id", "filename", "upload_date", "file_type"},
		client.WithLimit(listQueryLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("milvus query failed: %w", err)
	}

	documentIDs := stringColumnData(resultSet, "document_id")
	filenames := stringColumnData(resultSet, "filename")
	uploadDates := stringColumnData(resultSet, "upload_date")
	fileTypes := stringColumnData(resultSet, "file_type")

	records := make([]ChunkRecord, 0, len(documentIDs))
	for i := range documentIDs {
		rec := ChunkRecord{
			Metadata: ChunkMetadata{DocumentID: documentIDs[i]},
		}
		if i < len(filenames) {
			rec.Filename = filenames[i]
		}
		if i < len(uploadDates) {
			rec.Metadata.UploadDate = uploadDates[i]
		}
		if i < len(fileTypes) {
			rec.Metadata.FileType = fileTypes[i]
		}
		records = append(records, rec)
	}
	return records, nil
}

func stringColumnData(columns []entity.Column, name string) []string {
	for _, column := range columns {
		if column.Name() != name {
			continue
		}
		if col, ok := column.(*entity.ColumnVarChar); ok {
			return col.Data()
		}
	}
	return nil
}

func int64ColumnData(columns []entity.Column, name string) []int64 {
	for _, column := range columns {
		if column.Name() != name {
			continue
		}
		if col, ok := column.(*entity.ColumnInt64); ok {
			return col.Data()
		}
	}
	return nil
}
