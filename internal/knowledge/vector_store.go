package knowledge

import "context"

// ChunkMetadata 分块元数据
// TotalChunks是写入时的快照，删除部分兄弟分块后不会回填修正
type ChunkMetadata struct {
	UploadDate  string `json:"upload_date"`
	FileType    string `json:"file_type"`
	TotalChunks int    `json:"total_chunks"`
	DocumentID  string `json:"document_id"`
}

// ChunkRecord 持久化的分块记录
// ChunkIndex在同一文档内从0开始连续编号
type ChunkRecord struct {
	Filename   string        `json:"filename"`
	ChunkIndex int           `json:"chunk_index"`
	Content    string        `json:"content"`
	Embedding  []float32     `json:"embedding"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// SearchRequest 向量检索请求
type SearchRequest struct {
	Embedding []float32
	TopK      int
	Threshold float64 // 相似度阈值，仅返回 >= Threshold 的结果
}

// SearchMatch 检索命中的分块及其相似度得分，仅作为查询结果短暂存在
type SearchMatch struct {
	DocumentID string
	Filename   string
	ChunkIndex int
	Content    string
	Score      float64
}

// DocumentSummary 文档汇总视图
// 文档没有独立的存储记录，由共享document_id的分块聚合得出
type DocumentSummary struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	UploadDate string `json:"upload_date"`
	FileType   string `json:"file_type"`
	ChunkCount int    `json:"chunk_count"`
}

// StorageStats 存储统计
type StorageStats struct {
	TotalDocuments       int     `json:"total_documents"`
	TotalChunks          int     `json:"total_chunks"`
	AvgChunksPerDocument float64 `json:"avg_chunks_per_document"`
}

// VectorStore 向量存储抽象
// 持久化的分块记录归本层独占管理
type VectorStore interface {
	// Insert 追加分块记录并返回生成的存储ID
	// 不做(filename, chunk_index)唯一性约束，同一文件重复上传会产生独立的文档ID
	Insert(ctx context.Context, chunks []ChunkRecord) ([]string, error)

	// Search 近似最近邻检索
	// 候选集按TopK的10倍超量获取，过滤阈值后截断到TopK；不足TopK时返回较小集合，不用低分结果补齐
	Search(ctx context.Context, req SearchRequest) ([]SearchMatch, error)

	// ListDocuments 按document_id分组的文档列表，按上传时间降序
	ListDocuments(ctx context.Context) ([]DocumentSummary, error)

	// GetDocument 单个文档信息，不存在时返回nil
	GetDocument(ctx context.Context, documentID string) (*DocumentSummary, error)

	// DeleteDocument 删除文档的全部分块，返回删除数量
	// 删除不存在的ID不算错误，返回0；是否视为not found由调用层决定
	DeleteDocument(ctx context.Context, documentID string) (int64, error)

	// Stats 存储统计，平均值保留两位小数，没有文档时为0
	Stats(ctx context.Context) (*StorageStats, error)

	Ready() bool
}
