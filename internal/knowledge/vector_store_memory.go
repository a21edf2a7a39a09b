package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryVectorStore 内存向量存储
// 默认provider，余弦相似度在进程内计算；也用作测试替身
type MemoryVectorStore struct {
	mu      sync.RWMutex
	records []ChunkRecord
	nextID  int64
}

// NewMemoryVectorStore 创建内存向量存储
func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{}
}

func (s *MemoryVectorStore) Insert(ctx context.Context, chunks []ChunkRecord) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		s.nextID++
		ids = append(ids, fmt.Sprintf("mem_%d", s.nextID))
		s.records = append(s.records, chunk)
	}
	return ids, nil
}

func (s *MemoryVectorStore) Search(ctx context.Context, req SearchRequest) ([]SearchMatch, error) {
	if len(req.Embedding) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}
	if req.TopK <= 0 {
		req.TopK = 5
	}

	queryNorm := vectorNorm(req.Embedding)
	if queryNorm == 0 {
		return nil, fmt.Errorf("query embedding norm is zero")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]SearchMatch, 0, len(s.records))
	for _, rec := range s.records {
		candidates = append(candidates, SearchMatch{
			DocumentID: rec.Metadata.DocumentID,
			Filename:   rec.Filename,
			ChunkIndex: rec.ChunkIndex,
			Content:    rec.Content,
			Score:      cosineSimilarity(req.Embedding, rec.Embedding, queryNorm),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	// 超量候选，过滤阈值后截断
	limit := req.TopK * 10
	if limit > len(candidates) {
		limit = len(candidates)
	}

	results := make([]SearchMatch, 0, req.TopK)
	for _, match := range candidates[:limit] {
		if match.Score < req.Threshold {
			continue
		}
		results = append(results, match)
		if len(results) == req.TopK {
			break
		}
	}
	return results, nil
}

func (s *MemoryVectorStore) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return groupDocuments(s.records), nil
}

func (s *MemoryVectorStore) GetDocument(ctx context.Context, documentID string) (*DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summary *DocumentSummary
	for _, rec := range s.records {
		if rec.Metadata.DocumentID != documentID {
			continue
		}
		if summary == nil {
			summary = &DocumentSummary{
				ID:         documentID,
				Filename:   rec.Filename,
				UploadDate: rec.Metadata.UploadDate,
				FileType:   rec.Metadata.FileType,
			}
		}
		summary.ChunkCount++
	}
	return summary, nil
}

func (s *MemoryVectorStore) DeleteDocument(ctx context.Context, documentID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, rec := range s.records {
		if rec.Metadata.DocumentID == documentID {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return deleted, nil
}

func (s *MemoryVectorStore) Stats(ctx context.Context) (*StorageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make(map[string]struct{})
	for _, rec := range s.records {
		docs[rec.Metadata.DocumentID] = struct{}{}
	}

	return buildStats(len(docs), len(s.records)), nil
}

func (s *MemoryVectorStore) Ready() bool {
	return true
}

// groupDocuments 按document_id分组，保留首见的文件名/上传时间/类型，按上传时间降序
func groupDocuments(records []ChunkRecord) []DocumentSummary {
	byID := make(map[string]*DocumentSummary)
	order := make([]string, 0)
	for _, rec := range records {
		id := rec.Metadata.DocumentID
		summary, ok := byID[id]
		if !ok {
			summary = &DocumentSummary{
				ID:         id,
				Filename:   rec.Filename,
				UploadDate: rec.Metadata.UploadDate,
				FileType:   rec.Metadata.FileType,
			}
			byID[id] = summary
			order = append(order, id)
		}
		summary.ChunkCount++
	}

	summaries := make([]DocumentSummary, 0, len(order))
	for _, id := range order {
		summaries = append(summaries, *byID[id])
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].UploadDate > summaries[j].UploadDate
	})
	return summaries
}

// buildStats 组装存储统计，平均值保留两位小数，空库时为0避免除零
func buildStats(totalDocuments, totalChunks int) *StorageStats {
	stats := &StorageStats{
		TotalDocuments: totalDocuments,
		TotalChunks:    totalChunks,
	}
	if totalDocuments > 0 {
		avg := float64(totalChunks) / float64(totalDocuments)
		stats.AvgChunksPerDocument = math.Round(avg*100) / 100
	}
	return stats
}

func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func cosineSimilarity(a, b []float32, normA float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) != len(b) {
		minLen := len(a)
		if len(b) < minLen {
			minLen = len(b)
		}
		a = a[:minLen]
		b = b[:minLen]
	}

	var dot float64
	var normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (normA * math.Sqrt(normB))
}
