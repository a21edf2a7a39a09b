package services

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService 应用级指标采集
type MetricsService struct {
	registry *prometheus.Registry

	documentUploads  *prometheus.CounterVec
	documentDeletes  prometheus.Counter
	chatRequests     *prometheus.CounterVec
	retrievedChunks  prometheus.Histogram
	chunksPerUpload  prometheus.Histogram
	embeddingBatches prometheus.Counter
}

// NewMetricsService 创建指标服务
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &MetricsService{
		registry: registry,
		documentUploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rag_document_uploads_total",
			Help: "Total document upload attempts by outcome.",
		}, []string{"status"}),
		documentDeletes: factory.NewCounter(prometheus.CounterOpts{
			Name: "rag_document_deletes_total",
			Help: "Total successful document deletions.",
		}),
		chatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rag_chat_requests_total",
			Help: "Total chat requests by mode.",
		}, []string{"mode"}),
		retrievedChunks: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rag_retrieved_chunks",
			Help:    "Chunks returned per retrieval after threshold filtering.",
			Buckets: prometheus.LinearBuckets(0, 1, 6),
		}),
		chunksPerUpload: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rag_chunks_per_upload",
			Help:    "Chunks produced per uploaded document.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		embeddingBatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "rag_embedding_batches_total",
			Help: "Total embedding batch calls issued upstream.",
		}),
	}
}

// RecordUpload 记录一次上传结果
func (m *MetricsService) RecordUpload(status string, chunkCount int) {
	if m == nil {
		return
	}
	m.documentUploads.WithLabelValues(status).Inc()
	if chunkCount > 0 {
		m.chunksPerUpload.Observe(float64(chunkCount))
	}
}

// RecordDelete 记录一次删除
func (m *MetricsService) RecordDelete() {
	if m == nil {
		return
	}
	m.documentDeletes.Inc()
}

// RecordChat 记录一次对话请求
func (m *MetricsService) RecordChat(mode string, retrieved int) {
	if m == nil {
		return
	}
	m.chatRequests.WithLabelValues(mode).Inc()
	if mode == "rag" {
		m.retrievedChunks.Observe(float64(retrieved))
	}
}

// RecordEmbeddingBatches 记录上游批量调用次数
func (m *MetricsService) RecordEmbeddingBatches(batches int) {
	if m == nil || batches <= 0 {
		return
	}
	m.embeddingBatches.Add(float64(batches))
}

// Handler 返回指标暴露端点
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
