package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/draco-cheng/backend-go/internal/config"
	apperrors "github.com/draco-cheng/backend-go/internal/errors"
	"github.com/draco-cheng/backend-go/internal/knowledge"
	"github.com/draco-cheng/backend-go/internal/logger"
)

// systemPrompt 对话的基础系统提示，回答严格限定在文档内容内
const systemPrompt = `You are an AI assistant for Draco Cheng's personal portfolio website.

CRITICAL RULES:
1. ONLY answer based on the provided document context. Do NOT use any external knowledge about Draco.
2. If the information is not in the provided documents, say "I don't have that information in my documents."
3. Never guess, infer, or assume any facts not explicitly stated in the documents.
4. Do not make up experiences, skills, projects, or any personal details.

Style:
- Be helpful and professional
- Keep responses concise
- If relevant, suggest the visitor explore the website for more information`

// noDocumentsResponse 知识库为空或不可达时的兜底回复
const noDocumentsResponse = "Sorry, I'm unable to access the document database at the moment. " +
	"Please try again later, or feel free to browse the website to learn more about Draco's experience and projects."

// sourcePreviewChars 来源引用的内容截断长度
const sourcePreviewChars = 200

// ChatMessage 一条对话消息
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest 对话请求，UseRAG为空时默认启用检索
type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history" validate:"omitempty,dive"`
	UseRAG  *bool         `json:"use_rag"`
}

// Source 回复引用的文档来源
type Source struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// ChatResponse 对话响应
type ChatResponse struct {
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
}

// RAGService 检索增强对话服务
type RAGService struct {
	embedder       knowledge.Embedder
	generator      knowledge.Generator
	store          knowledge.VectorStore
	cache          *EmbeddingCache
	metrics        *MetricsService
	embeddingModel string
	topK           int
	scoreThreshold float64
}

// NewRAGService 创建对话服务
func NewRAGService(
	cfg *config.Config,
	embedder knowledge.Embedder,
	generator knowledge.Generator,
	store knowledge.VectorStore,
	cache *EmbeddingCache,
	metrics *MetricsService,
) *RAGService {
	topK := cfg.Knowledge.TopK
	if topK <= 0 {
		topK = 5
	}
	threshold := cfg.Knowledge.ScoreThreshold
	if threshold == 0 {
		threshold = 0.5
	}
	return &RAGService{
		embedder:       embedder,
		generator:      generator,
		store:          store,
		cache:          cache,
		metrics:        metrics,
		embeddingModel: cfg.AI.EmbeddingModel,
		topK:           topK,
		scoreThreshold: threshold,
	}
}

// Chat 处理一次对话请求
func (s *RAGService) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, apperrors.NewValidationError("Message cannot be empty")
	}
	if !s.generator.Ready() {
		return nil, apperrors.NewDependencyUnavailableError("OpenAI service")
	}

	useRAG := true
	if req.UseRAG != nil {
		useRAG = *req.UseRAG
	}

	if useRAG {
		if !s.hasDocuments(ctx) {
			// 知识库为空时直接兜底，避免无依据的生成
			s.metrics.RecordChat("fallback", 0)
			return &ChatResponse{
				Response: noDocumentsResponse,
				Sources:  []Source{},
			}, nil
		}
		return s.chatWithRetrieval(ctx, req)
	}

	return s.chatDirect(ctx, req)
}

// hasDocuments 检查知识库是否存在文档，查询失败按无文档处理
func (s *RAGService) hasDocuments(ctx context.Context) bool {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		logger.Warn("storage stats check failed", zap.Error(err))
		return false
	}
	return stats.TotalDocuments > 0
}

func (s *RAGService) chatWithRetrieval(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	matches, err := s.retrieve(ctx, req.Message)
	if err != nil {
		return nil, err
	}

	messages := buildRetrievalMessages(req.Message, req.History, matches)

	answer, err := s.generator.Complete(ctx, messages)
	if err != nil {
		return nil, apperrors.NewUpstreamError("chat completion", err)
	}

	sources := make([]Source, 0, len(matches))
	for _, match := range matches {
		sources = append(sources, Source{
			DocumentID: match.DocumentID,
			Filename:   match.Filename,
			Content:    previewContent(match.Content),
			Score:      match.Score,
		})
	}

	s.metrics.RecordChat("rag", len(matches))
	logger.Debug("rag response generated",
		zap.Int("retrieved_chunks", len(matches)),
		zap.Int("history_messages", len(req.History)))

	return &ChatResponse{Response: answer, Sources: sources}, nil
}

func (s *RAGService) chatDirect(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	messages := make([]knowledge.Message, 0, len(req.History)+2)
	messages = append(messages, knowledge.Message{Role: knowledge.RoleSystem, Content: systemPrompt})
	for _, msg := range req.History {
		messages = append(messages, knowledge.Message{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, knowledge.Message{Role: knowledge.RoleUser, Content: req.Message})

	answer, err := s.generator.Complete(ctx, messages)
	if err != nil {
		return nil, apperrors.NewUpstreamError("chat completion", err)
	}

	s.metrics.RecordChat("direct", 0)
	return &ChatResponse{Response: answer, Sources: []Source{}}, nil
}

// retrieve 生成查询向量并检索相关分块
func (s *RAGService) retrieve(ctx context.Context, query string) ([]knowledge.SearchMatch, error) {
	embedding := s.cache.Get(ctx, s.embeddingModel, query)
	if embedding == nil {
		var err error
		embedding, err = s.embedder.Embed(ctx, query)
		if err != nil {
			return nil, apperrors.NewUpstreamError("query embedding", err)
		}
		s.cache.Set(ctx, s.embeddingModel, query, embedding)
	}

	matches, err := s.store.Search(ctx, knowledge.SearchRequest{
		Embedding: embedding,
		TopK:      s.topK,
		Threshold: s.scoreThreshold,
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError("vector search", err)
	}
	return matches, nil
}

// buildRetrievalMessages 拼装带检索上下文的消息序列
// 历史消息插入在当前问题之前，系统消息之后
func buildRetrievalMessages(query string, history []ChatMessage, matches []knowledge.SearchMatch) []knowledge.Message {
	messages := make([]knowledge.Message, 0, len(history)+3)
	messages = append(messages, knowledge.Message{Role: knowledge.RoleSystem, Content: systemPrompt})

	if len(matches) > 0 {
		contextParts := make([]string, 0, len(matches))
		for _, match := range matches {
			contextParts = append(contextParts, match.Content)
		}
		contextMessage := "Here is information about Draco:\n\n" +
			strings.Join(contextParts, "\n\n") +
			"\n\n---\n\nAnswer the user's question naturally and conversationally based ONLY on the above information. " +
			"Don't mention 'documents', 'files', or 'provided information'. " +
			"IMPORTANT: Only state facts explicitly mentioned above. Don't infer or assume additional details. " +
			"If the information doesn't contain the answer, say you don't have that specific information."
		messages = append(messages, knowledge.Message{Role: knowledge.RoleSystem, Content: contextMessage})
	}

	for _, msg := range history {
		messages = append(messages, knowledge.Message{Role: msg.Role, Content: msg.Content})
	}

	messages = append(messages, knowledge.Message{Role: knowledge.RoleUser, Content: query})
	return messages
}

func previewContent(content string) string {
	runes := []rune(content)
	if len(runes) > sourcePreviewChars {
		runes = runes[:sourcePreviewChars]
	}
	return string(runes) + "..."
}
