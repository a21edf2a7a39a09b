package di

import (
	"fmt"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/draco-cheng/backend-go/internal/config"
	"github.com/draco-cheng/backend-go/internal/knowledge"
	"github.com/draco-cheng/backend-go/internal/logger"
	"github.com/draco-cheng/backend-go/internal/services"
	"github.com/draco-cheng/backend-go/internal/storage"
)

// RegisterProviders 注册所有依赖提供者
func RegisterProviders(container *dig.Container) error {
	// 注册配置
	if err := container.Provide(func() (*config.Config, error) {
		cfg := config.GetAppConfig()
		if cfg == nil {
			return nil, fmt.Errorf("config not loaded")
		}
		return cfg, nil
	}); err != nil {
		return err
	}

	// 注册文本提取器
	if err := container.Provide(knowledge.NewExtractorManager); err != nil {
		return err
	}

	// 注册分块器
	if err := container.Provide(func(cfg *config.Config) *knowledge.Chunker {
		return knowledge.NewChunker(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)
	}); err != nil {
		return err
	}

	// 注册嵌入客户端，未配置API Key时退化为不可用实现
	if err := container.Provide(func(cfg *config.Config) knowledge.Embedder {
		if cfg.AI.OpenAIAPIKey == "" {
			logger.Warn("OPENAI_API_KEY not set, embedding service disabled")
			return &knowledge.NoopEmbedder{}
		}
		return knowledge.NewOpenAIEmbedder(cfg.AI.OpenAIAPIKey, cfg.AI.EmbeddingModel)
	}); err != nil {
		return err
	}

	// 注册生成客户端
	if err := container.Provide(func(cfg *config.Config) knowledge.Generator {
		if cfg.AI.OpenAIAPIKey == "" {
			logger.Warn("OPENAI_API_KEY not set, chat generation disabled")
			return &knowledge.NoopGenerator{}
		}
		return knowledge.NewOpenAIGenerator(cfg.AI.OpenAIAPIKey, cfg.AI.ChatModel,
			cfg.AI.Temperature, cfg.AI.MaxTokens)
	}); err != nil {
		return err
	}

	// 注册向量存储
	if err := container.Provide(func(cfg *config.Config) (knowledge.VectorStore, error) {
		return newVectorStore(cfg)
	}); err != nil {
		return err
	}

	// 注册对象存储，未启用时注入nil
	if err := container.Provide(func(cfg *config.Config) (storage.ObjectStorage, error) {
		if !cfg.Storage.Enabled {
			return nil, nil
		}
		store, err := storage.NewMinioStorage(
			cfg.Storage.Endpoint,
			cfg.Storage.AccessKey,
			cfg.Storage.SecretKey,
			cfg.Storage.Bucket,
			cfg.Storage.UseSSL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to init object storage: %w", err)
		}
		return store, nil
	}); err != nil {
		return err
	}

	// 注册向量缓存，未启用或连接失败时注入nil（调用方对nil安全）
	if err := container.Provide(func(cfg *config.Config) *services.EmbeddingCache {
		if !cfg.Redis.Enabled {
			return nil
		}
		cache, err := services.NewEmbeddingCache(
			cfg.Redis.Host+":"+cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTL)*time.Second,
		)
		if err != nil {
			logger.Warn("embedding cache unavailable", zap.Error(err))
			return nil
		}
		return cache
	}); err != nil {
		return err
	}

	// 注册指标服务
	if err := container.Provide(services.NewMetricsService); err != nil {
		return err
	}

	// 注册业务服务
	if err := container.Provide(services.NewDocumentService); err != nil {
		return err
	}

	if err := container.Provide(services.NewRAGService); err != nil {
		return err
	}

	return nil
}

// newVectorStore 按配置选择向量存储实现
func newVectorStore(cfg *config.Config) (knowledge.VectorStore, error) {
	vs := cfg.Knowledge.VectorStore
	switch vs.Provider {
	case "milvus":
		return knowledge.NewMilvusVectorStore(knowledge.MilvusOptions{
			Address:    vs.Milvus.Address,
			Username:   vs.Milvus.Username,
			Password:   vs.Milvus.Password,
			Collection: vs.Milvus.Collection,
			Database:   vs.Milvus.Database,
			UseTLS:     vs.Milvus.TLS,
			VectorSize: vs.Milvus.VectorSize,
			Distance:   vs.Milvus.Distance,
		})
	case "postgres":
		return knowledge.NewDatabaseVectorStore(vs.Postgres.DSN)
	case "", "memory":
		return knowledge.NewMemoryVectorStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector store provider: %s", vs.Provider)
	}
}
