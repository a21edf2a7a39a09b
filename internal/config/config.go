package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Knowledge KnowledgeConfig
	Upload    UploadConfig
	Redis     RedisConfig
	Storage   ObjectStorageConfig
	Metrics   MetricsConfig
	Admin     AdminConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type AIConfig struct {
	OpenAIAPIKey   string
	ChatModel      string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
}

type KnowledgeConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	TopK           int
	ScoreThreshold float64
	VectorStore    VectorStoreConfig
}

type VectorStoreConfig struct {
	Provider string // memory | milvus | postgres
	Milvus   MilvusConfig
	Postgres PostgresConfig
}

type MilvusConfig struct {
	Address    string
	Username   string
	Password   string
	Collection string
	Database   string
	TLS        bool
	VectorSize int
	Distance   string
}

type PostgresConfig struct {
	DSN string
}

type UploadConfig struct {
	MaxSizeMB int64
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	TTL      int
}

type ObjectStorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type MetricsConfig struct {
	Enabled bool
}

type AdminConfig struct {
	APIKey string
}

var AppConfig *Config

// LoadConfig 加载配置，优先级：环境变量 > 配置默认值
func LoadConfig() error {
	// 设置默认值
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")

	// AI配置默认值
	viper.SetDefault("ai.chat_model", "gpt-3.5-turbo")
	viper.SetDefault("ai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("ai.temperature", 0.7)
	viper.SetDefault("ai.max_tokens", 500)

	// 知识库配置默认值
	viper.SetDefault("knowledge.chunk_size", 1000)
	viper.SetDefault("knowledge.chunk_overlap", 200)
	viper.SetDefault("knowledge.top_k", 5)
	viper.SetDefault("knowledge.score_threshold", 0.5)
	viper.SetDefault("knowledge.vector_store.provider", "memory")
	viper.SetDefault("knowledge.vector_store.milvus.address", "localhost:19530")
	viper.SetDefault("knowledge.vector_store.milvus.collection", "document_chunks")
	viper.SetDefault("knowledge.vector_store.milvus.database", "default")
	viper.SetDefault("knowledge.vector_store.milvus.tls", false)
	viper.SetDefault("knowledge.vector_store.milvus.vector_size", 1536)
	viper.SetDefault("knowledge.vector_store.milvus.distance", "cosine")
	viper.SetDefault("knowledge.vector_store.postgres.dsn", "")

	// 文件上传配置默认值
	viper.SetDefault("upload.max_size_mb", 10)

	// Redis配置默认值（查询向量缓存，可选）
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl", 3600)

	// 对象存储配置默认值（原始文件归档，可选）
	viper.SetDefault("storage.enabled", false)
	viper.SetDefault("storage.bucket", "document-archive")
	viper.SetDefault("storage.use_ssl", false)

	viper.SetDefault("metrics.enabled", true)

	// 读取环境变量
	viper.SetEnvPrefix("RAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 兼容原有的裸环境变量名
	if port := os.Getenv("PORT"); port != "" {
		viper.Set("server.port", port)
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("ai.openai_api_key", apiKey)
	}
	if model := os.Getenv("EMBEDDING_MODEL"); model != "" {
		viper.Set("ai.embedding_model", model)
	}
	if size := os.Getenv("CHUNK_SIZE"); size != "" {
		if v, err := strconv.Atoi(size); err == nil {
			viper.Set("knowledge.chunk_size", v)
		}
	}
	if overlap := os.Getenv("CHUNK_OVERLAP"); overlap != "" {
		if v, err := strconv.Atoi(overlap); err == nil {
			viper.Set("knowledge.chunk_overlap", v)
		}
	}
	if maxSize := os.Getenv("MAX_FILE_SIZE_MB"); maxSize != "" {
		if v, err := strconv.ParseInt(maxSize, 10, 64); err == nil {
			viper.Set("upload.max_size_mb", v)
		}
	}
	if adminKey := os.Getenv("ADMIN_API_KEY"); adminKey != "" {
		viper.Set("admin.api_key", adminKey)
	}
	if addr := os.Getenv("MILVUS_ADDRESS"); addr != "" {
		viper.Set("knowledge.vector_store.provider", "milvus")
		viper.Set("knowledge.vector_store.milvus.address", addr)
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		viper.Set("knowledge.vector_store.postgres.dsn", dsn)
	}
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		viper.Set("redis.enabled", true)
		viper.Set("redis.host", redisHost)
	}
	if minioEndpoint := os.Getenv("MINIO_ENDPOINT"); minioEndpoint != "" {
		viper.Set("storage.enabled", true)
		viper.Set("storage.endpoint", minioEndpoint)
	}
	if minioAccessKey := os.Getenv("MINIO_ACCESS_KEY"); minioAccessKey != "" {
		viper.Set("storage.access_key", minioAccessKey)
	}
	if minioSecretKey := os.Getenv("MINIO_SECRET_KEY"); minioSecretKey != "" {
		viper.Set("storage.secret_key", minioSecretKey)
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		AI: AIConfig{
			OpenAIAPIKey:   viper.GetString("ai.openai_api_key"),
			ChatModel:      viper.GetString("ai.chat_model"),
			EmbeddingModel: viper.GetString("ai.embedding_model"),
			Temperature:    float32(viper.GetFloat64("ai.temperature")),
			MaxTokens:      viper.GetInt("ai.max_tokens"),
		},
		Knowledge: KnowledgeConfig{
			ChunkSize:      viper.GetInt("knowledge.chunk_size"),
			ChunkOverlap:   viper.GetInt("knowledge.chunk_overlap"),
			TopK:           viper.GetInt("knowledge.top_k"),
			ScoreThreshold: viper.GetFloat64("knowledge.score_threshold"),
			VectorStore: VectorStoreConfig{
				Provider: viper.GetString("knowledge.vector_store.provider"),
				Milvus: MilvusConfig{
					Address:    viper.GetString("knowledge.vector_store.milvus.address"),
					Username:   viper.GetString("knowledge.vector_store.milvus.username"),
					Password:   viper.GetString("knowledge.vector_store.milvus.password"),
					Collection: viper.GetString("knowledge.vector_store.milvus.collection"),
					Database:   viper.GetString("knowledge.vector_store.milvus.database"),
					TLS:        viper.GetBool("knowledge.vector_store.milvus.tls"),
					VectorSize: viper.GetInt("knowledge.vector_store.milvus.vector_size"),
					Distance:   viper.GetString("knowledge.vector_store.milvus.distance"),
				},
				Postgres: PostgresConfig{
					DSN: viper.GetString("knowledge.vector_store.postgres.dsn"),
				},
			},
		},
		Upload: UploadConfig{
			MaxSizeMB: viper.GetInt64("upload.max_size_mb"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("redis.enabled"),
			Host:     viper.GetString("redis.host"),
			Port:     viper.GetString("redis.port"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			TTL:      viper.GetInt("redis.ttl"),
		},
		Storage: ObjectStorageConfig{
			Enabled:   viper.GetBool("storage.enabled"),
			Endpoint:  viper.GetString("storage.endpoint"),
			AccessKey: viper.GetString("storage.access_key"),
			SecretKey: viper.GetString("storage.secret_key"),
			Bucket:    viper.GetString("storage.bucket"),
			UseSSL:    viper.GetBool("storage.use_ssl"),
		},
		Metrics: MetricsConfig{
			Enabled: viper.GetBool("metrics.enabled"),
		},
		Admin: AdminConfig{
			APIKey: viper.GetString("admin.api_key"),
		},
	}

	return nil
}

// GetAppConfig 获取全局配置
func GetAppConfig() *Config {
	return AppConfig
}

// MaxUploadBytes 最大上传字节数
func (c *UploadConfig) MaxUploadBytes() int64 {
	return c.MaxSizeMB * 1024 * 1024
}
