package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/draco-cheng/backend-go/internal/logger"
)

// EmbeddingCache 查询向量缓存，所有方法对nil接收者安全
type EmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEmbeddingCache 创建Redis向量缓存
func NewEmbeddingCache(addr, password string, db int, ttl time.Duration) (*EmbeddingCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	return &EmbeddingCache{client: client, ttl: ttl}, nil
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return "embedding:" + hex.EncodeToString(sum[:])
}

// Get 读取缓存的向量，未命中返回nil
func (c *EmbeddingCache) Get(ctx context.Context, model, text string) []float32 {
	if c == nil || c.client == nil {
		return nil
	}

	raw, err := c.client.Get(ctx, cacheKey(model, text)).Bytes()
	if err != nil {
		return nil
	}

	var embedding []float32
	if err := json.Unmarshal(raw, &embedding); err != nil {
		return nil
	}
	return embedding
}

// Set 写入向量缓存，失败仅记录日志
func (c *EmbeddingCache) Set(ctx context.Context, model, text string, embedding []float32) {
	if c == nil || c.client == nil || len(embedding) == 0 {
		return
	}

	raw, err := json.Marshal(embedding)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(model, text), raw, c.ttl).Err(); err != nil {
		logger.Warn("embedding cache write failed", zap.Error(err))
	}
}

// Close 关闭Redis连接
func (c *EmbeddingCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
