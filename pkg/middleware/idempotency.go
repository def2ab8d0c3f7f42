package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// IdemStore 幂等键存储，set 成功返回 true，键已存在返回 false
type IdemStore interface {
	Set(ctx context.Context, key string, ttl time.Duration) bool
}

type memoryIdemStore struct {
	mu sync.Mutex
	m  map[string]time.Time
}

// NewMemoryIdemStore 内存实现，单实例部署/测试用
func NewMemoryIdemStore() IdemStore {
	return &memoryIdemStore{m: make(map[string]time.Time)}
}

func (s *memoryIdemStore) Set(_ context.Context, key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if exp, ok := s.m[key]; ok && exp.After(now) {
		return false
	}
	s.m[key] = now.Add(ttl)
	return true
}

type redisIdemStore struct {
	client *redis.Client
}

// NewRedisIdemStore Redis SETNX 实现，多实例共享
func NewRedisIdemStore(client *redis.Client) IdemStore {
	return &redisIdemStore{client: client}
}

func (s *redisIdemStore) Set(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := s.client.SetNX(ctx, "idem:"+key, "1", ttl).Result()
	if err != nil {
		// 存储不可用时放行，幂等保护退化而不是拒绝服务
		return true
	}
	return ok
}

// Idempotency 拒绝窗口期内携带相同 Idempotency-Key 的重复写请求。
// 不带 key 的请求直接放行（上传体做哈希代价太高，不兜底）
func Idempotency(store IdemStore, ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		if key == "" {
			c.Next()
			return
		}
		if !store.Set(c.Request.Context(), key, ttl) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "duplicate request"})
			return
		}
		c.Next()
	}
}
