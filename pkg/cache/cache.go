package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache 缓存接口，本地与 Redis 实现共用
type Cache interface {
	// Get 获取缓存值
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set 设置缓存值
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Delete 删除缓存
	Delete(ctx context.Context, key string) error

	// Exists 检查键是否存在
	Exists(ctx context.Context, key string) bool

	// Close 关闭缓存
	Close() error
}

// Config 缓存配置
type Config struct {
	// 缓存类型: "lru" / "gocache" / "redis"
	Type string `json:"type" env:"CACHE_TYPE"`

	Redis RedisConfig `json:"redis"`
	Local LocalConfig `json:"local"`
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `json:"addr" env:"REDIS_ADDR"`
	Password string `json:"password" env:"REDIS_PASSWORD"`
	DB       int    `json:"db" env:"REDIS_DB"`
}

// LocalConfig 本地缓存配置
type LocalConfig struct {
	MaxSize           int           `json:"max_size" env:"LOCAL_CACHE_MAX_SIZE"`
	DefaultExpiration time.Duration `json:"default_expiration" env:"LOCAL_CACHE_DEFAULT_EXPIRATION"`
	CleanupInterval   time.Duration `json:"cleanup_interval" env:"LOCAL_CACHE_CLEANUP_INTERVAL"`
}

// UserTemplateKey 用户默认摘要模板的缓存键
func UserTemplateKey(userID uint) string {
	return fmt.Sprintf("user:%d:summary_template", userID)
}
