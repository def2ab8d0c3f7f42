package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCache Redis 缓存实现，值统一 JSON 序列化
type redisCache struct {
	client *redis.Client
}

// NewRedisCache 创建 Redis 缓存
func NewRedisCache(config RedisConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &redisCache{client: client}, nil
}

// NewRedisCacheWithClient 复用外部 client
func NewRedisCacheWithClient(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (rc *redisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	val, err := rc.client.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var value interface{}
	if err := json.Unmarshal([]byte(val), &value); err != nil {
		// JSON 解析失败时按原始字符串返回
		return val, true
	}
	return value, true
}

func (rc *redisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return rc.client.Set(ctx, key, data, expiration).Err()
}

func (rc *redisCache) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, key).Err()
}

func (rc *redisCache) Exists(ctx context.Context, key string) bool {
	n, err := rc.client.Exists(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false
	}
	return n > 0
}

func (rc *redisCache) Close() error { return rc.client.Close() }
