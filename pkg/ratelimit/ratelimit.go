package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// 操作 key，挂在具体接口前
const (
	OpEntries   = "entries"
	OpSummaries = "summaries"
	OpAudio     = "audio"
	OpAudioURL  = "audio-url"
)

// Limiter 固定窗口限流。窗口边界上最多放行 2×limit，
// 作为防滥用足够，不做计费级精度
type Limiter interface {
	// Allow 自增计数并判断是否放行。第一次命中时给计数器挂上
	// 窗口长度的 TTL，让其自动过期
	Allow(ctx context.Context, userID uint, opKey string, limit int64, window time.Duration) (bool, error)
}

// redisLimiter 基于 Redis INCR + EXPIRE 的实现
type redisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter 创建 Redis 限流器
func NewRedisLimiter(client *redis.Client) Limiter {
	return &redisLimiter{client: client}
}

func (l *redisLimiter) Allow(ctx context.Context, userID uint, opKey string, limit int64, window time.Duration) (bool, error) {
	key := fmt.Sprintf("rate_limit:%d:%s", userID, opKey)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		// 第一次命中才设置 TTL，窗口从此刻开始
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= limit, nil
}
