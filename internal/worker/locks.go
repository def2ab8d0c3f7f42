package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RecordLock 记录级互斥，防止同一条目被多个 worker 同时处理。
// 锁只是性能优化：真正的正确性由带条件的状态 UPDATE 保证，
// 锁丢了最多多做一次无效工作
type RecordLock interface {
	// Acquire 拿锁成功返回释放函数，锁被占返回 ok=false
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

type redisLock struct {
	client *redis.Client
}

// NewRedisLock 基于 SET NX 的锁实现
func NewRedisLock(client *redis.Client) RecordLock {
	return &redisLock{client: client}
}

func (l *redisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	ok, err := l.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		l.client.Del(context.Background(), key)
	}
	return release, true, nil
}

// EntryLockKey 条目处理锁
func EntryLockKey(entryID uint) string { return fmt.Sprintf("lock:entry:%d", entryID) }

// SummaryLockKey 摘要处理锁
func SummaryLockKey(summaryID uint) string { return fmt.Sprintf("lock:summary:%d", summaryID) }
