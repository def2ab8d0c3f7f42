package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type windowCounter struct {
	count     int64
	expiresAt time.Time
}

// memoryLimiter 进程内实现，服务单测与本地开发
type memoryLimiter struct {
	mu  sync.Mutex
	m   map[string]*windowCounter
	now func() time.Time
}

// NewMemoryLimiter 创建内存限流器
func NewMemoryLimiter() Limiter {
	return &memoryLimiter{m: make(map[string]*windowCounter), now: time.Now}
}

// NewMemoryLimiterWithClock 可注入时钟，便于测试窗口过期
func NewMemoryLimiterWithClock(now func() time.Time) Limiter {
	return &memoryLimiter{m: make(map[string]*windowCounter), now: now}
}

func (l *memoryLimiter) Allow(_ context.Context, userID uint, opKey string, limit int64, window time.Duration) (bool, error) {
	key := fmt.Sprintf("rate_limit:%d:%s", userID, opKey)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	wc, ok := l.m[key]
	if !ok || now.After(wc.expiresAt) {
		// 新窗口
		l.m[key] = &windowCounter{count: 1, expiresAt: now.Add(window)}
		return 1 <= limit, nil
	}
	wc.count++
	return wc.count <= limit, nil
}
