package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// lruCache 有界 LRU 实现，TTL 为缓存级（per-call 的过期参数被忽略，
// 需要逐键 TTL 用 gocache 类型）
type lruCache struct {
	lru *expirable.LRU[string, interface{}]
}

// NewLRUCache 创建本地 LRU 缓存
func NewLRUCache(config LocalConfig) Cache {
	size := config.MaxSize
	if size <= 0 {
		size = 1000
	}
	ttl := config.DefaultExpiration
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &lruCache{lru: expirable.NewLRU[string, interface{}](size, nil, ttl)}
}

func (c *lruCache) Get(_ context.Context, key string) (interface{}, bool) {
	return c.lru.Get(key)
}

func (c *lruCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.lru.Add(key, value)
	return nil
}

func (c *lruCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

func (c *lruCache) Exists(_ context.Context, key string) bool {
	return c.lru.Contains(key)
}

func (c *lruCache) Close() error {
	c.lru.Purge()
	return nil
}
