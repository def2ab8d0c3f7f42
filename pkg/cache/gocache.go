package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// goCache 基于 patrickmn/go-cache，支持逐键 TTL
type goCache struct {
	c *gocache.Cache
}

// NewGoCache 创建 go-cache 实现
func NewGoCache(config LocalConfig) Cache {
	def := config.DefaultExpiration
	if def <= 0 {
		def = 5 * time.Minute
	}
	cleanup := config.CleanupInterval
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &goCache{c: gocache.New(def, cleanup)}
}

func (g *goCache) Get(_ context.Context, key string) (interface{}, bool) {
	return g.c.Get(key)
}

func (g *goCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	g.c.Set(key, value, expiration)
	return nil
}

func (g *goCache) Delete(_ context.Context, key string) error {
	g.c.Delete(key)
	return nil
}

func (g *goCache) Exists(_ context.Context, key string) bool {
	_, ok := g.c.Get(key)
	return ok
}

func (g *goCache) Close() error {
	g.c.Flush()
	return nil
}
