package cache

import (
	"fmt"
	"strings"
)

// NewCache 按配置创建缓存实例
func NewCache(config Config) (Cache, error) {
	switch strings.ToLower(config.Type) {
	case "", "lru":
		return NewLRUCache(config.Local), nil
	case "gocache":
		return NewGoCache(config.Local), nil
	case "redis":
		return NewRedisCache(config.Redis)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
}
