package metrics

import "sync"

var (
	globalOnce sync.Once
	global     *Metrics
)

// Global 全局指标单例（promauto 重复注册会 panic，必须只建一次）
func Global() *Metrics {
	globalOnce.Do(func() {
		global = NewMetrics()
	})
	return global
}
