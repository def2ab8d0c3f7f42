package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// EdgeLimitConfig 入口粗粒度限流（按 IP），挡住未认证的扫描与刷接口。
// 业务级的按用户限流在 handler 里走 ratelimit.Limiter
type EdgeLimitConfig struct {
	Rate      string   `json:"rate"` // e.g. "100-M"
	SkipPaths []string `json:"skip_paths"`
}

// EdgeRateLimiter 基于 ulule/limiter 的 gin 中间件
type EdgeRateLimiter struct {
	lim  *limiter.Limiter
	cfg  EdgeLimitConfig
	once sync.Once
}

// NewEdgeRateLimiter 创建入口限流器，store 为空用内存
func NewEdgeRateLimiter(cfg EdgeLimitConfig, store limiter.Store) *EdgeRateLimiter {
	if store == nil {
		store = memory.NewStore()
	}
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		rate = limiter.Rate{Period: time.Minute, Limit: 100}
	}
	return &EdgeRateLimiter{lim: limiter.New(store, rate), cfg: cfg}
}

// Middleware 返回 gin 中间件
func (e *EdgeRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, p := range e.cfg.SkipPaths {
			if p != "" && c.Request.URL.Path == p {
				c.Next()
				return
			}
		}

		lctx, err := e.lim.Get(c, c.ClientIP())
		if err != nil {
			// 限流器自身出错不应挡住请求
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		if lctx.Reached {
			retry := int(time.Until(time.Unix(lctx.Reset, 0)).Seconds())
			if retry < 0 {
				retry = 0
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too Many Requests"})
			return
		}
		c.Next()
	}
}
