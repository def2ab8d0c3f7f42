package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"EchoJournal/internal/service"
	"EchoJournal/pkg/logger"
	"EchoJournal/pkg/metrics"
	"EchoJournal/pkg/middleware"
	"EchoJournal/pkg/ratelimit"
	"EchoJournal/pkg/response"
	"EchoJournal/pkg/storage"
	"EchoJournal/pkg/token"
	"EchoJournal/pkg/websocket"

	apperrors "EchoJournal/pkg/errors"
)

type Handlers struct {
	db        *gorm.DB
	entries   *service.EntryService
	summaries *service.SummaryService
	limiter   ratelimit.Limiter
	issuer    *token.Issuer
	store     storage.Store
	metrics   *metrics.Metrics
	hub       *websocket.Hub

	redisPing func() error // health 探活
	jwtSecret string
	tokenTTL  time.Duration
	idem      middleware.IdemStore
}

// Options 装配参数
type Options struct {
	DB        *gorm.DB
	Entries   *service.EntryService
	Summaries *service.SummaryService
	Limiter   ratelimit.Limiter
	Issuer    *token.Issuer
	Store     storage.Store
	Metrics   *metrics.Metrics
	Hub       *websocket.Hub
	RedisPing func() error
	JWTSecret string
	TokenTTL  time.Duration
	IdemStore middleware.IdemStore
}

func NewHandlers(opts Options) *Handlers {
	if opts.IdemStore == nil {
		opts.IdemStore = middleware.NewMemoryIdemStore()
	}
	return &Handlers{
		db:        opts.DB,
		entries:   opts.Entries,
		summaries: opts.Summaries,
		limiter:   opts.Limiter,
		issuer:    opts.Issuer,
		store:     opts.Store,
		metrics:   opts.Metrics,
		hub:       opts.Hub,
		redisPing: opts.RedisPing,
		jwtSecret: opts.JWTSecret,
		tokenTTL:  opts.TokenTTL,
		idem:      opts.IdemStore,
	}
}

func (h *Handlers) Register(engine *gin.Engine) {
	h.registerSystemRoutes(engine)

	r := engine.Group("/api/v1")
	r.Use(middleware.Auth(h.jwtSecret))
	r.Use(middleware.Idempotency(h.idem, 10*time.Minute))

	entries := r.Group("/entries")
	{
		entries.POST("", h.handleCreateEntry)
		entries.GET("", h.handleListEntries)
		entries.GET("/:id", h.handleGetEntry)
		entries.DELETE("/:id", h.handleDeleteEntry)
		entries.PUT("/:id/transcript", h.handleEditTranscript)
		entries.POST("/:id/summary", h.handleCustomSummary)
		entries.POST("/:id/audio/process", h.handleAudioProcess)
		entries.GET("/:id/audio-url", h.handleAudioURL)
	}

	summaries := r.Group("/summaries")
	{
		summaries.POST("", h.handleCreateSummary)
		summaries.GET("", h.handleListSummaries)
		summaries.GET("/:id", h.handleGetSummary)
		summaries.POST("/:id/retry", h.handleRetrySummary)
	}

	r.GET("/ws", h.handleWebsocket)

	// 令牌走 query 参数，不经过登录态中间件
	engine.GET("/api/v1/audio/:id", h.handleAudioStream)
}

// 业务级固定窗口限额，按 (用户, 操作) 计数
var opLimits = map[string]struct {
	limit  int64
	window time.Duration
}{
	ratelimit.OpEntries:   {limit: 30, window: time.Hour},
	ratelimit.OpSummaries: {limit: 10, window: time.Hour},
	ratelimit.OpAudio:     {limit: 20, window: time.Hour},
	ratelimit.OpAudioURL:  {limit: 60, window: time.Minute},
}

// allow 限流判定。限流器自身故障时放行，防滥用不应成为单点
func (h *Handlers) allow(c *gin.Context, userID uint, op string) bool {
	cfg, ok := opLimits[op]
	if !ok {
		return true
	}
	allowed, err := h.limiter.Allow(c.Request.Context(), userID, op, cfg.limit, cfg.window)
	if err != nil {
		logger.Warn("rate limiter unavailable", zap.String("op", op), zap.Error(err))
		return true
	}
	if !allowed {
		h.metrics.RateLimitDeny(op)
		response.FailErr(c, apperrors.WithCode(apperrors.CodeRateLimited, "too many requests, try again later"))
		return false
	}
	h.metrics.RateLimitAllow(op)
	return true
}

func (h *Handlers) currentUser(c *gin.Context) (uint, bool) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.Fail(c, 401, apperrors.CodeTokenInvalid, "unauthorized")
		return 0, false
	}
	return userID, true
}
