package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"EchoJournal/internal/models"
	"EchoJournal/internal/service"
	"EchoJournal/internal/worker"
	"EchoJournal/pkg/cache"
	"EchoJournal/pkg/config"
	"EchoJournal/pkg/llm"
	"EchoJournal/pkg/metrics"
	"EchoJournal/pkg/queue"
	"EchoJournal/pkg/ratelimit"
	"EchoJournal/pkg/storage"
	"EchoJournal/pkg/token"
)

// App server 与 worker 共用的装配结果，两个进程用同一套接线
// 避免配置各自漂移
type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   *redis.Client
	Queue   queue.Queue
	Store   storage.Store
	Cache   cache.Cache
	Metrics *metrics.Metrics

	Sequencer *service.Sequencer
	Titles    *service.TitleGenerator
	Entries   *service.EntryService
	Summaries *service.SummaryService

	Limiter ratelimit.Limiter
	Issuer  *token.Issuer
	LLM     *llm.OpenAIProvider
}

// Bootstrap 按全局配置建立所有依赖。任一基础设施不可达直接报错，
// 宁可启动失败也不要半残着跑
func Bootstrap(ctx context.Context) (*App, error) {
	cfg := config.GlobalConfig

	db, err := models.OpenDB(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := models.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	store, err := storage.NewMinioStore(ctx, storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init object storage: %w", err)
	}

	c, err := cache.NewCache(cache.Config{})
	if err != nil {
		return nil, err
	}

	m := metrics.Global()
	q := queue.WithMetrics(queue.NewRedisQueueWithClient(rdb), m)

	seq := service.NewSequencer(db)
	titles := service.NewTitleGenerator(seq)
	entries := service.NewEntryService(db, q, store, titles)
	summaries := service.NewSummaryService(db, q, c)

	provider := llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:    cfg.LLMApiKey,
		BaseURL:   cfg.LLMBaseURL,
		ChatModel: cfg.LLMModel,
		STTModel:  cfg.STTModel,
	})

	return &App{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		Queue:     q,
		Store:     store,
		Cache:     c,
		Metrics:   m,
		Sequencer: seq,
		Titles:    titles,
		Entries:   entries,
		Summaries: summaries,
		Limiter:   ratelimit.NewRedisLimiter(rdb),
		Issuer:    token.NewIssuer(cfg.JWTSecret, "audio"),
		LLM:       provider,
	}, nil
}

// NewWorker 基于已装配的依赖创建一个消费者
func (a *App) NewWorker() *worker.Worker {
	return worker.New(worker.Options{
		DB:          a.DB,
		Queue:       a.Queue,
		Entries:     a.Entries,
		Summaries:   a.Summaries,
		Store:       a.Store,
		Transcriber: a.LLM,
		Summarizer:  a.LLM,
		Lock:        worker.NewRedisLock(a.Redis),
		Metrics:     a.Metrics,
	})
}

// Close 释放连接
func (a *App) Close() {
	a.Cache.Close()
	a.Redis.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
