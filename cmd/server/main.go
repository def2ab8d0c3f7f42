package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"EchoJournal/internal/app"
	handlers "EchoJournal/internal/handler"
	"EchoJournal/internal/listeners"
	"EchoJournal/pkg/config"
	"EchoJournal/pkg/logger"
	"EchoJournal/pkg/middleware"
	"EchoJournal/pkg/websocket"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := logger.Init(config.GlobalConfig.Log); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Bootstrap(ctx)
	if err != nil {
		logger.Error("bootstrap failed", zap.Error(err))
		return
	}
	defer a.Close()

	hub := websocket.NewHub()
	listeners.RegisterStatusListeners(hub)

	if a.Config.Mode != "" {
		gin.SetMode(a.Config.Mode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	edge := middleware.NewEdgeRateLimiter(middleware.EdgeLimitConfig{
		Rate:      "300-M",
		SkipPaths: []string{"/health", "/metrics"},
	}, nil)
	engine.Use(edge.Middleware())

	h := handlers.NewHandlers(handlers.Options{
		DB:        a.DB,
		Entries:   a.Entries,
		Summaries: a.Summaries,
		Limiter:   a.Limiter,
		Issuer:    a.Issuer,
		Store:     a.Store,
		Metrics:   a.Metrics,
		Hub:       hub,
		RedisPing: func() error { return a.Redis.Ping(context.Background()).Err() },
		JWTSecret: a.Config.JWTSecret,
		TokenTTL:  time.Duration(a.Config.AudioTokenTTL) * time.Second,
		IdemStore: middleware.NewRedisIdemStore(a.Redis),
	})
	h.Register(engine)

	// 单机部署可以省掉独立 worker 进程，状态推送也能直达本进程的连接
	if a.Config.EmbedWorker {
		go a.NewWorker().Run(ctx)
	}

	srv := &http.Server{Addr: a.Config.Addr, Handler: engine}
	go func() {
		logger.Info("server listening", zap.String("addr", a.Config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
