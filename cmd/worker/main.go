package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"EchoJournal/internal/app"
	"EchoJournal/pkg/config"
	"EchoJournal/pkg/logger"
	"EchoJournal/pkg/scheduler"
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

	w := a.NewWorker()

	// 队列深度上报
	sched := scheduler.New()
	defer sched.Stop()
	sched.Every(15*time.Second, scheduler.FuncJob(w.ReportQueueDepth))

	// 清扫：把滞留 processing 的摘要打回队列，默认关闭
	if a.Config.SweepStaleAfter > 0 {
		age := time.Duration(a.Config.SweepStaleAfter) * time.Second
		cr := scheduler.NewCron(time.UTC)
		if _, err := cr.Add("*/5 * * * *", func(ctx context.Context) {
			if _, err := a.Summaries.RequeueStale(ctx, age); err != nil {
				logger.Warn("stale sweep failed", zap.Error(err))
			}
		}); err != nil {
			logger.Error("failed to register sweeper", zap.Error(err))
		} else {
			cr.Start()
			defer cr.Stop()
		}
	}

	concurrency := a.Config.WorkerConcurrency
	logger.Info("starting workers", zap.Int("concurrency", concurrency))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	logger.Info("worker shut down")
}
