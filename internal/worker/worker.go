package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"EchoJournal/internal/service"
	"EchoJournal/pkg/llm"
	"EchoJournal/pkg/logger"
	"EchoJournal/pkg/metrics"
	"EchoJournal/pkg/queue"
	"EchoJournal/pkg/storage"
)

const (
	dequeueTimeout = 5 * time.Second
	jobTimeout     = 5 * time.Minute
	recordLockTTL  = 10 * time.Minute
)

// 任务结果标签
const (
	outcomeDone    = "done"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
	outcomeError   = "error" // 基础设施故障，任务语义上未完成
)

// Worker 队列消费者。一次 BRPOP 同时监听三个队列，先到先处理。
// 投递是 at-least-once：任何回写都走带条件的 UPDATE，
// 重复消费同一任务时第二次回写不生效
type Worker struct {
	db          *gorm.DB
	queue       queue.Queue
	entries     *service.EntryService
	summaries   *service.SummaryService
	store       storage.Store
	transcriber llm.Transcriber
	summarizer  llm.Summarizer
	audio       AudioProcessor
	lock        RecordLock
	metrics     *metrics.Metrics
}

// Options 装配参数
type Options struct {
	DB          *gorm.DB
	Queue       queue.Queue
	Entries     *service.EntryService
	Summaries   *service.SummaryService
	Store       storage.Store
	Transcriber llm.Transcriber
	Summarizer  llm.Summarizer
	Audio       AudioProcessor
	Lock        RecordLock
	Metrics     *metrics.Metrics
}

func New(opts Options) *Worker {
	audio := opts.Audio
	if audio == nil {
		audio = NewPassthroughProcessor()
	}
	return &Worker{
		db:          opts.DB,
		queue:       opts.Queue,
		entries:     opts.Entries,
		summaries:   opts.Summaries,
		store:       opts.Store,
		transcriber: opts.Transcriber,
		summarizer:  opts.Summarizer,
		audio:       audio,
		lock:        opts.Lock,
		metrics:     opts.Metrics,
	}
}

// Run 消费循环，ctx 取消后处理完手头任务再退出
func (w *Worker) Run(ctx context.Context) {
	logger.Info("worker started")
	for {
		if ctx.Err() != nil {
			logger.Info("worker stopped")
			return
		}

		item, err := w.queue.BDequeue(ctx, dequeueTimeout,
			queue.QueueEntries, queue.QueueSummaries, queue.QueueAudio)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) || errors.Is(err, context.Canceled) {
				continue
			}
			logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		w.process(item)
	}
}

func (w *Worker) process(item *queue.WorkItem) {
	// 出队后任务归本 worker，用独立 ctx 保证停机时也能收尾
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	var outcome string
	switch item.Type {
	case queue.TypeProcessEntry:
		outcome = w.processEntry(ctx, item.EntryID)
	case queue.TypeProcessRangeSummary, queue.TypeRetryRangeSummary:
		outcome = w.processRangeSummary(ctx, item.SummaryID)
	case queue.TypeCustomSummary:
		outcome = w.processCustomSummary(ctx, item.EntryID, item.Options)
	case queue.TypeAudioPostProcess:
		outcome = w.processAudio(ctx, item.EntryID, item.AudioOp)
	default:
		logger.Warn("unknown job type, dropping", zap.String("type", item.Type), zap.String("jobId", item.ID))
		outcome = outcomeSkipped
	}

	w.metrics.JobProcessed(item.Type, outcome, time.Since(start))
	logger.Info("job processed",
		zap.String("jobId", item.ID), zap.String("type", item.Type),
		zap.String("outcome", outcome), zap.Duration("took", time.Since(start)))
}

// ReportQueueDepth 周期性上报三个队列的深度
func (w *Worker) ReportQueueDepth(ctx context.Context) {
	for _, name := range []string{queue.QueueEntries, queue.QueueSummaries, queue.QueueAudio} {
		depth, err := w.queue.Len(ctx, name)
		if err != nil {
			continue
		}
		w.metrics.SetQueueDepth(name, depth)
	}
}
