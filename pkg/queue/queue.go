package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// 队列名称，每个工作类别一个列表，类别内 FIFO
const (
	QueueEntries   = "jobs:entries"
	QueueSummaries = "jobs:summaries"
	QueueAudio     = "jobs:audio"
)

// 任务类型
const (
	TypeProcessEntry        = "process-entry"
	TypeProcessRangeSummary = "process-range-summary"
	TypeRetryRangeSummary   = "retry-range-summary"
	TypeCustomSummary       = "custom-summary"
	TypeAudioPostProcess    = "audio-post-process"
)

// ErrEmpty 队列为空
var ErrEmpty = errors.New("queue: empty")

// CustomSummaryOptions 自定义摘要参数，随任务透传给 worker
type CustomSummaryOptions struct {
	Style        string `json:"style"`
	Length       string `json:"length"`
	Focus        string `json:"focus"`
	CustomPrompt string `json:"customPrompt,omitempty"`
}

// WorkItem 一条待处理任务。入队方创建，成功出队后归 worker 独占
type WorkItem struct {
	ID        string                `json:"id"`
	Type      string                `json:"type"`
	EntryID   uint                  `json:"entryId,omitempty"`
	SummaryID uint                  `json:"summaryId,omitempty"`
	AudioOp   string                `json:"audioOp,omitempty"` // denoise/normalize/enhance
	Options   *CustomSummaryOptions `json:"options,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
}

// NewWorkItem 创建任务
func NewWorkItem(jobType string) *WorkItem {
	return &WorkItem{
		ID:        uuid.NewString(),
		Type:      jobType,
		CreatedAt: time.Now().UTC(),
	}
}

// Queue 持久化有序队列。投递语义为 at-least-once：
// 出队后 worker 崩溃不会自动重回队列，靠记录状态 + 重试接口兜底
type Queue interface {
	// Enqueue 追加到队尾，落盘后返回
	Enqueue(ctx context.Context, queueName string, item *WorkItem) error

	// Dequeue 弹出队头，空队列返回 ErrEmpty。并发消费者安全，
	// 每条任务只会被一次成功的 Dequeue 拿到
	Dequeue(ctx context.Context, queueName string) (*WorkItem, error)

	// BDequeue 阻塞弹出，超时返回 ErrEmpty。可同时监听多个队列
	BDequeue(ctx context.Context, timeout time.Duration, queueNames ...string) (*WorkItem, error)

	// Len 队列深度（监控用）
	Len(ctx context.Context, queueName string) (int64, error)

	Close() error
}
