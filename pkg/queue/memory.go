package queue

import (
	"context"
	"sync"
	"time"
)

// memoryQueue 进程内队列实现，服务单测与本地开发
type memoryQueue struct {
	mu     sync.Mutex
	lists  map[string][]*WorkItem
	wakeup chan struct{}
	closed bool
}

// NewMemoryQueue 创建内存队列
func NewMemoryQueue() Queue {
	return &memoryQueue{
		lists:  make(map[string][]*WorkItem),
		wakeup: make(chan struct{}, 1),
	}
}

func (q *memoryQueue) Enqueue(_ context.Context, queueName string, item *WorkItem) error {
	q.mu.Lock()
	q.lists[queueName] = append(q.lists[queueName], item)
	q.mu.Unlock()

	// 唤醒一个阻塞中的消费者
	select {
	case q.wakeup <- struct{}{}:
	default:
	}
	return nil
}

func (q *memoryQueue) Dequeue(_ context.Context, queueName string) (*WorkItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked(queueName)
}

func (q *memoryQueue) BDequeue(ctx context.Context, timeout time.Duration, queueNames ...string) (*WorkItem, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		for _, name := range queueNames {
			if item, err := q.popLocked(name); err == nil {
				q.mu.Unlock()
				return item, nil
			}
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrEmpty
		case <-q.wakeup:
			// 有新任务，重试
		}
	}
}

func (q *memoryQueue) Len(_ context.Context, queueName string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.lists[queueName])), nil
}

func (q *memoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// popLocked 弹出队头，调用方需持锁
func (q *memoryQueue) popLocked(queueName string) (*WorkItem, error) {
	list := q.lists[queueName]
	if len(list) == 0 {
		return nil, ErrEmpty
	}
	item := list[0]
	q.lists[queueName] = list[1:]
	return item, nil
}
