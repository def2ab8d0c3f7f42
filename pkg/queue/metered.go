package queue

import (
	"context"
	"time"

	"EchoJournal/pkg/metrics"
)

// meteredQueue 在队列出入口打点，内层实现不感知指标
type meteredQueue struct {
	inner Queue
	m     *metrics.Metrics
}

// WithMetrics 包装队列，记录出入队计数
func WithMetrics(q Queue, m *metrics.Metrics) Queue {
	if m == nil {
		return q
	}
	return &meteredQueue{inner: q, m: m}
}

func (q *meteredQueue) Enqueue(ctx context.Context, queueName string, item *WorkItem) error {
	if err := q.inner.Enqueue(ctx, queueName, item); err != nil {
		return err
	}
	q.m.JobEnqueued(queueName, item.Type)
	return nil
}

func (q *meteredQueue) Dequeue(ctx context.Context, queueName string) (*WorkItem, error) {
	item, err := q.inner.Dequeue(ctx, queueName)
	if err != nil {
		return nil, err
	}
	q.m.JobDequeued(item.Type)
	return item, nil
}

func (q *meteredQueue) BDequeue(ctx context.Context, timeout time.Duration, queueNames ...string) (*WorkItem, error) {
	item, err := q.inner.BDequeue(ctx, timeout, queueNames...)
	if err != nil {
		return nil, err
	}
	q.m.JobDequeued(item.Type)
	return item, nil
}

func (q *meteredQueue) Len(ctx context.Context, queueName string) (int64, error) {
	return q.inner.Len(ctx, queueName)
}

func (q *meteredQueue) Close() error { return q.inner.Close() }
