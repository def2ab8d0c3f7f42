package queue

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		q := NewMemoryQueue()
		defer q.Close()

		item := NewWorkItem(TypeProcessEntry)
		item.EntryID = 42

		require.NoError(t, q.Enqueue(ctx, QueueEntries, item))

		got, err := q.Dequeue(ctx, QueueEntries)
		require.NoError(t, err)
		assert.Equal(t, item.ID, got.ID)
		assert.Equal(t, TypeProcessEntry, got.Type)
		assert.Equal(t, uint(42), got.EntryID)
	})

	t.Run("FIFO", func(t *testing.T) {
		q := NewMemoryQueue()
		defer q.Close()

		for i := 1; i <= 3; i++ {
			item := NewWorkItem(TypeProcessEntry)
			item.EntryID = uint(i)
			require.NoError(t, q.Enqueue(ctx, QueueEntries, item))
		}
		for i := 1; i <= 3; i++ {
			got, err := q.Dequeue(ctx, QueueEntries)
			require.NoError(t, err)
			assert.Equal(t, uint(i), got.EntryID)
		}
	})

	t.Run("EmptyQueue", func(t *testing.T) {
		q := NewMemoryQueue()
		defer q.Close()

		_, err := q.Dequeue(ctx, QueueEntries)
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("QueuesAreIndependent", func(t *testing.T) {
		q := NewMemoryQueue()
		defer q.Close()

		require.NoError(t, q.Enqueue(ctx, QueueSummaries, NewWorkItem(TypeProcessRangeSummary)))

		_, err := q.Dequeue(ctx, QueueEntries)
		assert.ErrorIs(t, err, ErrEmpty)

		got, err := q.Dequeue(ctx, QueueSummaries)
		require.NoError(t, err)
		assert.Equal(t, TypeProcessRangeSummary, got.Type)
	})

	// 单条任务 + 两个并发消费者：恰好一个拿到，另一个拿空
	t.Run("SingleItemTwoConsumers", func(t *testing.T) {
		q := NewMemoryQueue()
		defer q.Close()

		require.NoError(t, q.Enqueue(ctx, QueueEntries, NewWorkItem(TypeProcessEntry)))

		var mu sync.Mutex
		var items, empties int
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := q.Dequeue(ctx, QueueEntries)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					items++
				} else if err == ErrEmpty {
					empties++
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, 1, items)
		assert.Equal(t, 1, empties)
	})

	t.Run("ConcurrentConsumersDrainAll", func(t *testing.T) {
		q := NewMemoryQueue()
		defer q.Close()

		const n = 50
		for i := 0; i < n; i++ {
			item := NewWorkItem(TypeProcessEntry)
			item.EntryID = uint(i + 1)
			require.NoError(t, q.Enqueue(ctx, QueueEntries, item))
		}

		seen := make(map[uint]bool)
		var mu sync.Mutex
		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					item, err := q.Dequeue(ctx, QueueEntries)
					if err != nil {
						return
					}
					mu.Lock()
					// 同一条任务不允许被两个消费者同时拿到
					assert.False(t, seen[item.EntryID])
					seen[item.EntryID] = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Len(t, seen, n)
	})

	t.Run("BDequeueTimeout", func(t *testing.T) {
		q := NewMemoryQueue()
		defer q.Close()

		start := time.Now()
		_, err := q.BDequeue(ctx, 50*time.Millisecond, QueueEntries, QueueSummaries)
		assert.ErrorIs(t, err, ErrEmpty)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("BDequeueWakesOnEnqueue", func(t *testing.T) {
		q := NewMemoryQueue()
		defer q.Close()

		done := make(chan *WorkItem, 1)
		go func() {
			item, err := q.BDequeue(ctx, 5*time.Second, QueueEntries)
			if err == nil {
				done <- item
			}
		}()

		time.Sleep(20 * time.Millisecond)
		want := NewWorkItem(TypeProcessEntry)
		require.NoError(t, q.Enqueue(ctx, QueueEntries, want))

		select {
		case got := <-done:
			assert.Equal(t, want.ID, got.ID)
		case <-time.After(2 * time.Second):
			t.Fatal("BDequeue did not wake up on enqueue")
		}
	})
}

func TestWorkItemWire(t *testing.T) {
	item := NewWorkItem(TypeCustomSummary)
	item.EntryID = 7
	item.Options = &CustomSummaryOptions{Style: "narrative", Length: "medium", Focus: "key_points"}

	data, err := json.Marshal(item)
	require.NoError(t, err)

	got, err := unmarshalItem(data)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, item.EntryID, got.EntryID)
	require.NotNil(t, got.Options)
	assert.Equal(t, "narrative", got.Options.Style)
	assert.WithinDuration(t, item.CreatedAt, got.CreatedAt, time.Second)
}
