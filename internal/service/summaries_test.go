package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"EchoJournal/internal/models"
	"EchoJournal/pkg/cache"
	"EchoJournal/pkg/errors"
	"EchoJournal/pkg/queue"
)

func newSummaryService(t *testing.T) (*SummaryService, *gorm.DB, queue.Queue) {
	t.Helper()
	db := newTestDB(t)
	q := queue.NewMemoryQueue()
	c, err := cache.NewCache(cache.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return NewSummaryService(db, q, c), db, q
}

func createSummary(t *testing.T, svc *SummaryService, userID uint) *models.Summary {
	t.Helper()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)
	summary, err := svc.Create(context.Background(), userID, start, end, "")
	require.NoError(t, err)
	return summary
}

func TestSummaryCreate(t *testing.T) {
	svc, _, q := newSummaryService(t)
	ctx := context.Background()

	summary := createSummary(t, svc, 1)
	assert.Equal(t, models.SummaryStatusQueued, summary.Status)
	assert.NotEmpty(t, summary.PublicID)
	assert.Equal(t, "default", summary.TemplateID)

	item, err := q.Dequeue(ctx, queue.QueueSummaries)
	require.NoError(t, err)
	assert.Equal(t, queue.TypeProcessRangeSummary, item.Type)
	assert.Equal(t, summary.ID, item.SummaryID)
}

func TestSummaryCreateRejectsInvertedRange(t *testing.T) {
	svc, _, _ := newSummaryService(t)

	start := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), 1, start, end, "")
	assert.True(t, errors.IsCode(err, errors.CodeValidation))
}

func TestSummaryLifecycle(t *testing.T) {
	svc, db, q := newSummaryService(t)
	ctx := context.Background()

	summary := createSummary(t, svc, 1)

	// worker 抢占：queued -> processing
	claimed, err := svc.Claim(ctx, summary.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// 已被抢走，第二个 worker 抢不到
	claimed, err = svc.Claim(ctx, summary.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	got, err := models.GetSummaryByID(db, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SummaryStatusProcessing, got.Status)
	assert.NotNil(t, got.StartedAt)

	// 第一次处理失败
	require.NoError(t, svc.MarkFailed(ctx, summary.ID, errors.CodeModelTimeout, "model call timed out"))
	got, err = models.GetSummaryByID(db, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SummaryStatusFailed, got.Status)
	assert.Equal(t, errors.CodeModelTimeout, got.ErrorCode)
	assert.NotNil(t, got.FinishedAt)

	// 重试：failed -> queued，上次的错误与时间戳全部清掉
	retried, err := svc.Retry(ctx, 1, summary.PublicID)
	require.NoError(t, err)
	assert.Equal(t, models.SummaryStatusQueued, retried.Status)
	assert.Empty(t, retried.ErrorCode)
	assert.Empty(t, retried.ErrorMessage)
	assert.Empty(t, retried.SummaryText)
	assert.Nil(t, retried.StartedAt)
	assert.Nil(t, retried.FinishedAt)

	// 第二轮处理成功
	claimed, err = svc.Claim(ctx, summary.ID)
	require.NoError(t, err)
	assert.True(t, claimed)
	require.NoError(t, svc.MarkDone(ctx, summary.ID, "a good month"))

	got, err = models.GetSummaryByID(db, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SummaryStatusDone, got.Status)
	assert.Equal(t, "a good month", got.SummaryText)

	// create + retry 共入队两次
	for i := 0; i < 2; i++ {
		_, err := q.Dequeue(ctx, queue.QueueSummaries)
		require.NoError(t, err)
	}
	_, err = q.Dequeue(ctx, queue.QueueSummaries)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestSummaryRetryRejectedWhileProcessing(t *testing.T) {
	svc, _, _ := newSummaryService(t)
	ctx := context.Background()

	summary := createSummary(t, svc, 1)

	// queued 也不是终态，不允许重试
	_, err := svc.Retry(ctx, 1, summary.PublicID)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidStatus))

	claimed, err := svc.Claim(ctx, summary.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = svc.Retry(ctx, 1, summary.PublicID)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidStatus))
}

func TestSummaryOwnership(t *testing.T) {
	svc, _, _ := newSummaryService(t)
	ctx := context.Background()

	summary := createSummary(t, svc, 1)

	_, err := svc.Get(ctx, 2, summary.PublicID)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	_, err = svc.Retry(ctx, 2, summary.PublicID)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestSummaryDefaultTemplateFromProfile(t *testing.T) {
	svc, db, _ := newSummaryService(t)

	require.NoError(t, db.Create(&models.User{ID: 9, DefaultSummaryTemplate: "weekly-review"}).Error)

	summary := createSummary(t, svc, 9)
	assert.Equal(t, "weekly-review", summary.TemplateID)

	// 显式模板优先于用户默认
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	s2, err := svc.Create(context.Background(), 9, start, end, "gratitude")
	require.NoError(t, err)
	assert.Equal(t, "gratitude", s2.TemplateID)
}

func TestRequeueStale(t *testing.T) {
	svc, db, q := newSummaryService(t)
	ctx := context.Background()

	summary := createSummary(t, svc, 1)
	_, err := q.Dequeue(ctx, queue.QueueSummaries)
	require.NoError(t, err)

	claimed, err := svc.Claim(ctx, summary.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	// 刚开始处理的不算滞留
	n, err := svc.RequeueStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	// 把 started_at 拨回过去，模拟 worker 崩溃后的滞留
	old := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, db.Model(&models.Summary{}).Where("id = ?", summary.ID).
		Update("started_at", old).Error)

	n, err = svc.RequeueStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := models.GetSummaryByID(db, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SummaryStatusQueued, got.Status)

	item, err := q.Dequeue(ctx, queue.QueueSummaries)
	require.NoError(t, err)
	assert.Equal(t, queue.TypeRetryRangeSummary, item.Type)
}
