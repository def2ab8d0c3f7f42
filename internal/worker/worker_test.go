package worker

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"EchoJournal/internal/models"
	"EchoJournal/internal/service"
	"EchoJournal/pkg/cache"
	"EchoJournal/pkg/errors"
	"EchoJournal/pkg/metrics"
	"EchoJournal/pkg/queue"
	"EchoJournal/pkg/storage"
)

type fakeLLM struct {
	transcript    string
	transcribeErr error
	summary       string
	summarizeErr  error
}

func (f *fakeLLM) Transcribe(context.Context, []byte, string) (string, error) {
	return f.transcript, f.transcribeErr
}

func (f *fakeLLM) Summarize(context.Context, string) (string, error) {
	return f.summary, f.summarizeErr
}

func (f *fakeLLM) SummarizeRange(_ context.Context, texts []string, _ string) (string, error) {
	if f.summarizeErr != nil {
		return "", f.summarizeErr
	}
	return "range summary of " + strings.Join(texts, " | "), nil
}

func (f *fakeLLM) SummarizeCustom(_ context.Context, _ string, style, _, _, _ string) (string, error) {
	return "custom " + style, f.summarizeErr
}

type memLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memLock) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}

type fixture struct {
	worker    *Worker
	db        *gorm.DB
	queue     queue.Queue
	store     storage.Store
	entries   *service.EntryService
	summaries *service.SummaryService
	llm       *fakeLLM
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.Migrate(db))

	q := queue.NewMemoryQueue()
	store := storage.NewMemoryStore()
	c, err := cache.NewCache(cache.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	entries := service.NewEntryService(db, q, store, service.NewTitleGenerator(service.NewSequencer(db)))
	summaries := service.NewSummaryService(db, q, c)
	llm := &fakeLLM{transcript: "hello world", summary: "a short summary"}

	w := New(Options{
		DB:          db,
		Queue:       q,
		Entries:     entries,
		Summaries:   summaries,
		Store:       store,
		Transcriber: llm,
		Summarizer:  llm,
		Lock:        &memLock{held: make(map[string]bool)},
		Metrics:     metrics.Global(),
	})
	return &fixture{worker: w, db: db, queue: q, store: store, entries: entries, summaries: summaries, llm: llm}
}

func (f *fixture) createEntry(t *testing.T, userID uint) *models.Entry {
	t.Helper()
	r := strings.NewReader("fake audio")
	entry, err := f.entries.Create(context.Background(), userID, "note.m4a", r, int64(r.Len()), "audio/mp4")
	require.NoError(t, err)
	return entry
}

func TestProcessEntryHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.llm.transcript = "so um today was uh a good day"
	entry := f.createEntry(t, 1)

	outcome := f.worker.processEntry(ctx, entry.ID)
	assert.Equal(t, outcomeDone, outcome)

	got, err := models.GetEntryByID(f.db, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusDone, got.Status)
	assert.Equal(t, "so today was a good day", got.TranscriptText)
	assert.Equal(t, "a short summary", got.SummaryText)
}

func TestProcessEntryModelTimeout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.llm.transcribeErr = context.DeadlineExceeded
	entry := f.createEntry(t, 1)

	outcome := f.worker.processEntry(ctx, entry.ID)
	assert.Equal(t, outcomeFailed, outcome)

	got, err := models.GetEntryByID(f.db, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusFailed, got.Status)
	assert.Equal(t, errors.CodeModelTimeout, got.ErrorCode)
}

func TestProcessEntryEmptyTranscript(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.llm.transcript = "  um  uh  "
	entry := f.createEntry(t, 1)

	outcome := f.worker.processEntry(ctx, entry.ID)
	assert.Equal(t, outcomeFailed, outcome)

	got, err := models.GetEntryByID(f.db, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, errors.CodeNoTranscript, got.ErrorCode)
}

func TestProcessEntrySkipsDeletedAndDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 入队后被删除：任务作废，不报错
	assert.Equal(t, outcomeSkipped, f.worker.processEntry(ctx, 9999))

	// at-least-once 下的重复投递：第二次发现已是终态直接放弃
	entry := f.createEntry(t, 1)
	assert.Equal(t, outcomeDone, f.worker.processEntry(ctx, entry.ID))
	assert.Equal(t, outcomeSkipped, f.worker.processEntry(ctx, entry.ID))
}

func TestProcessRangeSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry := f.createEntry(t, 1)
	require.NoError(t, f.entries.MarkDone(ctx, entry.ID, "walked in the rain", "s"))

	start := time.Now().UTC().Add(-24 * time.Hour)
	end := time.Now().UTC().Add(24 * time.Hour)
	summary, err := f.summaries.Create(ctx, 1, start, end, "")
	require.NoError(t, err)

	outcome := f.worker.processRangeSummary(ctx, summary.ID)
	assert.Equal(t, outcomeDone, outcome)

	got, err := models.GetSummaryByID(f.db, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SummaryStatusDone, got.Status)
	assert.Equal(t, "range summary of walked in the rain", got.SummaryText)

	// 同一任务再来一次：记录已不在 queued，抢占失败即放弃
	assert.Equal(t, outcomeSkipped, f.worker.processRangeSummary(ctx, summary.ID))
}

func TestProcessRangeSummaryEmptyRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	summary, err := f.summaries.Create(ctx, 1, start, end, "")
	require.NoError(t, err)

	outcome := f.worker.processRangeSummary(ctx, summary.ID)
	assert.Equal(t, outcomeDone, outcome)

	got, err := models.GetSummaryByID(f.db, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SummaryStatusDone, got.Status)
	assert.Equal(t, emptyRangeText, got.SummaryText)
}

func TestProcessRangeSummaryFailureThenRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry := f.createEntry(t, 1)
	require.NoError(t, f.entries.MarkDone(ctx, entry.ID, "text", "s"))

	start := time.Now().UTC().Add(-24 * time.Hour)
	end := time.Now().UTC().Add(24 * time.Hour)
	summary, err := f.summaries.Create(ctx, 1, start, end, "")
	require.NoError(t, err)

	f.llm.summarizeErr = context.DeadlineExceeded
	assert.Equal(t, outcomeFailed, f.worker.processRangeSummary(ctx, summary.ID))

	got, err := models.GetSummaryByID(f.db, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SummaryStatusFailed, got.Status)
	assert.Equal(t, errors.CodeModelTimeout, got.ErrorCode)

	// 用户重试后第二轮成功
	_, err = f.summaries.Retry(ctx, 1, summary.PublicID)
	require.NoError(t, err)

	f.llm.summarizeErr = nil
	assert.Equal(t, outcomeDone, f.worker.processRangeSummary(ctx, summary.ID))

	got, err = models.GetSummaryByID(f.db, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SummaryStatusDone, got.Status)
	assert.Empty(t, got.ErrorCode)
}

func TestProcessCustomSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry := f.createEntry(t, 1)
	require.NoError(t, f.entries.MarkDone(ctx, entry.ID, "transcript", "old summary"))

	opts := &queue.CustomSummaryOptions{Style: "bullet_points", Length: "short", Focus: "key_points"}
	outcome := f.worker.processCustomSummary(ctx, entry.ID, opts)
	assert.Equal(t, outcomeDone, outcome)

	got, err := models.GetEntryByID(f.db, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "custom bullet_points", got.SummaryText)
	// 状态与转写不受影响
	assert.Equal(t, models.EntryStatusDone, got.Status)
	assert.Equal(t, "transcript", got.TranscriptText)
}

func TestProcessAudioRewritesObject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry := f.createEntry(t, 1)
	outcome := f.worker.processAudio(ctx, entry.ID, "normalize")
	assert.Equal(t, outcomeDone, outcome)

	ok, err := f.store.Exists(ctx, entry.AudioKey)
	require.NoError(t, err)
	assert.True(t, ok)
}
