package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleFormat(t *testing.T) {
	titles := NewTitleGenerator(NewSequencer(newTestDB(t)))

	at := time.Date(2026, 8, 28, 9, 5, 30, 0, time.UTC)
	title, err := titles.Generate(context.Background(), 1, at)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-28-09-05-#1", title)
}

func TestTitlesDistinctWithinDay(t *testing.T) {
	titles := NewTitleGenerator(NewSequencer(newTestDB(t)))
	ctx := context.Background()

	// 同一分钟的多次上传也不能撞标题，序号兜底
	at := time.Date(2026, 8, 28, 9, 5, 0, 0, time.UTC)
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		title, err := titles.Generate(ctx, 1, at)
		require.NoError(t, err)
		assert.False(t, seen[title], "duplicate title %s", title)
		seen[title] = true
	}
}

func TestTitleCounterResetsNextDay(t *testing.T) {
	titles := NewTitleGenerator(NewSequencer(newTestDB(t)))
	ctx := context.Background()

	day1 := time.Date(2026, 8, 28, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 29, 0, 1, 0, 0, time.UTC)

	t1, err := titles.Generate(ctx, 1, day1)
	require.NoError(t, err)
	t2, err := titles.Generate(ctx, 1, day2)
	require.NoError(t, err)

	assert.Equal(t, "2026-08-28-23-59-#1", t1)
	assert.Equal(t, "2026-08-29-00-01-#1", t2)
}

func TestParseTitle(t *testing.T) {
	p := ParseTitle("2026-08-28-09-05-#12")
	require.NotNil(t, p)
	assert.Equal(t, "2026-08-28", p.Date)
	assert.Equal(t, "09:05", p.Time)
	assert.Equal(t, int64(12), p.Counter)

	for _, bad := range []string{"", "hello", "2026-08-28-09-05", "2026-08-28-09-05-#", "2026-08-28-9-5-#1"} {
		assert.Nil(t, ParseTitle(bad), "title %q should not parse", bad)
	}
}
