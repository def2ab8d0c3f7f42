package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("AllowUpToLimitThenDeny", func(t *testing.T) {
		l := NewMemoryLimiter()

		for i := 0; i < 5; i++ {
			ok, err := l.Allow(ctx, 1, OpEntries, 5, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok, "call %d should be allowed", i+1)
		}
		ok, err := l.Allow(ctx, 1, OpEntries, 5, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok, "call 6 should be denied")
	})

	t.Run("WindowExpiryResets", func(t *testing.T) {
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		l := NewMemoryLimiterWithClock(func() time.Time { return now })

		ok, err := l.Allow(ctx, 1, OpSummaries, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = l.Allow(ctx, 1, OpSummaries, 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		// 窗口过期后重新放行
		now = now.Add(61 * time.Second)
		ok, err = l.Allow(ctx, 1, OpSummaries, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("UsersAndOpsIsolated", func(t *testing.T) {
		l := NewMemoryLimiter()

		ok, err := l.Allow(ctx, 1, OpEntries, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		// 同用户不同操作
		ok, err = l.Allow(ctx, 1, OpAudio, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		// 不同用户同操作
		ok, err = l.Allow(ctx, 2, OpEntries, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		// 原用户原操作已满
		ok, err = l.Allow(ctx, 1, OpEntries, 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
