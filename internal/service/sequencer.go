package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"gorm.io/gorm"

	"EchoJournal/pkg/errors"
)

var dateYmdRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Sequencer 为 (用户, UTC 日期) 生成 1,2,3,... 的连续序号。
// 自增必须由数据库在单条语句内完成：应用层先读后写在并发下会丢更新，
// 两个请求读到同一值、写回同一值，标题就撞号了
type Sequencer struct {
	db       *gorm.DB
	attempts int
}

// NewSequencer 创建序号生成器
func NewSequencer(db *gorm.DB) *Sequencer {
	return &Sequencer{db: db, attempts: 3}
}

// Next 返回该 (用户, 日期) 的下一个序号，首次调用返回 1。
// 瞬时存储错误内部重试，整个操作要么完整生效要么完全不生效
func (s *Sequencer) Next(ctx context.Context, userID uint, dateYmd string) (int64, error) {
	if !dateYmdRe.MatchString(dateYmd) {
		return 0, errors.WithCodef(errors.CodeValidation, "invalid date: %s", dateYmd)
	}

	var n int64
	var err error
	for i := 0; i < s.attempts; i++ {
		n, err = s.nextOnce(ctx, userID, dateYmd)
		if err == nil {
			return n, nil
		}
		// 行锁竞争或连接抖动，稍后整体重做
		time.Sleep(time.Duration(i+1) * 20 * time.Millisecond)
	}
	return 0, fmt.Errorf("sequencer: increment failed: %w", err)
}

// NextNow 按当前 UTC 日期取号
func (s *Sequencer) NextNow(ctx context.Context, userID uint) (int64, error) {
	return s.Next(ctx, userID, time.Now().UTC().Format("2006-01-02"))
}

func (s *Sequencer) nextOnce(ctx context.Context, userID uint, dateYmd string) (int64, error) {
	switch s.db.Dialector.Name() {
	case "mysql":
		return s.nextMySQL(ctx, userID, dateYmd)
	default:
		// postgres / sqlite 走 ON CONFLICT ... RETURNING
		return s.nextUpsertReturning(ctx, userID, dateYmd)
	}
}

// nextMySQL: 插入时用 LAST_INSERT_ID(1) 登记初值，冲突时
// LAST_INSERT_ID(counter+1) 原子自增。两条语句必须同一连接
func (s *Sequencer) nextMySQL(ctx context.Context, userID uint, dateYmd string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Connection(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		if err := tx.Exec(
			`INSERT INTO daily_counters (user_id, date_ymd, counter, created_at, updated_at)
			 VALUES (?, ?, LAST_INSERT_ID(1), ?, ?)
			 ON DUPLICATE KEY UPDATE counter = LAST_INSERT_ID(counter + 1), updated_at = VALUES(updated_at)`,
			userID, dateYmd, now, now,
		).Error; err != nil {
			return err
		}
		return tx.Raw(`SELECT LAST_INSERT_ID()`).Scan(&n).Error
	})
	return n, err
}

func (s *Sequencer) nextUpsertReturning(ctx context.Context, userID uint, dateYmd string) (int64, error) {
	var n int64
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Raw(
		`INSERT INTO daily_counters (user_id, date_ymd, counter, created_at, updated_at)
		 VALUES (?, ?, 1, ?, ?)
		 ON CONFLICT (user_id, date_ymd) DO UPDATE SET counter = daily_counters.counter + 1, updated_at = ?
		 RETURNING counter`,
		userID, dateYmd, now, now, now,
	).Scan(&n).Error
	return n, err
}
