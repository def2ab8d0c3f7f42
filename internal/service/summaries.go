package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"EchoJournal/internal/models"
	"EchoJournal/pkg/cache"
	"EchoJournal/pkg/errors"
	"EchoJournal/pkg/logger"
	"EchoJournal/pkg/queue"
	"EchoJournal/pkg/util"
)

// SummaryService 区间摘要状态机：queued -> processing -> done|failed，
// 终态只能经 Retry 回到 queued。所有状态跃迁都是带条件的 UPDATE，
// 靠 RowsAffected 判定跃迁是否真的发生
type SummaryService struct {
	db    *gorm.DB
	queue queue.Queue
	cache cache.Cache
}

// NewSummaryService 创建摘要服务
func NewSummaryService(db *gorm.DB, q queue.Queue, c cache.Cache) *SummaryService {
	return &SummaryService{db: db, queue: q, cache: c}
}

// Create 建 queued 行并入队。templateID 为空时取用户默认模板
func (s *SummaryService) Create(ctx context.Context, userID uint, rangeStart, rangeEnd time.Time, templateID string) (*models.Summary, error) {
	if !rangeEnd.After(rangeStart) {
		return nil, errors.WithCode(errors.CodeValidation, "range_end must be after range_start")
	}

	if templateID == "" {
		templateID = s.defaultTemplate(ctx, userID)
	}

	summary := &models.Summary{
		PublicID:   uuid.NewString(),
		UserID:     userID,
		RangeStart: rangeStart.UTC(),
		RangeEnd:   rangeEnd.UTC(),
		TemplateID: templateID,
		Status:     models.SummaryStatusQueued,
	}
	if err := s.db.WithContext(ctx).Create(summary).Error; err != nil {
		return nil, err
	}

	item := queue.NewWorkItem(queue.TypeProcessRangeSummary)
	item.SummaryID = summary.ID
	if err := s.queue.Enqueue(ctx, queue.QueueSummaries, item); err != nil {
		// 与条目创建同样的取舍：行在、任务丢，等重试兜底
		logger.Warn("summary enqueue failed, record left in queued",
			zap.Uint("summaryId", summary.ID), zap.Error(err))
	}

	logger.Info("summary created",
		zap.Uint("userId", userID), zap.Uint("summaryId", summary.ID), zap.String("publicId", summary.PublicID))
	return summary, nil
}

// Get 查询单条，他人记录按不存在处理
func (s *SummaryService) Get(ctx context.Context, userID uint, publicID string) (*models.Summary, error) {
	summary, err := models.GetSummaryByPublicID(s.db.WithContext(ctx), publicID, userID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, errors.WithCode(errors.CodeNotFound, "summary not found")
		}
		return nil, err
	}
	return summary, nil
}

// List 列出用户摘要
func (s *SummaryService) List(ctx context.Context, userID uint, status string, limit int) ([]models.Summary, error) {
	return models.ListSummariesByUser(s.db.WithContext(ctx), userID, status, limit)
}

// Retry 终态重试：done/failed -> queued，清空上次结果与错误，再入队。
// processing 中的记录拒绝重试；条件 UPDATE 保证并发下只有一次生效
func (s *SummaryService) Retry(ctx context.Context, userID uint, publicID string) (*models.Summary, error) {
	summary, err := s.Get(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&models.Summary{}).
		Where("id = ? AND user_id = ? AND status IN ?", summary.ID, userID,
			[]string{models.SummaryStatusDone, models.SummaryStatusFailed}).
		Updates(map[string]interface{}{
			"status":        models.SummaryStatusQueued,
			"summary_text":  "",
			"error_code":    "",
			"error_message": "",
			"started_at":    nil,
			"finished_at":   nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errors.WithCodef(errors.CodeInvalidStatus, "summary is %s, retry allowed only from done/failed", summary.Status)
	}

	item := queue.NewWorkItem(queue.TypeRetryRangeSummary)
	item.SummaryID = summary.ID
	if err := s.queue.Enqueue(ctx, queue.QueueSummaries, item); err != nil {
		logger.Warn("retry enqueue failed, record left in queued",
			zap.Uint("summaryId", summary.ID), zap.Error(err))
	}

	logger.Info("summary retry requested", zap.Uint("userId", userID), zap.Uint("summaryId", summary.ID))
	return models.GetSummaryByPublicID(s.db.WithContext(ctx), publicID, userID)
}

// Claim worker 抢占处理权：只有 queued 的记录能进 processing，
// RowsAffected==0 说明已被别的 worker 抢走或已是终态
func (s *SummaryService) Claim(ctx context.Context, summaryID uint) (bool, error) {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.Summary{}).
		Where("id = ? AND status = ?", summaryID, models.SummaryStatusQueued).
		Updates(map[string]interface{}{
			"status":        models.SummaryStatusProcessing,
			"error_code":    "",
			"error_message": "",
			"started_at":    now,
			"finished_at":   nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkDone worker 回写成功结果
func (s *SummaryService) MarkDone(ctx context.Context, summaryID uint, text string) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.Summary{}).
		Where("id = ? AND status = ?", summaryID, models.SummaryStatusProcessing).
		Updates(map[string]interface{}{
			"status":       models.SummaryStatusDone,
			"summary_text": text,
			"finished_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.WithCode(errors.CodeInvalidStatus, "summary is not in processing")
	}
	s.emitStatus(ctx, summaryID, models.SummaryStatusDone)
	return nil
}

// MarkFailed worker 回写不可恢复失败，code 供程序判断，message 给人看
func (s *SummaryService) MarkFailed(ctx context.Context, summaryID uint, code, message string) error {
	if len(message) > 255 {
		message = message[:255]
	}
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.Summary{}).
		Where("id = ? AND status = ?", summaryID, models.SummaryStatusProcessing).
		Updates(map[string]interface{}{
			"status":        models.SummaryStatusFailed,
			"error_code":    code,
			"error_message": message,
			"finished_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.WithCode(errors.CodeInvalidStatus, "summary is not in processing")
	}
	s.emitStatus(ctx, summaryID, models.SummaryStatusFailed)
	return nil
}

// RequeueStale 清扫：把滞留 processing 超过 age 的记录打回 queued 并重新入队。
// 这是可选增强，消费者崩溃后的兜底；默认关闭
func (s *SummaryService) RequeueStale(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-age)
	var stale []models.Summary
	err := s.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", models.SummaryStatusProcessing, cutoff).
		Find(&stale).Error
	if err != nil {
		return 0, err
	}

	requeued := 0
	for _, sm := range stale {
		res := s.db.WithContext(ctx).Model(&models.Summary{}).
			Where("id = ? AND status = ? AND started_at < ?", sm.ID, models.SummaryStatusProcessing, cutoff).
			Updates(map[string]interface{}{
				"status":     models.SummaryStatusQueued,
				"started_at": nil,
			})
		if res.Error != nil || res.RowsAffected == 0 {
			continue
		}
		item := queue.NewWorkItem(queue.TypeRetryRangeSummary)
		item.SummaryID = sm.ID
		if err := s.queue.Enqueue(ctx, queue.QueueSummaries, item); err != nil {
			logger.Warn("stale requeue enqueue failed", zap.Uint("summaryId", sm.ID), zap.Error(err))
			continue
		}
		requeued++
	}
	if requeued > 0 {
		logger.Info("requeued stale summaries", zap.Int("count", requeued))
	}
	return requeued, nil
}

// defaultTemplate 用户默认模板，带本地缓存
func (s *SummaryService) defaultTemplate(ctx context.Context, userID uint) string {
	key := cache.UserTemplateKey(userID)
	if v, ok := s.cache.Get(ctx, key); ok {
		if tpl, ok := v.(string); ok {
			return tpl
		}
	}

	user, err := models.GetUserByID(s.db.WithContext(ctx), userID)
	if err != nil {
		return "default"
	}
	tpl := user.DefaultSummaryTemplate
	if tpl == "" {
		tpl = "default"
	}
	_ = s.cache.Set(ctx, key, tpl, 5*time.Minute)
	return tpl
}

func (s *SummaryService) emitStatus(ctx context.Context, summaryID uint, status string) {
	summary, err := models.GetSummaryByID(s.db.WithContext(ctx), summaryID)
	if err != nil {
		return
	}
	util.Sig().Emit(models.SigSummaryStatusChange, summary, status)
}
