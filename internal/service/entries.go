package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"EchoJournal/internal/models"
	"EchoJournal/pkg/errors"
	"EchoJournal/pkg/logger"
	"EchoJournal/pkg/queue"
	"EchoJournal/pkg/storage"
	"EchoJournal/pkg/util"
)

// EntryService 条目生命周期：创建（上传即 processing）、查询、删除、
// 转写修订，以及 worker 回写终态。
// 建行与入队不在一个事务里：中间崩溃会留下一条没有队列任务的
// processing 记录，由管理员重试/清扫兜底，不做跨系统事务
type EntryService struct {
	db     *gorm.DB
	queue  queue.Queue
	store  storage.Store
	titles *TitleGenerator
}

// NewEntryService 创建条目服务
func NewEntryService(db *gorm.DB, q queue.Queue, store storage.Store, titles *TitleGenerator) *EntryService {
	return &EntryService{db: db, queue: q, store: store, titles: titles}
}

// Create 接收上传：写对象存储 -> 取标题 -> 建 processing 行 -> 入队。
// 立即返回，转写由 worker 异步完成
func (s *EntryService) Create(ctx context.Context, userID uint, filename string, r io.Reader, size int64, contentType string) (*models.Entry, error) {
	key := storage.AudioKey(userID, filename)
	if err := s.store.Write(ctx, key, r, size, contentType); err != nil {
		return nil, errors.Wrap(err, errors.CodeStorage, "failed to store audio")
	}

	title, err := s.titles.Generate(ctx, userID, time.Now())
	if err != nil {
		return nil, err
	}

	entry := &models.Entry{
		PublicID: uuid.NewString(),
		UserID:   userID,
		Title:    title,
		AudioKey: key,
		Status:   models.EntryStatusProcessing,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}

	item := queue.NewWorkItem(queue.TypeProcessEntry)
	item.EntryID = entry.ID
	if err := s.queue.Enqueue(ctx, queue.QueueEntries, item); err != nil {
		// 记录已存在但任务丢了，保持 processing 等待人工重试
		logger.Warn("entry enqueue failed, record left in processing",
			zap.Uint("entryId", entry.ID), zap.Error(err))
	}

	logger.Info("entry created",
		zap.Uint("userId", userID), zap.Uint("entryId", entry.ID),
		zap.String("publicId", entry.PublicID), zap.String("title", title))
	return entry, nil
}

// Get 查询单条，他人记录按不存在处理
func (s *EntryService) Get(ctx context.Context, userID uint, publicID string) (*models.Entry, error) {
	entry, err := models.GetEntryByPublicID(s.db.WithContext(ctx), publicID, userID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, errors.WithCode(errors.CodeNotFound, "entry not found")
		}
		return nil, err
	}
	return entry, nil
}

// List 列出用户条目
func (s *EntryService) List(ctx context.Context, userID uint, limit int) ([]models.Entry, error) {
	return models.ListEntriesByUser(s.db.WithContext(ctx), userID, limit)
}

// Delete 删除条目并清理存储对象。对象删除失败只告警，行必须删掉
func (s *EntryService) Delete(ctx context.Context, userID uint, publicID string) error {
	entry, err := s.Get(ctx, userID, publicID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, entry.AudioKey); err != nil {
		logger.Warn("failed to delete audio object", zap.String("key", entry.AudioKey), zap.Error(err))
	}
	if err := s.db.WithContext(ctx).Delete(&models.Entry{}, entry.ID).Error; err != nil {
		return err
	}
	logger.Info("entry deleted", zap.Uint("userId", userID), zap.String("publicId", publicID))
	return nil
}

// EditTranscript 手工修订转写文本，版本号 +1
func (s *EntryService) EditTranscript(ctx context.Context, userID uint, publicID, text string) (*models.Entry, error) {
	entry, err := s.Get(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.EntryStatusDone {
		return nil, errors.WithCode(errors.CodeInvalidStatus, "entry is not processed yet")
	}

	err = s.db.WithContext(ctx).Model(&models.Entry{}).
		Where("id = ? AND user_id = ?", entry.ID, userID).
		Updates(map[string]interface{}{
			"transcript_text":    text,
			"transcript_version": gorm.Expr("transcript_version + 1"),
		}).Error
	if err != nil {
		return nil, err
	}
	return models.GetEntryByPublicID(s.db.WithContext(ctx), publicID, userID)
}

// RequestAudioProcess 请求音频后处理（denoise/normalize/enhance）
func (s *EntryService) RequestAudioProcess(ctx context.Context, userID uint, publicID, op string) error {
	switch op {
	case "denoise", "normalize", "enhance":
	default:
		return errors.WithCodef(errors.CodeValidation, "unknown audio op: %s", op)
	}

	entry, err := s.Get(ctx, userID, publicID)
	if err != nil {
		return err
	}

	item := queue.NewWorkItem(queue.TypeAudioPostProcess)
	item.EntryID = entry.ID
	item.AudioOp = op
	if err := s.queue.Enqueue(ctx, queue.QueueAudio, item); err != nil {
		return err
	}
	logger.Info("audio post-process requested",
		zap.Uint("userId", userID), zap.Uint("entryId", entry.ID), zap.String("op", op))
	return nil
}

// RequestCustomSummary 对单条目按自定义参数重新生成摘要
func (s *EntryService) RequestCustomSummary(ctx context.Context, userID uint, publicID string, opts *queue.CustomSummaryOptions) error {
	if err := validateCustomSummary(opts); err != nil {
		return err
	}

	entry, err := s.Get(ctx, userID, publicID)
	if err != nil {
		return err
	}
	if entry.TranscriptText == "" {
		return errors.WithCode(errors.CodeNoTranscript, "transcript not available yet")
	}

	item := queue.NewWorkItem(queue.TypeCustomSummary)
	item.EntryID = entry.ID
	item.Options = opts
	return s.queue.Enqueue(ctx, queue.QueueSummaries, item)
}

// MarkDone worker 回写成功结果。只允许从 processing 跃迁；
// 条目已删或已处理时不生效，worker 据此放弃
func (s *EntryService) MarkDone(ctx context.Context, entryID uint, transcript, summary string) error {
	res := s.db.WithContext(ctx).Model(&models.Entry{}).
		Where("id = ? AND status = ?", entryID, models.EntryStatusProcessing).
		Updates(map[string]interface{}{
			"transcript_text": transcript,
			"summary_text":    summary,
			"status":          models.EntryStatusDone,
			"error_code":      "",
			"error_message":   "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.WithCode(errors.CodeInvalidStatus, "entry is not in processing")
	}
	s.emitStatus(ctx, entryID, models.EntryStatusDone)
	return nil
}

// MarkFailed worker 回写不可恢复失败
func (s *EntryService) MarkFailed(ctx context.Context, entryID uint, code, message string) error {
	if len(message) > 255 {
		message = message[:255]
	}
	res := s.db.WithContext(ctx).Model(&models.Entry{}).
		Where("id = ? AND status = ?", entryID, models.EntryStatusProcessing).
		Updates(map[string]interface{}{
			"status":        models.EntryStatusFailed,
			"error_code":    code,
			"error_message": message,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.WithCode(errors.CodeInvalidStatus, "entry is not in processing")
	}
	s.emitStatus(ctx, entryID, models.EntryStatusFailed)
	return nil
}

func (s *EntryService) emitStatus(ctx context.Context, entryID uint, status string) {
	entry, err := models.GetEntryByID(s.db.WithContext(ctx), entryID)
	if err != nil {
		return
	}
	util.Sig().Emit(models.SigEntryStatusChange, entry, status)
}

func validateCustomSummary(opts *queue.CustomSummaryOptions) error {
	if opts == nil {
		return errors.WithCode(errors.CodeValidation, "options required")
	}
	if opts.Style == "" {
		opts.Style = "narrative"
	}
	if opts.Length == "" {
		opts.Length = "medium"
	}
	if opts.Focus == "" {
		opts.Focus = "key_points"
	}
	validStyles := map[string]bool{"bullet_points": true, "narrative": true, "concise": true, "detailed": true}
	validLengths := map[string]bool{"short": true, "medium": true, "long": true}
	validFocus := map[string]bool{"action_items": true, "key_points": true, "emotions": true, "events": true, "insights": true}
	if !validStyles[opts.Style] {
		return errors.WithCodef(errors.CodeValidation, "invalid style: %s", opts.Style)
	}
	if !validLengths[opts.Length] {
		return errors.WithCodef(errors.CodeValidation, "invalid length: %s", opts.Length)
	}
	if !validFocus[opts.Focus] {
		return errors.WithCodef(errors.CodeValidation, "invalid focus: %s", opts.Focus)
	}
	return nil
}
