package worker

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"

	"go.uber.org/zap"

	"EchoJournal/internal/models"
	"EchoJournal/pkg/llm"
	"EchoJournal/pkg/logger"
	"EchoJournal/pkg/queue"
	"EchoJournal/pkg/storage"

	apperrors "EchoJournal/pkg/errors"
)

// 空区间摘要的固定文案
const emptyRangeText = "No journal entries in this period."

// processEntry 条目主流程：下载 -> 转写 -> 清理 -> 摘要 -> 回写。
// 条目已删或已不在 processing 时直接放弃，重复投递在这里收敛
func (w *Worker) processEntry(ctx context.Context, entryID uint) string {
	entry, err := models.GetEntryByID(w.db.WithContext(ctx), entryID)
	if err != nil {
		if models.IsNotFound(err) {
			// 入队后被删除，任务作废
			return outcomeSkipped
		}
		logger.Error("entry lookup failed", zap.Uint("entryId", entryID), zap.Error(err))
		return outcomeError
	}
	if entry.Status != models.EntryStatusProcessing {
		return outcomeSkipped
	}

	release, ok, err := w.lock.Acquire(ctx, EntryLockKey(entryID), recordLockTTL)
	if err != nil {
		logger.Error("lock acquire failed", zap.Uint("entryId", entryID), zap.Error(err))
		return outcomeError
	}
	if !ok {
		return outcomeSkipped
	}
	defer release()

	audio, err := w.readObject(ctx, entry.AudioKey)
	if err != nil {
		w.failEntry(ctx, entryID, apperrors.CodeStorage, "failed to read audio: "+err.Error())
		return outcomeFailed
	}

	transcript, err := w.transcriber.Transcribe(ctx, audio, entry.AudioKey)
	if err != nil {
		code, msg := classifyModelError(err)
		w.failEntry(ctx, entryID, code, msg)
		return outcomeFailed
	}
	transcript = llm.CleanTranscript(transcript)
	if transcript == "" {
		w.failEntry(ctx, entryID, apperrors.CodeNoTranscript, "transcription produced no text")
		return outcomeFailed
	}

	summary, err := w.summarizer.Summarize(ctx, transcript)
	if err != nil {
		code, msg := classifyModelError(err)
		w.failEntry(ctx, entryID, code, msg)
		return outcomeFailed
	}

	if err := w.entries.MarkDone(ctx, entryID, transcript, summary); err != nil {
		if apperrors.IsCode(err, apperrors.CodeInvalidStatus) {
			// 状态被别处改走了，本次结果作废
			return outcomeSkipped
		}
		logger.Error("entry mark done failed", zap.Uint("entryId", entryID), zap.Error(err))
		return outcomeError
	}
	return outcomeDone
}

// processRangeSummary 区间摘要：抢占 -> 收集转写 -> 合并摘要 -> 回写。
// 抢不到说明记录不在 queued（已被处理或已重试），放弃即可
func (w *Worker) processRangeSummary(ctx context.Context, summaryID uint) string {
	claimed, err := w.summaries.Claim(ctx, summaryID)
	if err != nil {
		logger.Error("summary claim failed", zap.Uint("summaryId", summaryID), zap.Error(err))
		return outcomeError
	}
	if !claimed {
		return outcomeSkipped
	}

	summary, err := models.GetSummaryByID(w.db.WithContext(ctx), summaryID)
	if err != nil {
		logger.Error("summary lookup failed", zap.Uint("summaryId", summaryID), zap.Error(err))
		return outcomeError
	}

	texts, err := models.ListTranscriptsInRange(w.db.WithContext(ctx), summary.UserID, summary.RangeStart, summary.RangeEnd)
	if err != nil {
		w.failSummary(ctx, summaryID, apperrors.CodeInternal, "failed to collect transcripts: "+err.Error())
		return outcomeFailed
	}

	// 空区间是合法结果而不是错误
	if len(texts) == 0 {
		if err := w.summaries.MarkDone(ctx, summaryID, emptyRangeText); err != nil {
			return outcomeError
		}
		return outcomeDone
	}

	text, err := w.summarizer.SummarizeRange(ctx, texts, summary.TemplateID)
	if err != nil {
		code, msg := classifyModelError(err)
		w.failSummary(ctx, summaryID, code, msg)
		return outcomeFailed
	}

	if err := w.summaries.MarkDone(ctx, summaryID, text); err != nil {
		if apperrors.IsCode(err, apperrors.CodeInvalidStatus) {
			return outcomeSkipped
		}
		logger.Error("summary mark done failed", zap.Uint("summaryId", summaryID), zap.Error(err))
		return outcomeError
	}
	return outcomeDone
}

// processCustomSummary 按自定义参数重新生成单条目摘要，条目状态不变，
// 只覆盖 summary_text
func (w *Worker) processCustomSummary(ctx context.Context, entryID uint, opts *queue.CustomSummaryOptions) string {
	if opts == nil {
		return outcomeSkipped
	}

	entry, err := models.GetEntryByID(w.db.WithContext(ctx), entryID)
	if err != nil {
		if models.IsNotFound(err) {
			return outcomeSkipped
		}
		return outcomeError
	}
	if entry.TranscriptText == "" {
		return outcomeSkipped
	}

	release, ok, err := w.lock.Acquire(ctx, EntryLockKey(entryID), recordLockTTL)
	if err != nil {
		return outcomeError
	}
	if !ok {
		return outcomeSkipped
	}
	defer release()

	text, err := w.summarizer.SummarizeCustom(ctx, entry.TranscriptText,
		opts.Style, opts.Length, opts.Focus, opts.CustomPrompt)
	if err != nil {
		logger.Error("custom summary failed", zap.Uint("entryId", entryID), zap.Error(err))
		return outcomeFailed
	}

	err = w.db.WithContext(ctx).Model(&models.Entry{}).
		Where("id = ?", entryID).
		Update("summary_text", text).Error
	if err != nil {
		logger.Error("custom summary write failed", zap.Uint("entryId", entryID), zap.Error(err))
		return outcomeError
	}
	return outcomeDone
}

// processAudio 音频后处理：读对象 -> 处理 -> 原 key 覆写
func (w *Worker) processAudio(ctx context.Context, entryID uint, op string) string {
	entry, err := models.GetEntryByID(w.db.WithContext(ctx), entryID)
	if err != nil {
		if models.IsNotFound(err) {
			return outcomeSkipped
		}
		return outcomeError
	}

	release, ok, err := w.lock.Acquire(ctx, EntryLockKey(entryID), recordLockTTL)
	if err != nil {
		return outcomeError
	}
	if !ok {
		return outcomeSkipped
	}
	defer release()

	audio, err := w.readObject(ctx, entry.AudioKey)
	if err != nil {
		logger.Error("audio read failed", zap.Uint("entryId", entryID), zap.Error(err))
		return outcomeFailed
	}

	processed, err := w.audio.Process(ctx, op, audio)
	if err != nil {
		logger.Error("audio processing failed",
			zap.Uint("entryId", entryID), zap.String("op", op), zap.Error(err))
		return outcomeFailed
	}

	ct := storage.ContentTypeForKey(entry.AudioKey)
	if err := w.store.Write(ctx, entry.AudioKey, bytes.NewReader(processed), int64(len(processed)), ct); err != nil {
		logger.Error("audio write failed", zap.Uint("entryId", entryID), zap.Error(err))
		return outcomeError
	}
	return outcomeDone
}

func (w *Worker) readObject(ctx context.Context, key string) ([]byte, error) {
	rc, _, err := w.store.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (w *Worker) failEntry(ctx context.Context, entryID uint, code, message string) {
	if err := w.entries.MarkFailed(ctx, entryID, code, message); err != nil &&
		!apperrors.IsCode(err, apperrors.CodeInvalidStatus) {
		logger.Error("entry mark failed errored", zap.Uint("entryId", entryID), zap.Error(err))
	}
}

func (w *Worker) failSummary(ctx context.Context, summaryID uint, code, message string) {
	if err := w.summaries.MarkFailed(ctx, summaryID, code, message); err != nil &&
		!apperrors.IsCode(err, apperrors.CodeInvalidStatus) {
		logger.Error("summary mark failed errored", zap.Uint("summaryId", summaryID), zap.Error(err))
	}
}

// classifyModelError 超时与其他模型错误分开记码，前端据此提示可重试
func classifyModelError(err error) (code, message string) {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return apperrors.CodeModelTimeout, "model call timed out"
	}
	return apperrors.CodeModelError, err.Error()
}
