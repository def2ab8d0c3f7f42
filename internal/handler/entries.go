package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"EchoJournal/pkg/queue"
	"EchoJournal/pkg/ratelimit"
	"EchoJournal/pkg/response"

	apperrors "EchoJournal/pkg/errors"
)

// 单次上传体积上限 64MB
const maxAudioUploadBytes = 64 << 20

// handleCreateEntry 上传音频，立即返回 processing 态的条目。
// 标题在这里就已生成，转写与摘要由 worker 异步补齐
func (h *Handlers) handleCreateEntry(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	if !h.allow(c, userID, ratelimit.OpEntries) {
		return
	}

	file, err := c.FormFile("audio")
	if err != nil {
		response.FailErr(c, apperrors.WithCode(apperrors.CodeValidation, "audio file is required"))
		return
	}
	if file.Size <= 0 || file.Size > maxAudioUploadBytes {
		response.FailErr(c, apperrors.WithCode(apperrors.CodeValidation, "audio file size out of range"))
		return
	}

	src, err := file.Open()
	if err != nil {
		response.FailErr(c, apperrors.Wrap(err, apperrors.CodeValidation, "failed to read upload"))
		return
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	entry, err := h.entries.Create(c.Request.Context(), userID, file.Filename, src, file.Size, contentType)
	if err != nil {
		response.FailErr(c, err)
		return
	}
	response.Created(c, "entry accepted for processing", entry)
}

func (h *Handlers) handleListEntries(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	limit := cast.ToInt(c.Query("limit"))
	entries, err := h.entries.List(c.Request.Context(), userID, limit)
	if err != nil {
		response.FailErr(c, err)
		return
	}
	response.Success(c, "entries", entries)
}

func (h *Handlers) handleGetEntry(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	entry, err := h.entries.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.FailErr(c, err)
		return
	}
	response.Success(c, "entry", entry)
}

func (h *Handlers) handleDeleteEntry(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	if err := h.entries.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		response.FailErr(c, err)
		return
	}
	response.Success(c, "entry deleted", nil)
}

func (h *Handlers) handleEditTranscript(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailErr(c, apperrors.WithCode(apperrors.CodeValidation, "text is required"))
		return
	}

	entry, err := h.entries.EditTranscript(c.Request.Context(), userID, c.Param("id"), req.Text)
	if err != nil {
		response.FailErr(c, err)
		return
	}
	response.Success(c, "transcript updated", entry)
}

// handleCustomSummary 对单条目按自定义参数重新生成摘要
func (h *Handlers) handleCustomSummary(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	if !h.allow(c, userID, ratelimit.OpSummaries) {
		return
	}

	var opts queue.CustomSummaryOptions
	if err := c.ShouldBindJSON(&opts); err != nil {
		response.FailErr(c, apperrors.WithCode(apperrors.CodeValidation, "invalid options"))
		return
	}

	if err := h.entries.RequestCustomSummary(c.Request.Context(), userID, c.Param("id"), &opts); err != nil {
		response.FailErr(c, err)
		return
	}
	response.Success(c, "summary regeneration queued", nil)
}
