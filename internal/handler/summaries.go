package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"EchoJournal/pkg/ratelimit"
	"EchoJournal/pkg/response"

	apperrors "EchoJournal/pkg/errors"
)

// handleCreateSummary 请求一段日期区间的摘要，建 queued 记录后立即返回
func (h *Handlers) handleCreateSummary(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	if !h.allow(c, userID, ratelimit.OpSummaries) {
		return
	}

	var req struct {
		RangeStart string `json:"rangeStart" binding:"required"`
		RangeEnd   string `json:"rangeEnd" binding:"required"`
		TemplateID string `json:"templateId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailErr(c, apperrors.WithCode(apperrors.CodeValidation, "rangeStart and rangeEnd are required"))
		return
	}

	start, err := parseRangeTime(req.RangeStart, false)
	if err != nil {
		response.FailErr(c, apperrors.WithCode(apperrors.CodeValidation, "invalid rangeStart"))
		return
	}
	end, err := parseRangeTime(req.RangeEnd, true)
	if err != nil {
		response.FailErr(c, apperrors.WithCode(apperrors.CodeValidation, "invalid rangeEnd"))
		return
	}

	summary, err := h.summaries.Create(c.Request.Context(), userID, start, end, req.TemplateID)
	if err != nil {
		response.FailErr(c, err)
		return
	}
	response.Created(c, "summary queued", summary)
}

func (h *Handlers) handleListSummaries(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	limit := cast.ToInt(c.Query("limit"))
	summaries, err := h.summaries.List(c.Request.Context(), userID, c.Query("status"), limit)
	if err != nil {
		response.FailErr(c, err)
		return
	}
	response.Success(c, "summaries", summaries)
}

func (h *Handlers) handleGetSummary(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	summary, err := h.summaries.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.FailErr(c, err)
		return
	}
	response.Success(c, "summary", summary)
}

// handleRetrySummary 终态重试，processing 中的记录会得到 400
func (h *Handlers) handleRetrySummary(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	if !h.allow(c, userID, ratelimit.OpSummaries) {
		return
	}

	summary, err := h.summaries.Retry(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.FailErr(c, err)
		return
	}
	response.Success(c, "summary requeued", summary)
}

// parseRangeTime 接受 RFC3339 或 YYYY-MM-DD。纯日期作为终点时取当天末尾，
// 让 "2026-01-01 到 2026-01-31" 覆盖整个 31 号
func parseRangeTime(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	t = t.UTC()
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
