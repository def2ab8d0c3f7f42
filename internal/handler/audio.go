package handlers

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"EchoJournal/internal/models"
	"EchoJournal/pkg/ratelimit"
	"EchoJournal/pkg/response"
	"EchoJournal/pkg/storage"
	"EchoJournal/pkg/token"

	apperrors "EchoJournal/pkg/errors"
)

// handleAudioProcess 请求音频后处理（denoise/normalize/enhance），异步执行
func (h *Handlers) handleAudioProcess(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	if !h.allow(c, userID, ratelimit.OpAudio) {
		return
	}

	var req struct {
		Op string `json:"op" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailErr(c, apperrors.WithCode(apperrors.CodeValidation, "op is required"))
		return
	}

	if err := h.entries.RequestAudioProcess(c.Request.Context(), userID, c.Param("id"), req.Op); err != nil {
		response.FailErr(c, err)
		return
	}
	response.Success(c, "audio processing queued", nil)
}

// handleAudioURL 为条目签发短期音频访问令牌，返回带令牌的播放地址。
// 令牌只对这一条目有效，过期后需重新申请
func (h *Handlers) handleAudioURL(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	if !h.allow(c, userID, ratelimit.OpAudioURL) {
		return
	}

	entry, err := h.entries.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.FailErr(c, err)
		return
	}

	signed, err := h.issuer.Issue(userID, entry.PublicID, h.tokenTTL)
	if err != nil {
		response.FailErr(c, err)
		return
	}
	h.metrics.TokenIssued()

	response.Success(c, "audio url issued", gin.H{
		"url":       fmt.Sprintf("/api/v1/audio/%s?token=%s", entry.PublicID, signed),
		"expiresIn": int(h.tokenTTL.Seconds()),
	})
}

// handleAudioStream 凭令牌读音频，不走登录态。
// 令牌即授权：校验签名、有效期与资源匹配，然后直接回源对象存储
func (h *Handlers) handleAudioStream(c *gin.Context) {
	publicID := c.Param("id")
	grant, err := h.issuer.VerifyResource(c.Query("token"), publicID)
	if err != nil {
		switch {
		case stderrors.Is(err, token.ErrExpired):
			h.metrics.TokenVerifyFailed("expired")
			response.Fail(c, http.StatusUnauthorized, apperrors.CodeTokenExpired, "audio token expired")
		case stderrors.Is(err, token.ErrWrongResource):
			h.metrics.TokenVerifyFailed("wrong_resource")
			response.Fail(c, http.StatusUnauthorized, apperrors.CodeTokenInvalid, "audio token does not match resource")
		default:
			h.metrics.TokenVerifyFailed("invalid")
			response.Fail(c, http.StatusUnauthorized, apperrors.CodeTokenInvalid, "invalid audio token")
		}
		return
	}

	entry, err := models.GetEntryByPublicID(h.db.WithContext(c.Request.Context()), publicID, grant.UserID)
	if err != nil {
		response.FailErr(c, apperrors.WithCode(apperrors.CodeNotFound, "entry not found"))
		return
	}

	rc, size, err := h.store.Read(c.Request.Context(), entry.AudioKey)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotExist) {
			response.FailErr(c, apperrors.WithCode(apperrors.CodeNotFound, "audio object not found"))
			return
		}
		response.FailErr(c, apperrors.Wrap(err, apperrors.CodeStorage, "failed to read audio"))
		return
	}
	defer rc.Close()

	c.Header("Content-Type", storage.ContentTypeForKey(entry.AudioKey))
	if size > 0 {
		c.Header("Content-Length", fmt.Sprintf("%d", size))
	}
	c.Header("Cache-Control", "private, no-store")
	c.Status(http.StatusOK)
	io.Copy(c.Writer, rc)
}
