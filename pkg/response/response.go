package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"EchoJournal/pkg/errors"
)

// Body 统一响应结构
type Body struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody 错误响应体
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success 200 成功响应
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Message: message, Data: data})
}

// Created 201 创建成功
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Message: message, Data: data})
}

// Fail 按错误码映射 HTTP 状态
func Fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, Body{Success: false, Error: &ErrorBody{Code: code, Message: message}})
}

// FailErr 从业务错误生成响应
func FailErr(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeInvalidStatus, errors.CodeValidation, errors.CodeNoTranscript:
		status = http.StatusBadRequest
	case errors.CodeRateLimited:
		status = http.StatusTooManyRequests
	case errors.CodeTokenInvalid, errors.CodeTokenExpired:
		status = http.StatusUnauthorized
	}
	Fail(c, status, code, errors.GetMessage(err))
}
