package errors

import (
	"errors"
	"fmt"
)

// 业务错误码，落库到 summaries.error_code / 返回给客户端
const (
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidStatus  = "INVALID_STATUS"
	CodeRateLimited    = "RATE_LIMIT_EXCEEDED"
	CodeTokenInvalid   = "TOKEN_INVALID"
	CodeTokenExpired   = "TOKEN_EXPIRED"
	CodeValidation     = "VALIDATION_ERROR"
	CodeStorage        = "STORAGE_ERROR"
	CodeModelTimeout   = "MODEL_TIMEOUT"
	CodeModelError     = "MODEL_ERROR"
	CodeNoTranscript   = "NO_TRANSCRIPT"
	CodeEmptyRange     = "EMPTY_RANGE"
	CodeInternal       = "INTERNAL_ERROR"
)

// Error 携带错误码的业务错误
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"` // 原始错误，不序列化
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// WithCode 创建带错误码的错误
func WithCode(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCodef 创建带错误码的格式化错误
func WithCodef(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误
func Wrap(err error, code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// Wrapf 包装底层错误（格式化）
func Wrapf(err error, code, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// GetCode 取出错误码，非业务错误返回 INTERNAL_ERROR
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// GetMessage 取出可读消息
func GetMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// IsCode 判断错误链上是否为指定错误码
func IsCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
