package service

import (
	"errors"
	"fmt"
)

// 业务错误，handler 层据此映射 HTTP 状态码。
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidHistory = errors.New("invalid conversation history")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrUserNotFound   = errors.New("user not found")
	ErrBadPassword    = errors.New("incorrect password")
	ErrNotSignedIn    = errors.New("user is not signed in")
	ErrInvalidToken   = errors.New("invalid or expired token")
)

// UpstreamError 表示调用生成模型失败（超时、限流、空响应等）。
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: model call failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
