// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"course-advisor-go/internal/service"
	"course-advisor-go/pkg/llm"
	"course-advisor-go/pkg/log"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondOK 输出统一的成功响应 {"code","message","data"}。
func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": message,
		"data":    data,
	})
}

// respondStatus 输出指定状态码的统一响应。
func respondStatus(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
		"data":    nil,
	})
}

// statusFor 将业务错误映射为 HTTP 状态码：客户端错误为 4xx，上游失败为 5xx。
func statusFor(err error) int {
	var shapeErr *service.ShapeError
	var upstream *service.UpstreamError
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidHistory):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrBadPassword), errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrNotSignedIn):
		return http.StatusConflict
	case errors.Is(err, llm.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &shapeErr), errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor 返回面向调用方的错误信息，不泄露内部细节。
func messageFor(err error, status int) string {
	var shapeErr *service.ShapeError
	switch {
	case status == http.StatusInternalServerError:
		return "internal server error"
	case status == http.StatusGatewayTimeout:
		return "the course advisor model timed out, please retry"
	case errors.As(err, &shapeErr):
		return "the model returned an unusable response: " + shapeErr.Error()
	case status == http.StatusBadGateway:
		return "the course advisor model is temporarily unavailable"
	default:
		return err.Error()
	}
}

// respondError 记录并输出错误响应。
func respondError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("%s failed: %v", op, err)
	} else {
		log.Warnf("%s rejected: %v", op, err)
	}
	respondStatus(c, status, messageFor(err, status))
}

// bindError 输出请求体校验失败的响应。
func bindError(c *gin.Context, op string, err error) {
	log.Warnf("%s: invalid request payload, error: %v", op, err)
	respondStatus(c, http.StatusBadRequest, "invalid request payload: "+describeBindError(err))
}
