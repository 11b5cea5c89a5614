// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"bytes"
	"course-advisor-go/pkg/log"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const maxLoggedBody = 2048

// bodyLogWriter 用于捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现了 io.Writer 接口，将响应写入 gin.ResponseWriter 和一个内部的 buffer
func (w bodyLogWriter) Write(b []byte) (int, error) {
	if w.body.Len() < maxLoggedBody {
		w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// sensitivePath 判断请求或响应体中是否可能包含密码或令牌。
func sensitivePath(path string) bool {
	return strings.Contains(path, "/users/") || strings.Contains(path, "/auth/")
}

func clip(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "…"
	}
	return string(b)
}

// RequestLogger 是一个 Gin 中间件，用于记录请求和响应日志。
// 账户与认证接口的请求体、响应体会被替换为 [REDACTED]；WebSocket 升级请求不捕获响应。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path
		redact := sensitivePath(path)
		upgrade := strings.EqualFold(c.GetHeader("Upgrade"), "websocket")

		var requestBody []byte
		if c.Request.Body != nil && !redact && !upgrade {
			requestBody, _ = io.ReadAll(c.Request.Body)
			// 将读取的请求体重新设置回去，以便后续处理函数可以正常读取
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		var blw *bodyLogWriter
		if !upgrade {
			blw = &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
			c.Writer = blw
		}

		c.Next()

		reqLog, respLog := clip(requestBody), ""
		if blw != nil {
			respLog = clip(blw.body.Bytes())
		}
		if redact {
			reqLog, respLog = "[REDACTED]", "[REDACTED]"
		}

		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"requestBody", reqLog,
			"responseBody", respLog,
		)
	}
}
