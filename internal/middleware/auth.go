// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"course-advisor-go/internal/service"
	"course-advisor-go/pkg/log"
	"course-advisor-go/pkg/token"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    http.StatusUnauthorized,
		"message": message,
		"data":    nil,
	})
}

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 除了校验 access token，还要求该用户的会话记录仍然存在（登出后 token 立即失效）。
// 通过后将完整的 User 对象与 claims 存入 Gin 的上下文中。
func AuthMiddleware(jwtManager *token.JWTManager, userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "请求未包含授权头")
			return
		}

		// Token 以 "Bearer <token>" 的形式提供
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			abortUnauthorized(c, "无效的授权头格式")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "无效或已过期的 token")
			return
		}

		signedIn, err := userService.IsSignedIn(c.Request.Context(), claims.Username)
		if err != nil {
			log.Errorf("检查会话失败: username=%s, err=%v", claims.Username, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    http.StatusInternalServerError,
				"message": "internal server error",
				"data":    nil,
			})
			return
		}
		if !signedIn {
			abortUnauthorized(c, "会话已结束，请重新登录")
			return
		}

		user, err := userService.GetProfile(c.Request.Context(), claims.Username)
		if err != nil {
			// 用户可能已被删除
			abortUnauthorized(c, "用户不存在")
			return
		}

		c.Set("user", user)
		c.Set("claims", claims)
		c.Next()
	}
}
