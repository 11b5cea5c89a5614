package handler

import (
	"course-advisor-go/internal/model"
	"course-advisor-go/internal/service"
	"course-advisor-go/pkg/log"
	"course-advisor-go/pkg/token"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理所有与用户账户相关的 API 请求。
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CredentialsRequest 定义了注册与登录 API 的请求体结构。
// bcrypt 只使用密码的前 72 字节，因此限制最大长度。
type CredentialsRequest struct {
	Username string `json:"username" binding:"required,username"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// Signup 处理用户注册请求。
func (h *UserHandler) Signup(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "Signup", err)
		return
	}

	user, err := h.userService.Signup(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, "Signup", err)
		return
	}

	log.Infof("User '%s' signed up successfully", user.Username)
	respondOK(c, "User signed up successfully", gin.H{"username": user.Username})
}

// SignIn 处理用户登录请求，成功后创建会话并返回令牌。
func (h *UserHandler) SignIn(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "SignIn", err)
		return
	}

	tokens, err := h.userService.SignIn(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, "SignIn", err)
		return
	}

	log.Infof("User '%s' signed in successfully", req.Username)
	respondOK(c, "Sign-in successful", tokens)
}

// SignOut 删除当前用户的会话。用户由 AuthMiddleware 注入。
func (h *UserHandler) SignOut(c *gin.Context) {
	claims := c.MustGet("claims").(*token.CustomClaims)
	if err := h.userService.SignOut(c.Request.Context(), claims.Username); err != nil {
		respondError(c, "SignOut", err)
		return
	}
	log.Infof("User '%s' signed out successfully", claims.Username)
	respondOK(c, "Sign-out successful", nil)
}

// SessionStatus 返回用户当前是否已登录。
func (h *UserHandler) SessionStatus(c *gin.Context) {
	username := c.Param("username")
	signedIn, err := h.userService.IsSignedIn(c.Request.Context(), username)
	if err != nil {
		respondError(c, "SessionStatus", err)
		return
	}
	respondOK(c, "success", gin.H{"username": username, "signedIn": signedIn})
}

// GetProfile 获取当前登录用户的个人信息，密码哈希不会被序列化。
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		respondStatus(c, http.StatusInternalServerError, "无法获取用户信息")
		return
	}
	respondOK(c, "success", user.(*model.User))
}
