package handler

import (
	"course-advisor-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理与会话历史相关的 API 请求。
type ConversationHandler struct {
	service service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// GetHistory 返回会话当前保存的历史。
func (h *ConversationHandler) GetHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	history, err := h.service.GetHistory(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, "GetHistory", err)
		return
	}
	respondOK(c, "success", gin.H{"sessionId": sessionID, "history": history})
}

// Reset 清空会话历史。
func (h *ConversationHandler) Reset(c *gin.Context) {
	sessionID := c.Param("sessionId")
	existed, err := h.service.Reset(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, "ResetConversation", err)
		return
	}
	respondOK(c, "conversation reset", gin.H{"sessionId": sessionID, "existed": existed})
}
