package handler

import (
	"course-advisor-go/internal/model"
	"course-advisor-go/internal/service"
	"course-advisor-go/pkg/log"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源，跨域由 CORS 配置控制
		},
	}
)

// ChatHandler 负责对话接口（HTTP 与 WebSocket）。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// HistoryTurn 是客户端提交的一条历史。除 content 外也兼容 {"role":"model","parts":[...]} 写法。
type HistoryTurn struct {
	Role    string            `json:"role"`
	Content string            `json:"content"`
	Parts   []json.RawMessage `json:"parts,omitempty"`
}

// ChatRequest 定义了对话 API 的请求体结构。
type ChatRequest struct {
	Query     string        `json:"query" binding:"required,max=4000"`
	SessionID string        `json:"sessionId" binding:"omitempty,max=128"`
	History   []HistoryTurn `json:"history"`
}

// Chat 处理一次对话请求。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "Chat", err)
		return
	}

	// 空数组与未提供等价，沿用服务端保存的历史
	var history []model.ChatMessage
	if len(req.History) > 0 {
		history = make([]model.ChatMessage, 0, len(req.History))
		for _, t := range req.History {
			history = append(history, model.ChatMessage{Role: t.Role, Content: t.text()})
		}
	}

	reply, err := h.chatService.Answer(c.Request.Context(), service.ChatRequest{
		SessionID: req.SessionID,
		Query:     req.Query,
		History:   history,
	})
	if err != nil {
		respondError(c, "Chat", err)
		return
	}
	respondOK(c, "success", reply)
}

func (t HistoryTurn) text() string {
	if t.Content != "" || len(t.Parts) == 0 {
		return t.Content
	}
	parts := make([]string, 0, len(t.Parts))
	for _, raw := range t.Parts {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			parts = append(parts, s)
			continue
		}
		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil {
			parts = append(parts, obj.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Stream 处理一个 WebSocket 连接：每条文本消息是一个问题，回复以分块流式返回。
// 同一连接内的多次提问共用一个会话。
func (h *ChatHandler) Stream(c *gin.Context) {
	sessionID := c.Query("sessionId")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立, sessionId=%q", sessionID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}

		sid, err := h.chatService.StreamAnswer(c.Request.Context(), sessionID, string(message), conn)
		if sid != "" {
			sessionID = sid
		}
		if err != nil {
			status := statusFor(err)
			log.Errorf("处理流式响应失败: %v", err)
			errResp, _ := json.Marshal(map[string]interface{}{
				"error":     messageFor(err, status),
				"code":      status,
				"timestamp": time.Now().UnixMilli(),
			})
			if werr := conn.WriteMessage(websocket.TextMessage, errResp); werr != nil {
				return
			}
		}
	}
}
