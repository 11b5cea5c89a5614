// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"course-advisor-go/internal/catalog"
	"course-advisor-go/internal/model"
	"course-advisor-go/internal/repository"
	"course-advisor-go/pkg/keylock"
	"course-advisor-go/pkg/llm"
	"course-advisor-go/pkg/log"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const maxSessionIDLen = 128

// ChatRequest 是一次对话请求。History 为空时使用服务端保存的会话历史，
// 非空时以客户端提供的历史替换该会话的历史。
type ChatRequest struct {
	SessionID string
	Query     string
	History   []model.ChatMessage
}

// ChatReply 是一次对话的结果，History 为更新后的会话历史（不含 system 指令）。
type ChatReply struct {
	SessionID string              `json:"sessionId"`
	Response  string              `json:"response"`
	History   []model.ChatMessage `json:"history"`
}

// ChatService 定义了聊天操作的接口。
type ChatService interface {
	Answer(ctx context.Context, req ChatRequest) (*ChatReply, error)
	// StreamAnswer 以流式方式回答，返回实际使用的会话 ID。
	StreamAnswer(ctx context.Context, sessionID, query string, w llm.MessageWriter) (string, error)
}

type chatService struct {
	llmClient        llm.Client
	conversationRepo repository.ConversationRepository
	locks            *keylock.Locker
	instruction      string
}

// NewChatService 创建一个新的 ChatService 实例。system 指令在这里根据目录上下文一次性构建。
func NewChatService(llmClient llm.Client, conversationRepo repository.ConversationRepository, cat *catalog.Catalog, locks *keylock.Locker) ChatService {
	return &chatService{
		llmClient:        llmClient,
		conversationRepo: conversationRepo,
		locks:            locks,
		instruction:      buildAdvisorInstruction(cat.Context()),
	}
}

// Answer 在持有会话锁的情况下完成一轮对话：组装消息、调用模型、追加并截断历史。
func (s *chatService) Answer(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	sessionID, err := resolveSessionID(req.SessionID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	var history []model.ChatMessage
	if len(req.History) > 0 {
		history, err = normalizeHistory(req.History)
		if err != nil {
			return nil, err
		}
	} else {
		history, err = s.conversationRepo.GetConversationHistory(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load conversation history: %w", err)
		}
	}

	messages := composeMessages(s.instruction, history, query)
	reply, err := s.llmClient.Chat(ctx, messages, nil)
	if err != nil {
		log.Warnw("chat completion failed", "sessionId", sessionID, "error", err)
		return nil, &UpstreamError{Op: "chat", Err: err}
	}

	history = appendTurn(history, query, reply)
	if err := s.conversationRepo.UpdateConversationHistory(ctx, sessionID, history); err != nil {
		// 回复已经生成，保存失败只记录日志
		log.Errorf("Failed to save conversation history: session=%s, err=%v", sessionID, err)
	}

	return &ChatReply{SessionID: sessionID, Response: reply, History: history}, nil
}

// StreamAnswer 协调流式对话：分块以 {"chunk":"..."} 下发，结束后发送完成通知并保存历史。
func (s *chatService) StreamAnswer(ctx context.Context, sessionID, query string, w llm.MessageWriter) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	sessionID, err := resolveSessionID(sessionID)
	if err != nil {
		return "", err
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	// 读取失败时不能用空历史继续，否则保存时会覆盖掉已有的轮次
	history, err := s.conversationRepo.GetConversationHistory(ctx, sessionID)
	if err != nil {
		return sessionID, fmt.Errorf("failed to load conversation history: %w", err)
	}

	answerBuilder := &strings.Builder{}
	interceptor := &wsWriterInterceptor{conn: w, writer: answerBuilder}
	if err := s.llmClient.StreamChatMessages(ctx, composeMessages(s.instruction, history, query), nil, interceptor); err != nil {
		return sessionID, &UpstreamError{Op: "chat stream", Err: err}
	}

	sendCompletion(w, sessionID)
	if fullAnswer := answerBuilder.String(); fullAnswer != "" {
		// 使用后台上下文，即使连接已关闭也保存已经生成的答案
		if err := s.conversationRepo.UpdateConversationHistory(context.Background(), sessionID, appendTurn(history, query, fullAnswer)); err != nil {
			log.Errorf("Failed to save conversation history: %v", err)
		}
	}
	return sessionID, nil
}

func resolveSessionID(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return uuid.NewString(), nil
	}
	if len(sessionID) > maxSessionIDLen || strings.ContainsAny(sessionID, " \t\r\n") {
		return "", fmt.Errorf("%w: malformed session id", ErrInvalidInput)
	}
	return sessionID, nil
}

// normalizeHistory 校验客户端提供的历史：丢弃 system 轮次，"model" 视为 assistant，其余角色报错。
func normalizeHistory(in []model.ChatMessage) ([]model.ChatMessage, error) {
	out := make([]model.ChatMessage, 0, len(in))
	for i, m := range in {
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case model.RoleSystem:
			continue
		case model.RoleUser:
			m.Role = model.RoleUser
		case model.RoleAssistant, "model":
			m.Role = model.RoleAssistant
		default:
			return nil, fmt.Errorf("%w: turn %d has unknown role %q", ErrInvalidHistory, i, m.Role)
		}
		out = append(out, m)
	}
	return model.TrimHistory(out), nil
}

// composeMessages 将 system 指令、历史与本轮问题拼成发送给模型的消息序列。
func composeMessages(instruction string, history []model.ChatMessage, userInput string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: model.RoleSystem, Content: instruction})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: model.RoleUser, Content: userInput})
	return msgs
}

func appendTurn(history []model.ChatMessage, question, answer string) []model.ChatMessage {
	now := time.Now()
	next := make([]model.ChatMessage, 0, len(history)+2)
	next = append(next, history...)
	next = append(next,
		model.ChatMessage{Role: model.RoleUser, Content: question, Timestamp: now},
		model.ChatMessage{Role: model.RoleAssistant, Content: answer, Timestamp: now},
	)
	return model.TrimHistory(next)
}

// wsWriterInterceptor 包装下游 writer，用于捕获完整答案并把分块包装成 JSON。
type wsWriterInterceptor struct {
	conn   llm.MessageWriter
	writer *strings.Builder
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	w.writer.Write(data)
	b, _ := json.Marshal(map[string]string{"chunk": string(data)})
	return w.conn.WriteMessage(messageType, b)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(w llm.MessageWriter, sessionID string) {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"sessionId": sessionID,
		"timestamp": time.Now().UnixMilli(),
		"date":      time.Now().Format("2006-01-02T15:04:05"),
	}
	b, _ := json.Marshal(notif)
	_ = w.WriteMessage(websocket.TextMessage, b)
}
