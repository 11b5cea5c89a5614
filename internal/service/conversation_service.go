package service

import (
	"context"
	"course-advisor-go/internal/model"
	"course-advisor-go/internal/repository"
	"course-advisor-go/pkg/keylock"
	"fmt"
	"strings"
)

// ConversationService 定义了对话历史的查询与重置。
type ConversationService interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	// Reset 清空会话历史，返回该会话此前是否有历史。
	Reset(ctx context.Context, sessionID string) (bool, error)
}

type conversationService struct {
	repo  repository.ConversationRepository
	locks *keylock.Locker
}

// NewConversationService 创建一个新的 ConversationService。locks 需与 ChatService 共用。
func NewConversationService(repo repository.ConversationRepository, locks *keylock.Locker) ConversationService {
	return &conversationService{repo: repo, locks: locks}
}

// GetHistory 获取会话的完整消息历史。
func (s *conversationService) GetHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	return s.repo.GetConversationHistory(ctx, sessionID)
}

func (s *conversationService) Reset(ctx context.Context, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.repo.DeleteConversationHistory(ctx, sessionID)
}
