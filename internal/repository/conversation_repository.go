// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"course-advisor-go/internal/model"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ConversationRepository 定义了对话历史记录的操作接口，历史以会话 ID 为键。
type ConversationRepository interface {
	GetConversationHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	UpdateConversationHistory(ctx context.Context, sessionID string, messages []model.ChatMessage) error
	DeleteConversationHistory(ctx context.Context, sessionID string) (bool, error)
}

type redisConversationRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(redisClient *redis.Client, ttl time.Duration) ConversationRepository {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &redisConversationRepository{redisClient: redisClient, ttl: ttl}
}

func conversationKey(sessionID string) string {
	return fmt.Sprintf("conversation:%s", sessionID)
}

// GetConversationHistory 从 Redis 获取对话历史记录。
func (r *redisConversationRepository) GetConversationHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	jsonData, err := r.redisClient.Get(ctx, conversationKey(sessionID)).Result()
	if err == redis.Nil {
		return []model.ChatMessage{}, nil // No history yet
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	var messages []model.ChatMessage
	if err := json.Unmarshal([]byte(jsonData), &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation history: %w", err)
	}
	return messages, nil
}

// UpdateConversationHistory 在 Redis 中更新对话历史记录，只保留最近 model.MaxHistoryTurns 条。
func (r *redisConversationRepository) UpdateConversationHistory(ctx context.Context, sessionID string, messages []model.ChatMessage) error {
	jsonData, err := json.Marshal(model.TrimHistory(messages))
	if err != nil {
		return fmt.Errorf("failed to marshal conversation history: %w", err)
	}
	if err := r.redisClient.Set(ctx, conversationKey(sessionID), jsonData, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set conversation history: %w", err)
	}
	return nil
}

// DeleteConversationHistory 清空一个会话的历史，返回该会话此前是否存在。
func (r *redisConversationRepository) DeleteConversationHistory(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.redisClient.Del(ctx, conversationKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete conversation history: %w", err)
	}
	return n > 0, nil
}
