package repository

import (
	"context"
	"course-advisor-go/internal/model"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// SessionRepository 保存登录会话记录，以用户名为键。
type SessionRepository interface {
	Create(ctx context.Context, session model.Session, ttl time.Duration) error
	Exists(ctx context.Context, username string) (bool, error)
	// Delete 返回记录是否存在过
	Delete(ctx context.Context, username string) (bool, error)
}

type redisSessionRepository struct {
	redisClient *redis.Client
}

// NewSessionRepository 创建一个新的 SessionRepository 实例。
func NewSessionRepository(redisClient *redis.Client) SessionRepository {
	return &redisSessionRepository{redisClient: redisClient}
}

func sessionKey(username string) string {
	return fmt.Sprintf("session:%s", username)
}

// Create 写入（或覆盖）用户的会话记录。
func (r *redisSessionRepository) Create(ctx context.Context, session model.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.redisClient.Set(ctx, sessionKey(session.Username), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) Exists(ctx context.Context, username string) (bool, error) {
	n, err := r.redisClient.Exists(ctx, sessionKey(username)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n > 0, nil
}

// Delete 使用 DEL 的返回值判断记录是否存在，避免先查后删的竞态。
func (r *redisSessionRepository) Delete(ctx context.Context, username string) (bool, error) {
	n, err := r.redisClient.Del(ctx, sessionKey(username)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return n > 0, nil
}
