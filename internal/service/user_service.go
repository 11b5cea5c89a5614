package service

import (
	"context"
	"course-advisor-go/internal/model"
	"course-advisor-go/internal/repository"
	"course-advisor-go/pkg/hash"
	"course-advisor-go/pkg/kafka"
	"course-advisor-go/pkg/log"
	"course-advisor-go/pkg/token"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	EventUserSignedUp  = "user.signed_up"
	EventUserSignedIn  = "user.signed_in"
	EventUserSignedOut = "user.signed_out"
)

// Tokens 是登录或刷新后返回给客户端的令牌。
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	Signup(ctx context.Context, username, password string) (*model.User, error)
	SignIn(ctx context.Context, username, password string) (*Tokens, error)
	SignOut(ctx context.Context, username string) error
	IsSignedIn(ctx context.Context, username string) (bool, error)
	GetProfile(ctx context.Context, username string) (*model.User, error)
	RefreshToken(ctx context.Context, refreshToken string) (*Tokens, error)
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	jwtManager  *token.JWTManager
	events      kafka.Publisher
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository, jwtManager *token.JWTManager, events kafka.Publisher) UserService {
	return &userService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		jwtManager:  jwtManager,
		events:      events,
	}
}

// Signup 处理用户注册。不做先查后写，重复用户名由唯一索引拒绝。
func (s *userService) Signup(ctx context.Context, username, password string) (*model.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	newUser := &model.User{
		Username: username,
		Password: hashedPassword,
		Role:     "USER",
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		log.Errorf("[UserService] 创建用户失败, username: %s, error: %v", username, err)
		return nil, err
	}

	s.publish(ctx, EventUserSignedUp, username)
	return newUser, nil
}

// SignIn 校验密码，写入会话记录并签发令牌。
func (s *userService) SignIn(ctx context.Context, username, password string) (*Tokens, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// bcrypt 比较本身是常数时间的
	if !hash.CheckPasswordHash(password, user.Password) {
		return nil, ErrBadPassword
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	session := model.Session{Username: user.Username, UserID: user.ID, SignedInAt: time.Now()}
	if err := s.sessionRepo.Create(ctx, session, s.jwtManager.AccessTokenTTL()); err != nil {
		return nil, err
	}

	s.publish(ctx, EventUserSignedIn, username)
	return tokens, nil
}

// SignOut 删除会话记录；没有会话时返回 ErrNotSignedIn。
func (s *userService) SignOut(ctx context.Context, username string) error {
	existed, err := s.sessionRepo.Delete(ctx, username)
	if err != nil {
		return err
	}
	if !existed {
		return ErrNotSignedIn
	}
	s.publish(ctx, EventUserSignedOut, username)
	return nil
}

func (s *userService) IsSignedIn(ctx context.Context, username string) (bool, error) {
	return s.sessionRepo.Exists(ctx, username)
}

// GetProfile 根据用户名获取用户详细信息。
func (s *userService) GetProfile(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// RefreshToken 验证 refresh token 并签发新的令牌，会话已结束时拒绝。
func (s *userService) RefreshToken(ctx context.Context, refreshTokenString string) (*Tokens, error) {
	claims, err := s.jwtManager.VerifyRefreshToken(refreshTokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}

	signedIn, err := s.sessionRepo.Exists(ctx, claims.Username)
	if err != nil {
		return nil, err
	}
	if !signedIn {
		return nil, ErrNotSignedIn
	}

	user, err := s.userRepo.FindByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.issueTokens(user)
}

func (s *userService) issueTokens(user *model.User) (*Tokens, error) {
	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	return &Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.AccessTokenTTL().Seconds()),
	}, nil
}

func (s *userService) publish(ctx context.Context, eventType, username string) {
	payload := map[string]string{"username": username}
	if err := s.events.Publish(ctx, eventType, username, payload); err != nil {
		log.Warnw("failed to publish event", "type", eventType, "error", err)
	}
}
