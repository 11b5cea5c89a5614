package service

import (
	"context"
	"course-advisor-go/internal/catalog"
	"course-advisor-go/internal/model"
	"course-advisor-go/internal/repository"
	"course-advisor-go/pkg/llm"
	"strings"
	"sync"
	"testing"
	"time"
)

const testCatalog = `{"courses": [
  {"id": "1", "name": "Introduction to Programming", "code": "CS101", "credits": 3,
   "department": "Computer Science", "departmentCode": "CS", "term": "Fall", "year": 2025,
   "schedule": {"days": ["Monday"], "startTime": "09:00", "endTime": "10:00"},
   "mode": "online", "location": "Online", "availability": {"enrolled": 5, "total": 50},
   "professor": "Dr. Ada Lovelace", "prerequisites": [], "textbooks": [], "description": "Basics."}
]}`

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load(strings.NewReader(testCatalog))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return cat
}

// fakeLLM 记录收到的消息，按 respond 生成回复。
type fakeLLM struct {
	mu      sync.Mutex
	calls   [][]llm.Message
	gens    []*llm.GenerationParams
	respond func(messages []llm.Message) (string, error)
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message, gen *llm.GenerationParams) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]llm.Message(nil), messages...))
	f.gens = append(f.gens, gen)
	f.mu.Unlock()
	return f.respond(messages)
}

func (f *fakeLLM) StreamChatMessages(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams, w llm.MessageWriter) error {
	out, err := f.Chat(ctx, messages, gen)
	if err != nil {
		return err
	}
	for _, part := range strings.SplitAfter(out, " ") {
		if err := w.WriteMessage(1, []byte(part)); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeLLM) lastCall() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

// memConversationRepo 是 ConversationRepository 的内存实现。
type memConversationRepo struct {
	mu     sync.Mutex
	store  map[string][]model.ChatMessage
	getErr error
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{store: map[string][]model.ChatMessage{}}
}

func (r *memConversationRepo) GetConversationHistory(_ context.Context, sessionID string) ([]model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	return append([]model.ChatMessage{}, r.store[sessionID]...), nil
}

func (r *memConversationRepo) UpdateConversationHistory(_ context.Context, sessionID string, messages []model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[sessionID] = append([]model.ChatMessage(nil), model.TrimHistory(messages)...)
	return nil
}

func (r *memConversationRepo) failGets(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getErr = err
}

func (r *memConversationRepo) stored(sessionID string) []model.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ChatMessage{}, r.store[sessionID]...)
}

func (r *memConversationRepo) DeleteConversationHistory(_ context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.store[sessionID]
	delete(r.store, sessionID)
	return ok, nil
}

// memUserRepo 模拟唯一索引：重复用户名返回 ErrDuplicateUsername。
type memUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[string]model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]model.User{}}
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return repository.ErrDuplicateUsername
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.Username] = *user
	return nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r *memUserRepo) FindByID(_ context.Context, id uint) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[string]model.Session{}}
}

func (r *memSessionRepo) Create(_ context.Context, s model.Session, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Username] = s
	return nil
}

func (r *memSessionRepo) Exists(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[username]
	return ok, nil
}

func (r *memSessionRepo) Delete(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[username]
	delete(r.sessions, username)
	return ok, nil
}

// recordingPublisher 记录发布的事件类型。
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}
