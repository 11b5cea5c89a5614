package repository

import (
	"context"
	"course-advisor-go/internal/model"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestConversationHistoryRoundTripAndTrim(t *testing.T) {
	rdb, mr := newTestRedis(t)
	repo := NewConversationRepository(rdb, time.Hour)
	ctx := context.Background()

	empty, err := repo.GetConversationHistory(ctx, "s1")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty history, got=%v err=%v", empty, err)
	}

	var msgs []model.ChatMessage
	for i := 0; i < 45; i++ {
		msgs = append(msgs, model.ChatMessage{Role: model.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}
	if err := repo.UpdateConversationHistory(ctx, "s1", msgs); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.GetConversationHistory(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != model.MaxHistoryTurns || got[0].Content != "m5" || got[len(got)-1].Content != "m44" {
		t.Fatalf("unexpected trimmed history: len=%d first=%q", len(got), got[0].Content)
	}
	if ttl := mr.TTL("conversation:s1"); ttl != time.Hour {
		t.Fatalf("ttl: got=%v want=%v", ttl, time.Hour)
	}

	other, err := repo.GetConversationHistory(ctx, "s2")
	if err != nil || len(other) != 0 {
		t.Fatalf("sessions must not share history, got=%v", other)
	}

	existed, err := repo.DeleteConversationHistory(ctx, "s1")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = repo.DeleteConversationHistory(ctx, "s1")
	if err != nil || existed {
		t.Fatalf("second delete should report missing, existed=%v err=%v", existed, err)
	}
}

func TestSessionRepository(t *testing.T) {
	rdb, mr := newTestRedis(t)
	repo := NewSessionRepository(rdb)
	ctx := context.Background()

	ok, err := repo.Exists(ctx, "alice")
	if err != nil || ok {
		t.Fatalf("expected no session, ok=%v err=%v", ok, err)
	}

	sess := model.Session{Username: "alice", UserID: 1, SignedInAt: time.Now()}
	if err := repo.Create(ctx, sess, 2*time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}
	if ok, _ := repo.Exists(ctx, "alice"); !ok {
		t.Fatalf("expected session to exist")
	}
	if ttl := mr.TTL("session:alice"); ttl != 2*time.Hour {
		t.Fatalf("ttl: got=%v", ttl)
	}

	existed, err := repo.Delete(ctx, "alice")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	if existed, _ := repo.Delete(ctx, "alice"); existed {
		t.Fatalf("second delete should report missing")
	}
}
