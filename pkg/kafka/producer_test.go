package kafka

import (
	"context"
	"course-advisor-go/internal/config"
	"encoding/json"
	"testing"
)

func TestSplitBrokers(t *testing.T) {
	got := splitBrokers(" a:9092, ,b:9092 ")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected brokers: %v", got)
	}
	if splitBrokers("") != nil {
		t.Fatalf("empty brokers should produce nil")
	}
}

func TestNewPublisherWithoutBrokersIsNop(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{Topic: "events"})
	if _, ok := p.(NopPublisher); !ok {
		t.Fatalf("expected NopPublisher, got %T", p)
	}
	if err := p.Publish(context.Background(), "user.signed_in", "alice", nil); err != nil {
		t.Fatalf("nop publish: %v", err)
	}
}

func TestEncodeEvent(t *testing.T) {
	raw, err := encodeEvent("recommendation.issued", map[string]int{"count": 3})
	if err != nil {
		t.Fatalf("encodeEvent: %v", err)
	}
	var ev struct {
		ID      string         `json:"id"`
		Type    string         `json:"type"`
		Payload map[string]int `json:"payload"`
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.ID == "" || ev.Type != "recommendation.issued" || ev.Payload["count"] != 3 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}
