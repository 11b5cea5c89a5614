// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"course-advisor-go/internal/config"
	"course-advisor-go/pkg/log"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event 是发送到 Kafka 的领域事件。
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Publisher 发送领域事件。
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
	Close() error
}

// Producer 基于 kafka.Writer 的 Publisher 实现。
type Producer struct {
	writer *kafka.Writer
}

// NewPublisher 根据配置创建 Publisher；未配置 brokers 时返回空实现。
func NewPublisher(cfg config.KafkaConfig) Publisher {
	brokers := splitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		log.Info("未配置 Kafka brokers，领域事件将被丢弃")
		return NopPublisher{}
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Errorf("发送 Kafka 事件失败: count=%d, err=%v", len(messages), err)
			}
		},
	}
	log.Infof("Kafka 生产者初始化成功, topic=%s", cfg.Topic)
	return &Producer{writer: w}
}

// Publish 发送一个事件，相同 key 的事件落在同一分区。
func (p *Producer) Publish(ctx context.Context, eventType, key string, payload any) error {
	value, err := encodeEvent(eventType, payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// NopPublisher 丢弃所有事件。
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }
func (NopPublisher) Close() error { return nil }

func encodeEvent(eventType string, payload any) ([]byte, error) {
	return json.Marshal(Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
}

func splitBrokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
