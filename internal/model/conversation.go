// Package model 包含了应用的数据模型定义。
package model

import "time"

// 对话角色。system 只在发送给模型的消息序列中出现，不会写入会话历史。
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxHistoryTurns 是单个会话保留的最大轮次数量。
const MaxHistoryTurns = 40

// ChatMessage 代表会话历史中的一轮对话（一个角色 + 一段文本）。
type ChatMessage struct {
	Role      string    `json:"role"` // "user" 或 "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// TrimHistory 只保留最近的 MaxHistoryTurns 条消息，最旧的先被丢弃。
func TrimHistory(history []ChatMessage) []ChatMessage {
	if len(history) <= MaxHistoryTurns {
		return history
	}
	trimmed := make([]ChatMessage, MaxHistoryTurns)
	copy(trimmed, history[len(history)-MaxHistoryTurns:])
	return trimmed
}
