// Package llm provides a client for interacting with Large Language Models
// through an OpenAI-compatible chat/completions endpoint.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"course-advisor-go/internal/config"
	"course-advisor-go/pkg/log"
	"course-advisor-go/pkg/monitoring"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"
)

var tracer = otel.Tracer("course-advisor-go/pkg/llm")

// MessageWriter defines an interface for writing WebSocket messages.
type MessageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Client defines the interface for an LLM client.
type Client interface {
	// Chat 发送 role-based 消息并返回完整的回复文本。
	Chat(ctx context.Context, messages []Message, gen *GenerationParams) (string, error)
	// StreamChatMessages 以流式方式调用聊天接口，并将分块写入 writer。
	StreamChatMessages(ctx context.Context, messages []Message, gen *GenerationParams, writer MessageWriter) error
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams 控制生成行为
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
	// JSONMode 要求模型只输出 JSON（response_format=json_object）
	JSONMode bool
}

var (
	// ErrUpstreamTimeout 表示模型在限定时间内没有返回，可以重试。
	ErrUpstreamTimeout = errors.New("llm: upstream request timed out")
	// ErrEmptyResponse 表示模型返回了空内容。
	ErrEmptyResponse = errors.New("llm: empty response from model")
)

// APIError 是模型接口返回的非 200 响应。
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat api returned non-200 status: %d, body: %s", e.StatusCode, e.Body)
}

// Retryable 限流和服务端错误可以重试，其余 4xx 不重试。
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Stream         bool            `json:"stream"`
	Temperature    *float64        `json:"temperature,omitempty"`
	TopP           *float64        `json:"top_p,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
		Delta   struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type openAICompatClient struct {
	cfg     config.LLMConfig
	client  *http.Client
	timeout time.Duration
	sem     *semaphore.Weighted
}

// NewClient creates a new LLM client from the config.
func NewClient(cfg config.LLMConfig) Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	var sem *semaphore.Weighted
	if cfg.MaxConcurrency > 0 {
		sem = semaphore.NewWeighted(int64(cfg.MaxConcurrency))
	}
	return &openAICompatClient{
		cfg:     cfg,
		client:  &http.Client{},
		timeout: timeout,
		sem:     sem,
	}
}

func (c *openAICompatClient) acquire(ctx context.Context) (func(), error) {
	if c.sem == nil {
		return func() {}, nil
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { c.sem.Release(1) }, nil
}

func (c *openAICompatClient) buildRequest(messages []Message, gen *GenerationParams, stream bool) chatRequest {
	reqBody := chatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   stream,
	}
	// 传参优先，否则从全局配置注入（若非零值）
	if gen != nil {
		reqBody.Temperature = gen.Temperature
		reqBody.TopP = gen.TopP
		reqBody.MaxTokens = gen.MaxTokens
		if gen.JSONMode {
			reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
		}
	}
	if reqBody.Temperature == nil && c.cfg.Generation.Temperature != 0 {
		t := c.cfg.Generation.Temperature
		reqBody.Temperature = &t
	}
	if reqBody.TopP == nil && c.cfg.Generation.TopP != 0 {
		p := c.cfg.Generation.TopP
		reqBody.TopP = &p
	}
	if reqBody.MaxTokens == nil && c.cfg.Generation.MaxTokens != 0 {
		m := c.cfg.Generation.MaxTokens
		reqBody.MaxTokens = &m
	}
	return reqBody
}

func (c *openAICompatClient) newHTTPRequest(ctx context.Context, body []byte, stream bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

// Chat calls the chat completions API and returns the whole completion.
// 每次尝试都有独立的超时；超时、429 与 5xx 会按指数退避重试。
func (c *openAICompatClient) Chat(ctx context.Context, messages []Message, gen *GenerationParams) (text string, err error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "llm.chat")
	span.SetAttributes(
		attribute.String("llm.model", c.cfg.Model),
		attribute.Int("llm.messages", len(messages)),
	)
	defer func() {
		monitoring.ObserveLLM("chat", started, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	release, err := c.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	reqBytes, err := json.Marshal(c.buildRequest(messages, gen, false))
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	attempt := 0
	operation := func() (string, error) {
		attempt++
		out, err := c.doChat(ctx, reqBytes)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		if isRetryable(err) {
			log.Warnw("llm call failed, retrying", "attempt", attempt, "error", err)
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	text, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(max(c.cfg.MaxRetries, 0)+1)),
	)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return text, err
}

func (c *openAICompatClient) doChat(ctx context.Context, body []byte) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newHTTPRequest(attemptCtx, body, false)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", ErrUpstreamTimeout
		}
		return "", fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", ErrUpstreamTimeout
		}
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: Truncate(string(respBytes), 512)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return parsed.Choices[0].Message.Content, nil
}

// StreamChatMessages calls the chat completions API with stream=true and forwards deltas to writer.
// 流式调用不重试：分块一旦下发就无法撤回。
func (c *openAICompatClient) StreamChatMessages(ctx context.Context, messages []Message, gen *GenerationParams, writer MessageWriter) (err error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "llm.stream")
	span.SetAttributes(attribute.String("llm.model", c.cfg.Model))
	defer func() {
		monitoring.ObserveLLM("stream", started, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	release, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	reqBytes, err := json.Marshal(c.buildRequest(messages, gen, true))
	if err != nil {
		return fmt.Errorf("failed to marshal chat request: %w", err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newHTTPRequest(streamCtx, reqBytes, true)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(streamCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return ErrUpstreamTimeout
		}
		return fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: Truncate(string(bodyBytes), 512)}
	}

	wrote := false
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			if errors.Is(streamCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return ErrUpstreamTimeout
			}
			return fmt.Errorf("failed to read from stream: %w", err)
		}

		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		if data == "[DONE]" {
			break
		}

		var chunk chatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if err := writer.WriteMessage(websocket.TextMessage, []byte(chunk.Choices[0].Delta.Content)); err != nil {
			return fmt.Errorf("failed to write message to websocket: %w", err)
		}
		wrote = true
	}
	if !wrote {
		return ErrEmptyResponse
	}
	return nil
}

func isRetryable(err error) bool {
	if errors.Is(err, ErrUpstreamTimeout) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// Truncate 把 s 截断到至多 n 字节并追加省略号，不会切开多字节字符。
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
