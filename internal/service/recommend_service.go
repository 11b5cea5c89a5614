package service

import (
	"context"
	"course-advisor-go/internal/catalog"
	"course-advisor-go/internal/model"
	"course-advisor-go/pkg/kafka"
	"course-advisor-go/pkg/llm"
	"course-advisor-go/pkg/log"
	"course-advisor-go/pkg/monitoring"
	"errors"
	"fmt"
	"strings"
)

const EventRecommendationIssued = "recommendation.issued"

// RecommendService 生成结构化的选课推荐。
type RecommendService interface {
	Recommend(ctx context.Context, req model.RecommendRequest) ([]model.Recommendation, error)
}

type recommendService struct {
	llmClient      llm.Client
	events         kafka.Publisher
	catalogContext string
	jsonMode       bool
}

// NewRecommendService 创建一个新的 RecommendService 实例。
func NewRecommendService(llmClient llm.Client, cat *catalog.Catalog, events kafka.Publisher, jsonMode bool) RecommendService {
	return &recommendService{
		llmClient:      llmClient,
		events:         events,
		catalogContext: cat.Context(),
		jsonMode:       jsonMode,
	}
}

// Recommend 单次调用模型（不带历史），截取并校验 JSON 数组后返回。
// 模型推荐的课程不与真实目录比对。
func (s *recommendService) Recommend(ctx context.Context, req model.RecommendRequest) ([]model.Recommendation, error) {
	req.CareerGoal = strings.TrimSpace(req.CareerGoal)
	req.Subject = strings.TrimSpace(req.Subject)
	if req.CareerGoal == "" || req.Subject == "" {
		return nil, fmt.Errorf("%w: careerGoal and subject are required", ErrInvalidInput)
	}
	for _, d := range req.AvailableDays {
		if !model.IsWeekday(d) {
			return nil, fmt.Errorf("%w: %q is not a weekday name", ErrInvalidInput, d)
		}
	}

	prompt := buildRecommendPrompt(s.catalogContext, req)
	raw, err := s.llmClient.Chat(ctx, []llm.Message{{Role: model.RoleUser, Content: prompt}}, &llm.GenerationParams{JSONMode: s.jsonMode})
	if err != nil {
		log.Warnw("recommendation completion failed", "error", err)
		return nil, &UpstreamError{Op: "recommend", Err: err}
	}

	recs, err := ParseRecommendations(raw)
	if err != nil {
		var shapeErr *ShapeError
		if errors.As(err, &shapeErr) {
			monitoring.ShapeFailures.WithLabelValues(shapeErr.Reason()).Inc()
		}
		log.Warnw("model response rejected", "error", err, "raw", llm.Truncate(raw, 500))
		return nil, err
	}

	codes := make([]string, 0, len(recs))
	for _, r := range recs {
		codes = append(codes, r.Code)
	}
	payload := map[string]any{
		"careerGoal": req.CareerGoal,
		"subject":    req.Subject,
		"codes":      codes,
	}
	if err := s.events.Publish(ctx, EventRecommendationIssued, req.Subject, payload); err != nil {
		log.Warnw("failed to publish event", "type", EventRecommendationIssued, "error", err)
	}
	return recs, nil
}
