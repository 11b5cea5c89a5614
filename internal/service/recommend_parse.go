package service

import (
	"bytes"
	"course-advisor-go/internal/model"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// 模型响应形状错误的种类。
var (
	ErrNoJSONFound   = errors.New("no JSON found in model response")
	ErrMalformedJSON = errors.New("malformed JSON in model response")
	ErrNotAList      = errors.New("model response is not a list")
	ErrEmptyList     = errors.New("model response contains no recommendations")
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidField  = errors.New("invalid field value")
)

// RequiredRecommendationFields 是每条推荐必须包含的字段。
var RequiredRecommendationFields = []string{"id", "name", "code", "schedule", "credits"}

// ShapeError 描述模型输出为何未通过校验。Index 为 -1 时表示整体错误。
type ShapeError struct {
	Kind   error
	Index  int
	Fields []string
	Detail string
}

func (e *ShapeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Index >= 0 {
		fmt.Fprintf(&b, " (item %d)", e.Index)
	}
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Fields, ", "))
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	return b.String()
}

func (e *ShapeError) Unwrap() error {
	return e.Kind
}

// Reason 返回用于指标标签的简短原因。
func (e *ShapeError) Reason() string {
	switch e.Kind {
	case ErrNoJSONFound:
		return "no_json"
	case ErrMalformedJSON:
		return "malformed_json"
	case ErrNotAList:
		return "not_a_list"
	case ErrEmptyList:
		return "empty_list"
	case ErrMissingFields:
		return "missing_fields"
	default:
		return "invalid_field"
	}
}

// 贪婪匹配：第一个 { 或 [ 到全文最后一个 } 或 ]。
var jsonSpanPattern = regexp.MustCompile(`(?s)\{.*\}|\[.*\]`)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ExtractJSON 从模型的自由文本中截取 JSON 片段，不做任何修复。
func ExtractJSON(raw string) (string, error) {
	span := jsonSpanPattern.FindString(raw)
	if span == "" {
		return "", &ShapeError{Kind: ErrNoJSONFound, Index: -1}
	}
	return span, nil
}

// ParseRecommendations 截取、严格解析并校验模型返回的推荐列表。
func ParseRecommendations(raw string) ([]model.Recommendation, error) {
	span, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	data := []byte(span)
	if !json.Valid(data) {
		var target any
		detail := ""
		if err := json.Unmarshal(data, &target); err != nil {
			detail = err.Error()
		}
		return nil, &ShapeError{Kind: ErrMalformedJSON, Index: -1, Detail: detail}
	}
	if data = bytes.TrimSpace(data); data[0] != '[' {
		return nil, &ShapeError{Kind: ErrNotAList, Index: -1}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &ShapeError{Kind: ErrMalformedJSON, Index: -1, Detail: err.Error()}
	}
	if len(items) == 0 {
		return nil, &ShapeError{Kind: ErrEmptyList, Index: -1}
	}

	out := make([]model.Recommendation, 0, len(items))
	for i, item := range items {
		rec, err := parseRecommendation(i, item)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRecommendation(i int, item json.RawMessage) (model.Recommendation, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return model.Recommendation{}, &ShapeError{Kind: ErrInvalidField, Index: i, Detail: "item is not an object"}
	}
	var missing []string
	for _, f := range RequiredRecommendationFields {
		v, ok := fields[f]
		if !ok || string(bytes.TrimSpace(v)) == "null" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return model.Recommendation{}, &ShapeError{Kind: ErrMissingFields, Index: i, Fields: missing}
	}

	var rec model.Recommendation
	if err := json.Unmarshal(item, &rec); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return model.Recommendation{}, &ShapeError{Kind: ErrInvalidField, Index: i, Fields: []string{typeErr.Field},
				Detail: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value)}
		}
		return model.Recommendation{}, &ShapeError{Kind: ErrInvalidField, Index: i, Detail: err.Error()}
	}
	if problems := validateRecommendation(rec); len(problems) > 0 {
		return model.Recommendation{}, &ShapeError{Kind: ErrInvalidField, Index: i, Detail: strings.Join(problems, "; ")}
	}
	return rec, nil
}

// validateRecommendation 检查字段的语义：非负整数、合法星期与时间、容量与评分范围。
func validateRecommendation(r model.Recommendation) []string {
	var problems []string
	if strings.TrimSpace(string(r.ID)) == "" {
		problems = append(problems, "id must not be empty")
	}
	if strings.TrimSpace(r.Name) == "" {
		problems = append(problems, "name must not be empty")
	}
	if strings.TrimSpace(r.Code) == "" {
		problems = append(problems, "code must not be empty")
	}
	if r.Credits < 0 {
		problems = append(problems, "credits must be non-negative")
	}
	if r.Year < 0 {
		problems = append(problems, "year must be non-negative")
	}

	if len(r.Schedule.Days) == 0 {
		problems = append(problems, "schedule.days must not be empty")
	}
	for _, d := range r.Schedule.Days {
		if !model.IsWeekday(d) {
			problems = append(problems, fmt.Sprintf("schedule.days has invalid weekday %q", d))
		}
	}
	if !clockPattern.MatchString(r.Schedule.StartTime) {
		problems = append(problems, fmt.Sprintf("schedule.startTime %q is not HH:MM", r.Schedule.StartTime))
	}
	if !clockPattern.MatchString(r.Schedule.EndTime) {
		problems = append(problems, fmt.Sprintf("schedule.endTime %q is not HH:MM", r.Schedule.EndTime))
	}

	if a := r.Availability; a != nil {
		if a.Enrolled < 0 || a.Total < 0 {
			problems = append(problems, "availability counts must be non-negative")
		} else if a.Enrolled > a.Total {
			problems = append(problems, "availability.enrolled exceeds availability.total")
		}
	}
	if p := r.Professor; p != nil && !inScore(p.Rating) {
		problems = append(problems, "professor.rating must be between 0 and 5")
	}
	if e := r.Evaluation; e != nil {
		for name, v := range map[string]float64{
			"overall":      e.Overall,
			"difficulty":   e.Difficulty,
			"workload":     e.Workload,
			"organization": e.Organization,
		} {
			if !inScore(v) {
				problems = append(problems, fmt.Sprintf("evaluation.%s must be between 0 and 5", name))
			}
		}
		for _, c := range e.Comments {
			if !inScore(c.Rating) {
				problems = append(problems, "evaluation comment rating must be between 0 and 5")
				break
			}
		}
	}
	for grade, n := range r.GradeDistribution {
		if n < 0 {
			problems = append(problems, fmt.Sprintf("gradeDistribution[%s] must be non-negative", grade))
		}
	}
	return problems
}

func inScore(v float64) bool {
	return v >= 0 && v <= 5
}
