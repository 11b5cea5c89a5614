package service

import (
	"context"
	"course-advisor-go/internal/model"
	"course-advisor-go/pkg/llm"
	"errors"
	"strings"
	"testing"
)

const validCourseJSON = `{"id": 1, "name": "Machine Learning", "code": "CS4780", "credits": 4,
 "schedule": {"days": ["Monday", "Wednesday"], "startTime": "10:10", "endTime": "11:25"},
 "professor": {"name": "Dr. Smith", "rating": 4.5},
 "availability": {"enrolled": 10, "total": 20}}`

func TestExtractJSONFromFencedResponse(t *testing.T) {
	raw := "Sure! ```json\n[" + validCourseJSON + "]\n``` thanks"
	span, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if !strings.HasPrefix(span, "[") || !strings.HasSuffix(span, "]") {
		t.Fatalf("unexpected span %q", span)
	}

	recs, err := ParseRecommendations(raw)
	if err != nil {
		t.Fatalf("ParseRecommendations: %v", err)
	}
	if len(recs) != 1 || recs[0].Code != "CS4780" || recs[0].ID != "1" || recs[0].Credits != 4 {
		t.Fatalf("unexpected recommendations: %+v", recs)
	}
	if recs[0].Professor == nil || recs[0].Professor.Name != "Dr. Smith" {
		t.Fatalf("professor not decoded: %+v", recs[0].Professor)
	}
}

func TestParseRecommendationsErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"no json", "I cannot help with that.", ErrNoJSONFound},
		{"malformed", "[{\"id\": 1,,}]", ErrMalformedJSON},
		{"object", validCourseJSON, ErrNotAList},
		{"empty list", "[]", ErrEmptyList},
		{"missing credits", `[{"id": "1", "name": "A", "code": "X1", "schedule": {"days": ["Monday"], "startTime": "09:00", "endTime": "10:00"}}]`, ErrMissingFields},
		{"null field", `[{"id": "1", "name": "A", "code": "X1", "credits": null, "schedule": {}}]`, ErrMissingFields},
		{"string credits", `[{"id": "1", "name": "A", "code": "X1", "credits": "3", "schedule": {"days": ["Monday"], "startTime": "09:00", "endTime": "10:00"}}]`, ErrInvalidField},
		{"fractional credits", `[{"id": "1", "name": "A", "code": "X1", "credits": 3.5, "schedule": {"days": ["Monday"], "startTime": "09:00", "endTime": "10:00"}}]`, ErrInvalidField},
		{"negative credits", `[{"id": "1", "name": "A", "code": "X1", "credits": -1, "schedule": {"days": ["Monday"], "startTime": "09:00", "endTime": "10:00"}}]`, ErrInvalidField},
		{"bad weekday", `[{"id": "1", "name": "A", "code": "X1", "credits": 3, "schedule": {"days": ["Funday"], "startTime": "09:00", "endTime": "10:00"}}]`, ErrInvalidField},
		{"bad time", `[{"id": "1", "name": "A", "code": "X1", "credits": 3, "schedule": {"days": ["Monday"], "startTime": "9am", "endTime": "10:00"}}]`, ErrInvalidField},
		{"over capacity", `[{"id": "1", "name": "A", "code": "X1", "credits": 3, "schedule": {"days": ["Monday"], "startTime": "09:00", "endTime": "10:00"}, "availability": {"enrolled": 30, "total": 20}}]`, ErrInvalidField},
		{"rating out of range", `[{"id": "1", "name": "A", "code": "X1", "credits": 3, "schedule": {"days": ["Monday"], "startTime": "09:00", "endTime": "10:00"}, "professor": {"name": "P", "rating": 7}}]`, ErrInvalidField},
		{"not an object", `[1, 2]`, ErrInvalidField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recs, err := ParseRecommendations(tc.raw)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got=%v want=%v", err, tc.want)
			}
			if recs != nil {
				t.Fatalf("failed parse must not return partial results: %+v", recs)
			}
		})
	}
}

func TestMissingFieldsErrorNamesFields(t *testing.T) {
	_, err := ParseRecommendations(`[` + validCourseJSON + `, {"id": "2", "name": "B", "code": "X2"}]`)
	var shapeErr *ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
	if shapeErr.Index != 1 || strings.Join(shapeErr.Fields, ",") != "schedule,credits" {
		t.Fatalf("unexpected shape error: %+v", shapeErr)
	}
	if shapeErr.Reason() != "missing_fields" {
		t.Fatalf("reason: got=%q", shapeErr.Reason())
	}
}

func TestRecommendBuildsPromptAndPublishes(t *testing.T) {
	client := &fakeLLM{respond: func([]llm.Message) (string, error) { return "[" + validCourseJSON + "]", nil }}
	events := &recordingPublisher{}
	svc := NewRecommendService(client, newTestCatalog(t), events, true)

	recs, err := svc.Recommend(context.Background(), model.RecommendRequest{
		CareerGoal:     "data scientist",
		Subject:        "machine learning",
		EnrollmentType: "online",
		AvailableDays:  []string{"Monday", "Wednesday"},
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got=%d recommendations", len(recs))
	}

	sent := client.lastCall()
	if len(sent) != 1 || sent[0].Role != model.RoleUser {
		t.Fatalf("recommend must send a single prompt without history: %+v", sent)
	}
	prompt := sent[0].Content
	for _, want := range []string{"data scientist", "machine learning", "online enrollment", "Monday, Wednesday", "Code: CS101", `"gradeDistribution"`} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if client.gens[0] == nil || !client.gens[0].JSONMode {
		t.Fatalf("JSON mode was enabled but not requested")
	}
	if got := events.types(); len(got) != 1 || got[0] != EventRecommendationIssued {
		t.Fatalf("events: %v", got)
	}
}

func TestRecommendValidatesRequest(t *testing.T) {
	client := &fakeLLM{respond: func([]llm.Message) (string, error) { return "[]", nil }}
	svc := NewRecommendService(client, newTestCatalog(t), &recordingPublisher{}, false)

	if _, err := svc.Recommend(context.Background(), model.RecommendRequest{Subject: "math"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing career goal: got %v", err)
	}
	req := model.RecommendRequest{CareerGoal: "x", Subject: "y", AvailableDays: []string{"Someday"}}
	if _, err := svc.Recommend(context.Background(), req); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad weekday: got %v", err)
	}
	if len(client.calls) != 0 {
		t.Fatalf("model must not be called for invalid requests")
	}
}

func TestRecommendSurfacesShapeAndUpstreamErrors(t *testing.T) {
	req := model.RecommendRequest{CareerGoal: "x", Subject: "y"}

	noJSON := &fakeLLM{respond: func([]llm.Message) (string, error) { return "Sorry, no idea.", nil }}
	events := &recordingPublisher{}
	_, err := NewRecommendService(noJSON, newTestCatalog(t), events, true).Recommend(context.Background(), req)
	if !errors.Is(err, ErrNoJSONFound) {
		t.Fatalf("expected ErrNoJSONFound, got %v", err)
	}
	if len(events.types()) != 0 {
		t.Fatalf("no event should be published for rejected responses")
	}

	quota := &fakeLLM{respond: func([]llm.Message) (string, error) { return "", &llm.APIError{StatusCode: 429} }}
	_, err = NewRecommendService(quota, newTestCatalog(t), events, true).Recommend(context.Background(), req)
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}
