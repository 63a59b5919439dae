package runner_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/psicodata/scoring-engine/internal/runner"
	"github.com/psicodata/scoring-engine/internal/scoring"
)

func TestBuildPayload_WireRules(t *testing.T) {
	questions := []scoring.Question{
		{ID: "q1", RawType: "open_text", Order: 1},
		{ID: "q2", RawType: "likert_1_4", Order: 2},
		{ID: "q3", RawType: "multi", Order: 3, Options: []scoring.Option{
			{ID: "o1", Label: "a", Value: 2, Order: 1, Active: true},
			{ID: "o2", Label: "b", Value: 3, Order: 2, Active: true},
		}},
		{ID: "q4", RawType: "likert_1_4", Order: 4}, // unanswered, omitted
	}
	answers := map[string]scoring.AnswerRecord{
		"q1": {QuestionID: "q1", Text: "sin cambios"},
		"q2": {QuestionID: "q2", Value: 3.0},
		"q3": {QuestionID: "q3", Values: []any{2.0, "3"}},
	}
	started := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	rq := runner.ScoreRequest{TestID: "t1", PatientID: "p1", AttemptID: "a1", StartedAt: &started}

	p := runner.BuildPayload(rq, questions, answers)
	if p.TestID != "t1" || p.PatientID != "p1" {
		t.Fatalf("ids: %+v", p)
	}
	if p.StartedAtUtc != "2024-05-02T09:30:00Z" {
		t.Fatalf("startedAtUtc = %q", p.StartedAtUtc)
	}
	want := []runner.NormalizedAnswer{
		{QuestionID: "q1", AnswerText: "sin cambios"},
		{QuestionID: "q2", Value: "3"},
		{QuestionID: "q3", Values: []string{"2", "3"}},
	}
	if !reflect.DeepEqual(p.Answers, want) {
		t.Fatalf("answers:\n got %+v\nwant %+v", p.Answers, want)
	}
}

func TestBuildPayload_SingleFallsBackToText(t *testing.T) {
	questions := []scoring.Question{{ID: "q1", RawType: "likert_1_4", Order: 1}}
	answers := map[string]scoring.AnswerRecord{
		"q1": {QuestionID: "q1", Text: "Bastante"},
	}
	p := runner.BuildPayload(runner.ScoreRequest{TestID: "t1"}, questions, answers)
	if len(p.Answers) != 1 || p.Answers[0].Value != "Bastante" {
		t.Fatalf("got %+v", p.Answers)
	}
}

func TestRunnerPayload_EndToEnd(t *testing.T) {
	r := runner.New(seedCatalog(), seedAnswers(), nil, zerolog.Nop())
	p, err := r.Payload(context.Background(), req())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Answers) != 1 || p.Answers[0].QuestionID != "q1" || p.Answers[0].Value != "3" {
		t.Fatalf("got %+v", p.Answers)
	}
}
