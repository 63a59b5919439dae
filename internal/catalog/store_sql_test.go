package catalog_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/psicodata/scoring-engine/internal/catalog"
	"github.com/psicodata/scoring-engine/internal/db"
	"github.com/psicodata/scoring-engine/internal/runner"
	"github.com/psicodata/scoring-engine/internal/scoring"
)

func openStore(t *testing.T) *catalog.Store {
	t.Helper()
	conn, err := db.Open(context.Background(), db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return catalog.NewStore(conn)
}

func seed(t *testing.T, st *catalog.Store) {
	t.Helper()
	ctx := context.Background()
	stmts := []struct {
		q    string
		args []any
	}{
		{`INSERT INTO tests (id, code, name) VALUES ($1,$2,$3)`, []any{"t1", "PHQ", "Cuestionario"}},
		{`INSERT INTO questions (id, test_id, code, text, qtype, ord) VALUES ($1,$2,$3,$4,$5,$6)`,
			[]any{"q1", "t1", "P1", "Pregunta uno", "likert_1_4", 1}},
		{`INSERT INTO questions (id, test_id, code, text, qtype, ord) VALUES ($1,$2,$3,$4,$5,$6)`,
			[]any{"q2", "t1", "P2", "Pregunta dos", "single", 2}},
		{`INSERT INTO question_options (id, question_id, label, value, ord, active) VALUES ($1,$2,$3,$4,$5,$6)`,
			[]any{"o1", "q2", "Nada", "0", 1, 1}},
		{`INSERT INTO question_options (id, question_id, label, value, ord, active) VALUES ($1,$2,$3,$4,$5,$6)`,
			[]any{"o2", "q2", "Mucho", "2", 2, 1}},
		{`INSERT INTO question_options (id, question_id, label, value, ord, active) VALUES ($1,$2,$3,$4,$5,$6)`,
			[]any{"o3", "q2", "Retirada", "9", 3, 0}},
		{`INSERT INTO scales (id, test_id, code, name) VALUES ($1,$2,$3,$4)`,
			[]any{"s1", "t1", "TOT", "Total"}},
		{`INSERT INTO scale_items (scale_id, question_id, ord) VALUES ($1,$2,$3)`, []any{"s1", "q1", 1}},
		{`INSERT INTO scale_items (scale_id, question_id, ord) VALUES ($1,$2,$3)`, []any{"s1", "q2", 2}},
	}
	for _, s := range stmts {
		if _, err := st.DB().ExecContext(ctx, s.q, s.args...); err != nil {
			t.Fatalf("seed %q: %v", s.q, err)
		}
	}
}

func TestStore_CatalogRoundTrip(t *testing.T) {
	st := openStore(t)
	seed(t, st)
	ctx := context.Background()

	scales, err := st.ScalesWithItems(ctx, "t1")
	if err != nil {
		t.Fatalf("scales: %v", err)
	}
	if len(scales) != 1 || scales[0].Code != "TOT" || len(scales[0].Items) != 2 {
		t.Fatalf("got %+v", scales)
	}

	questions, err := st.Questions(ctx, "t1")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("got %d questions", len(questions))
	}

	options, err := st.QuestionOptions(ctx, "t1")
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if len(options) != 3 {
		t.Fatalf("got %d options", len(options))
	}
	for _, o := range options {
		if o.ID == "o3" && o.Active {
			t.Fatalf("o3 should be inactive")
		}
	}
}

func TestStore_AttemptLifecycle(t *testing.T) {
	st := openStore(t)
	seed(t, st)
	ctx := context.Background()

	a, err := st.CreateAttempt(ctx, "t1", "p1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == "" || a.StartedAt == nil || a.FinishedAt != nil {
		t.Fatalf("got %+v", a)
	}

	records := []scoring.AnswerRecord{
		{QuestionID: "q1", Value: "3"},
		{QuestionID: "q2", Text: "Mucho", Values: []any{"2"}},
	}
	if err := st.SaveAnswers(ctx, a.ID, records); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Re-saving q1 keeps only the latest answer.
	if err := st.SaveAnswers(ctx, a.ID, []scoring.AnswerRecord{{QuestionID: "q1", Value: "2"}}); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, err := st.AttemptAnswers(ctx, a.ID)
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	byQ := map[string]scoring.AnswerRecord{}
	for _, rec := range got {
		byQ[rec.QuestionID] = rec
	}
	if byQ["q1"].Value != "2" {
		t.Fatalf("q1 = %+v", byQ["q1"])
	}
	if byQ["q2"].Text != "Mucho" || !reflect.DeepEqual(byQ["q2"].Values, []any{"2"}) {
		t.Fatalf("q2 = %+v", byQ["q2"])
	}

	if err := st.FinishAttempt(ctx, a.ID); err != nil {
		t.Fatalf("finish: %v", err)
	}
	a2, err := st.Attempt(ctx, a.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if a2.FinishedAt == nil {
		t.Fatalf("finished_at not set")
	}
	first := *a2.FinishedAt
	if err := st.FinishAttempt(ctx, a.ID); err != nil {
		t.Fatalf("refinish: %v", err)
	}
	a3, _ := st.Attempt(ctx, a.ID)
	if a3.FinishedAt == nil || !a3.FinishedAt.Equal(first) {
		t.Fatalf("finished_at changed on second finish")
	}
}

func TestStore_NotFound(t *testing.T) {
	st := openStore(t)
	seed(t, st)
	ctx := context.Background()

	if _, err := st.Attempt(ctx, "nope"); err == nil {
		t.Fatalf("expected error for missing attempt")
	}
	if _, err := st.CreateAttempt(ctx, "nope", "p1"); err == nil {
		t.Fatalf("expected error for missing test")
	}
	if err := st.SaveAnswers(ctx, "nope", nil); err == nil {
		t.Fatalf("expected error for missing attempt")
	}
}

func TestStore_ScoresThroughRunner(t *testing.T) {
	st := openStore(t)
	seed(t, st)
	ctx := context.Background()

	a, err := st.CreateAttempt(ctx, "t1", "p1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.SaveAnswers(ctx, a.ID, []scoring.AnswerRecord{
		{QuestionID: "q1", Value: "3"},
		{QuestionID: "q2", Text: "Mucho"},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	r := runner.New(st, st, nil, zerolog.Nop())
	res, err := r.Score(ctx, runner.ScoreRequest{TestID: "t1", PatientID: "p1", AttemptID: a.ID})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if len(res.Scales) != 1 {
		t.Fatalf("got %d scales", len(res.Scales))
	}
	ss := res.Scales[0]
	// q1 is 3 of 1..4, q2 answered "Mucho" is 2 of 0..2; the retired
	// option must not widen the range.
	if ss.Raw != 5 || ss.Min != 1 || ss.Max != 6 {
		t.Fatalf("got raw=%v min=%v max=%v", ss.Raw, ss.Min, ss.Max)
	}
}

func TestNormalizeAnswersPayload(t *testing.T) {
	cases := []struct {
		name string
		body string
		want []scoring.AnswerRecord
	}{
		{
			name: "bare array camel",
			body: `[{"questionId":"q1","value":"3"}]`,
			want: []scoring.AnswerRecord{{QuestionID: "q1", Value: "3"}},
		},
		{
			name: "items wrapper snake",
			body: `{"items":[{"question_id":"q1","text":"hola"}]}`,
			want: []scoring.AnswerRecord{{QuestionID: "q1", Text: "hola"}},
		},
		{
			name: "answers wrapper with values",
			body: `{"answers":[{"questionId":"q1","values":["2","3"]}]}`,
			want: []scoring.AnswerRecord{{QuestionID: "q1", Values: []any{"2", "3"}}},
		},
		{
			name: "selections alias",
			body: `[{"questionId":"q1","selections":["2"]}]`,
			want: []scoring.AnswerRecord{{QuestionID: "q1", Values: []any{"2"}}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := catalog.NormalizeAnswersPayload([]byte(tc.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestNormalizeAnswersPayload_Rejects(t *testing.T) {
	if _, err := catalog.NormalizeAnswersPayload([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := catalog.NormalizeAnswersPayload([]byte(`[{"value":"3"}]`)); err == nil {
		t.Fatalf("expected missing question id error")
	}
}
