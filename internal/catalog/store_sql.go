package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/psicodata/scoring-engine/internal/scoring"
)

var ErrNotFound = errors.New("not found")

// Store reads the test catalog and attempt answers from SQL. It
// implements the runner's Catalog and AnswerSource contracts; rows come
// back unordered and ungrouped, the runner does that normalization.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for seeding and migrations.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) ScalesWithItems(ctx context.Context, testID string) ([]scoring.Scale, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, name FROM scales WHERE test_id=$1 ORDER BY code`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scales []scoring.Scale
	for rows.Next() {
		var sc scoring.Scale
		if err := rows.Scan(&sc.ID, &sc.Code, &sc.Name); err != nil {
			return nil, err
		}
		scales = append(scales, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range scales {
		items, err := s.scaleItems(ctx, scales[i].ID)
		if err != nil {
			return nil, err
		}
		scales[i].Items = items
	}
	return scales, nil
}

func (s *Store) scaleItems(ctx context.Context, scaleID string) ([]scoring.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id FROM scale_items WHERE scale_id=$1 ORDER BY ord`, scaleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []scoring.Question
	for rows.Next() {
		var q scoring.Question
		if err := rows.Scan(&q.ID); err != nil {
			return nil, err
		}
		items = append(items, q)
	}
	return items, rows.Err()
}

func (s *Store) Questions(ctx context.Context, testID string) ([]scoring.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, text, qtype, ord FROM questions WHERE test_id=$1`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []scoring.Question
	for rows.Next() {
		var q scoring.Question
		if err := rows.Scan(&q.ID, &q.Code, &q.Text, &q.RawType, &q.Order); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) QuestionOptions(ctx context.Context, testID string) ([]scoring.Option, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT o.id, o.question_id, o.label, o.value, o.ord, o.active
		   FROM question_options o
		   JOIN questions q ON q.id = o.question_id
		  WHERE q.test_id=$1`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []scoring.Option
	for rows.Next() {
		var o scoring.Option
		var value string
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Label, &value, &o.Order, &o.Active); err != nil {
			return nil, err
		}
		// Option values live as TEXT; downstream parsing decides whether
		// a value is numeric.
		o.Value = value
		options = append(options, o)
	}
	return options, rows.Err()
}

func (s *Store) AttemptAnswers(ctx context.Context, attemptID string) ([]scoring.AnswerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, answer_text, answer_value, answer_values_json
		   FROM attempt_answers WHERE attempt_id=$1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []scoring.AnswerRecord
	for rows.Next() {
		var rec scoring.AnswerRecord
		var value, valuesJSON string
		if err := rows.Scan(&rec.QuestionID, &rec.Text, &value, &valuesJSON); err != nil {
			return nil, err
		}
		if value != "" {
			rec.Value = value
		}
		if valuesJSON != "" {
			if err := json.Unmarshal([]byte(valuesJSON), &rec.Values); err != nil {
				return nil, fmt.Errorf("answer values for question %s: %w", rec.QuestionID, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Attempt is the stored attempt metadata the scoring surface needs.
type Attempt struct {
	ID         string
	TestID     string
	PatientID  string
	StartedAt  *time.Time
	FinishedAt *time.Time
}

func (s *Store) Attempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, test_id, patient_id, started_at, finished_at FROM attempts WHERE id=$1`, id)
	var a Attempt
	var started, finished sql.NullInt64
	if err := row.Scan(&a.ID, &a.TestID, &a.PatientID, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, fmt.Errorf("attempt %s: %w", id, ErrNotFound)
		}
		return Attempt{}, err
	}
	a.StartedAt = unixTime(started)
	a.FinishedAt = unixTime(finished)
	return a, nil
}

func (s *Store) CreateAttempt(ctx context.Context, testID, patientID string) (Attempt, error) {
	var exist int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM tests WHERE id=$1`, testID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, fmt.Errorf("test %s: %w", testID, ErrNotFound)
		}
		return Attempt{}, err
	}
	now := time.Now().UTC().Truncate(time.Second)
	a := Attempt{ID: uuid.NewString(), TestID: testID, PatientID: patientID, StartedAt: &now}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (id, test_id, patient_id, started_at) VALUES ($1,$2,$3,$4)`,
		a.ID, a.TestID, a.PatientID, now.Unix())
	if err != nil {
		return Attempt{}, err
	}
	return a, nil
}

// SaveAnswers upserts the records for one attempt; saving a question
// twice keeps the latest answer.
func (s *Store) SaveAnswers(ctx context.Context, attemptID string, records []scoring.AnswerRecord) error {
	if _, err := s.Attempt(ctx, attemptID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rec := range records {
		valuesJSON := ""
		if len(rec.Values) > 0 {
			buf, err := json.Marshal(rec.Values)
			if err != nil {
				return fmt.Errorf("answer values for question %s: %w", rec.QuestionID, err)
			}
			valuesJSON = string(buf)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO attempt_answers (attempt_id, question_id, answer_text, answer_value, answer_values_json)
			 VALUES ($1,$2,$3,$4,$5)
			 ON CONFLICT (attempt_id, question_id) DO UPDATE SET
			   answer_text=EXCLUDED.answer_text,
			   answer_value=EXCLUDED.answer_value,
			   answer_values_json=EXCLUDED.answer_values_json`,
			attemptID, rec.QuestionID, rec.Text, scoring.StringValue(rec.Value), valuesJSON)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// FinishAttempt stamps finished_at; finishing twice keeps the first
// timestamp.
func (s *Store) FinishAttempt(ctx context.Context, attemptID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE attempts SET finished_at=$1 WHERE id=$2 AND finished_at IS NULL`,
		time.Now().Unix(), attemptID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := s.Attempt(ctx, attemptID); err != nil {
			return err
		}
	}
	return nil
}

func unixTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

type wireAnswer struct {
	QuestionID  string   `json:"questionId"`
	QuestionID2 string   `json:"question_id"`
	Text        string   `json:"answerText"`
	Text2       string   `json:"text"`
	Value       any      `json:"value"`
	Values      []any    `json:"values"`
	ValuesAlt   []string `json:"selections"`
}

// NormalizeAnswersPayload decodes an answers request body. Clients send
// either a bare array or an object wrapping it under "items" or
// "answers"; field names come in both camel and snake case.
func NormalizeAnswersPayload(data []byte) ([]scoring.AnswerRecord, error) {
	trimmed := strings.TrimSpace(string(data))
	var wire []wireAnswer
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	} else {
		var wrapper struct {
			Items   []wireAnswer `json:"items"`
			Answers []wireAnswer `json:"answers"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		wire = wrapper.Items
		if len(wire) == 0 {
			wire = wrapper.Answers
		}
	}

	records := make([]scoring.AnswerRecord, 0, len(wire))
	for i, w := range wire {
		rec := scoring.AnswerRecord{
			QuestionID: w.QuestionID,
			Text:       w.Text,
			Value:      w.Value,
			Values:     w.Values,
		}
		if rec.QuestionID == "" {
			rec.QuestionID = w.QuestionID2
		}
		if rec.Text == "" {
			rec.Text = w.Text2
		}
		if len(rec.Values) == 0 {
			for _, v := range w.ValuesAlt {
				rec.Values = append(rec.Values, v)
			}
		}
		if rec.QuestionID == "" {
			return nil, fmt.Errorf("answer %d: missing question id", i)
		}
		records = append(records, rec)
	}
	return records, nil
}
