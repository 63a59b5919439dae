package runner

import (
	"time"

	"github.com/psicodata/scoring-engine/internal/scoring"
)

// NormalizedAnswer is one answer in the remote wire format. Values are
// always stringified so the payload is stable regardless of how the
// answer source typed them.
type NormalizedAnswer struct {
	QuestionID string   `json:"questionId"`
	AnswerText string   `json:"answerText,omitempty"`
	Value      string   `json:"value,omitempty"`
	Values     []string `json:"values,omitempty"`
}

// RunPayload is the request body for submitRun / getRun.
type RunPayload struct {
	TestID        string             `json:"testId"`
	PatientID     string             `json:"patientId"`
	StartedAtUtc  string             `json:"startedAtUtc,omitempty"`
	FinishedAtUtc string             `json:"finishedAtUtc,omitempty"`
	Answers       []NormalizedAnswer `json:"answers"`
}

// BuildPayload normalizes the attempt's answers per question kind: open
// questions ship their text, single questions a stringified value, multi
// questions an array of stringified selections. Unanswered questions are
// omitted.
func BuildPayload(req ScoreRequest, questions []scoring.Question, answers map[string]scoring.AnswerRecord) RunPayload {
	p := RunPayload{
		TestID:        req.TestID,
		PatientID:     req.PatientID,
		StartedAtUtc:  utcString(req.StartedAt),
		FinishedAtUtc: utcString(req.FinishedAt),
		Answers:       []NormalizedAnswer{},
	}
	for _, item := range questions {
		rec, ok := answers[item.ID]
		if !ok {
			continue
		}
		q := scoring.Prepare(item)
		switch scoring.Classify(q.RawType, len(q.Options)) {
		case scoring.KindOpen:
			p.Answers = append(p.Answers, NormalizedAnswer{QuestionID: q.ID, AnswerText: rec.Text})
		case scoring.KindMulti:
			p.Answers = append(p.Answers, NormalizedAnswer{QuestionID: q.ID, Values: scoring.SelectionValues(&rec)})
		default:
			v := scoring.StringValue(rec.Value)
			if v == "" {
				v = rec.Text
			}
			p.Answers = append(p.Answers, NormalizedAnswer{QuestionID: q.ID, Value: v})
		}
	}
	return p
}

func utcString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
