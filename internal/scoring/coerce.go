package scoring

import (
	"encoding/json"
	"strings"
)

// Contribution is one question's share of a scale score. Answered=false
// is the unanswered sentinel: the aggregator substitutes the question's
// resolved minimum, never zero.
type Contribution struct {
	Value    float64
	Answered bool
	Text     string
}

// Coerce converts an answer record into a numeric contribution for one
// prepared question. rec may be nil (unanswered). Open questions never
// contribute a number; their text is carried through for export.
func Coerce(q Question, rec *AnswerRecord) Contribution {
	switch Classify(q.RawType, len(q.Options)) {
	case KindOpen:
		if rec == nil {
			return Contribution{}
		}
		txt := strings.TrimSpace(rec.Text)
		return Contribution{Text: txt, Answered: txt != ""}
	case KindMulti:
		return coerceMulti(q, rec)
	default:
		return coerceSingle(q, rec)
	}
}

func coerceSingle(q Question, rec *AnswerRecord) Contribution {
	if rec == nil {
		return Contribution{}
	}
	if v, ok := NumericValue(rec.Value); ok {
		return Contribution{Value: v, Answered: true}
	}
	if txt := strings.TrimSpace(rec.Text); txt != "" {
		for _, o := range q.Options {
			if strings.EqualFold(strings.TrimSpace(o.Label), txt) {
				if v, ok := NumericValue(o.Value); ok {
					return Contribution{Value: v, Answered: true}
				}
			}
		}
	}
	if sv := StringValue(rec.Value); sv != "" {
		for _, o := range q.Options {
			if StringValue(o.Value) == sv {
				if v, ok := NumericValue(o.Value); ok {
					return Contribution{Value: v, Answered: true}
				}
			}
		}
	}
	return Contribution{}
}

func coerceMulti(q Question, rec *AnswerRecord) Contribution {
	sel := SelectionValues(rec)
	if len(sel) == 0 {
		return Contribution{}
	}
	set := make(map[string]bool, len(sel))
	for _, s := range sel {
		set[s] = true
	}
	sum := 0.0
	for _, o := range q.Options {
		v, ok := NumericValue(o.Value)
		if !ok {
			continue
		}
		// Matched by value, id or label; one hit per option at most.
		if set[StringValue(o.Value)] || set[o.ID] || set[strings.TrimSpace(o.Label)] {
			sum += v
		}
	}
	return Contribution{Value: sum, Answered: true}
}

// SelectionValues extracts the selection of a multi answer as strings.
// Modern records carry Values; legacy records encode the selection as a
// JSON array inside the single value or text field.
func SelectionValues(rec *AnswerRecord) []string {
	if rec == nil {
		return nil
	}
	if len(rec.Values) > 0 {
		out := make([]string, 0, len(rec.Values))
		seen := map[string]bool{}
		for _, v := range rec.Values {
			if s := StringValue(v); s != "" && !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
		return out
	}
	for _, raw := range []string{StringValue(rec.Value), strings.TrimSpace(rec.Text)} {
		if !strings.HasPrefix(raw, "[") {
			continue
		}
		var arr []any
		if err := json.Unmarshal([]byte(raw), &arr); err != nil {
			continue
		}
		out := make([]string, 0, len(arr))
		seen := map[string]bool{}
		for _, v := range arr {
			if s := StringValue(v); s != "" && !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
