package scoring

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the canonical answer shape of a question.
type Kind string

const (
	KindOpen   Kind = "open"
	KindSingle Kind = "single"
	KindMulti  Kind = "multi"
)

// Option is one selectable answer of a question. Catalog values arrive as
// either strings or numbers, so Value stays loosely typed and is parsed
// on demand via NumericValue / StringValue.
type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id,omitempty"`
	Label      string `json:"label"`
	Value      any    `json:"value"`
	Order      int    `json:"order"`
	Active     bool   `json:"active"`
}

// Question as delivered by the catalog. RawType is free text (e.g.
// "likert_1_4", "yesno", "open_text") and is the only type signal when no
// options are attached.
type Question struct {
	ID      string   `json:"id"`
	Code    string   `json:"code,omitempty"`
	Text    string   `json:"text,omitempty"`
	RawType string   `json:"raw_type"`
	Order   int      `json:"order"`
	Options []Option `json:"options,omitempty"`
}

// AnswerRecord is one attempt answer. Depending on the question's kind,
// Text, Value or Values carries the payload; all three may be absent for
// an unanswered question.
type AnswerRecord struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text,omitempty"`
	Value      any    `json:"value,omitempty"`
	Values     []any  `json:"values,omitempty"`
}

// Scale is a named grouping of questions. A question belongs to at most
// one scale per scoring pass.
type Scale struct {
	ID    string     `json:"id"`
	Code  string     `json:"code,omitempty"`
	Name  string     `json:"name,omitempty"`
	Items []Question `json:"items"`
}

// ScaleScore is the computed score of one scale. Percent is nil when the
// scale has no usable range (max == min).
type ScaleScore struct {
	ScaleID   string   `json:"scale_id"`
	ScaleCode string   `json:"scale_code,omitempty"`
	ScaleName string   `json:"scale_name,omitempty"`
	Raw       float64  `json:"raw"`
	Min       float64  `json:"min"`
	Max       float64  `json:"max"`
	Percent   *float64 `json:"percent"`
}

// RunResult is the output contract of a scoring run, identical in shape
// whether the scores came from the remote scorer or were computed locally.
type RunResult struct {
	TotalRaw     float64      `json:"total_raw"`
	TotalPercent *float64     `json:"total_percent"`
	Scales       []ScaleScore `json:"scales"`
}

// NumericValue parses a loosely typed catalog or answer value. A false
// return means the value is absent or not numeric; callers treat that as
// missing, never as zero.
func NumericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// StringValue renders a loosely typed value the way the wire format
// expects: numbers without a trailing ".0", everything else verbatim.
func StringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", t)
	}
}
