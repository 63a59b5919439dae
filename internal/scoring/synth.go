package scoring

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The pair form needs a non-digit separator between the two numbers so
// a run of digits ("likert10") stays one number, and a separator hyphen
// ("likert-1-5") never binds as a sign.
var (
	likertPair   = regexp.MustCompile(`likert[^0-9]*?(\d+)[^0-9]+(\d+)`)
	likertSingle = regexp.MustCompile(`likert[^0-9]*(\d+)`)
)

// ParseLikertSpec extracts the value range encoded in a likert raw type:
// "likert_1_4" / "likert-1-4" / "likert 1 4" give an explicit range,
// "likert5" means 1..5, a bare "likert" defaults to 1..4. ok is false
// when the raw type is not a likert variant at all.
func ParseLikertSpec(rawType string) (start, end int, ok bool) {
	s := normType(rawType)
	if !strings.HasPrefix(s, "likert") {
		return 0, 0, false
	}
	if m := likertPair.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		return a, b, true
	}
	if m := likertSingle.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return 1, n, true
	}
	return 1, 4, true
}

// Curated label sets for the two likert ranges the clinic's tests use
// most; anything else falls back to the stringified value.
var likertLabels = map[[2]int][]string{
	{0, 3}: {"Nunca", "A veces", "A menudo", "Siempre"},
	{1, 4}: {"Nunca", "Algunas veces", "Bastante", "Siempre"},
}

// SynthesizeOptions generates an ordered option list for questions whose
// raw type implies one (likert scales, yes/no) but whose catalog entry
// carries none. It is a pure function of the raw type and question id;
// the ids it emits are content-derived and never persisted. Questions
// that already have options, or whose type implies none, yield nil.
func SynthesizeOptions(q Question) []Option {
	if len(q.Options) > 0 {
		return nil
	}
	s := normType(q.RawType)
	if isYesNoVariant(s) {
		return []Option{
			{ID: synthOptionID(q.ID, 1), QuestionID: q.ID, Label: "Sí", Value: 1, Order: 1, Active: true},
			{ID: synthOptionID(q.ID, 0), QuestionID: q.ID, Label: "No", Value: 0, Order: 2, Active: true},
		}
	}
	if start, end, ok := ParseLikertSpec(s); ok {
		if end < start {
			start, end = end, start
		}
		labels := likertLabels[[2]int{start, end}]
		out := make([]Option, 0, end-start+1)
		for i, v := 0, start; v <= end; i, v = i+1, v+1 {
			label := strconv.Itoa(v)
			if i < len(labels) {
				label = labels[i]
			}
			out = append(out, Option{
				ID:         synthOptionID(q.ID, v),
				QuestionID: q.ID,
				Label:      label,
				Value:      v,
				Order:      i + 1,
				Active:     true,
			})
		}
		return out
	}
	return nil
}

// Prepare returns the question with synthesized options appended when the
// catalog supplied none. Every stage downstream of the normalizer works
// on prepared questions.
func Prepare(q Question) Question {
	if len(q.Options) == 0 {
		q.Options = SynthesizeOptions(q)
	}
	return q
}

func synthOptionID(questionID string, value int) string {
	return fmt.Sprintf("%s:synth:%d", questionID, value)
}
