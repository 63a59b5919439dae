package scoring

import "strings"

// Raw question-type vocabulary is free text maintained by hand in the
// catalog, so normalization is an ordered rule table: first predicate
// that matches wins, anything unrecognized is treated as open text.
type typeRule struct {
	match func(string) bool
	kind  Kind
}

var typeRules = []typeRule{
	{isOpenVariant, KindOpen},
	{func(s string) bool { return strings.Contains(s, "multi") }, KindMulti},
	{func(s string) bool { return s == "single" || s == "choice" || strings.Contains(s, "radio") }, KindSingle},
	{isYesNoVariant, KindSingle},
	{func(s string) bool { return strings.HasPrefix(s, "likert") }, KindSingle},
}

var openVariants = map[string]bool{
	"open": true, "open_text": true, "open-text": true, "opentext": true,
	"open_ended": true, "open-ended": true, "openended": true,
	"text": true, "textarea": true, "free_text": true, "freetext": true,
	"essay": true, "long_text": true,
}

var yesNoVariants = map[string]bool{
	"yesno": true, "yes-no": true, "yes_no": true, "yn": true,
	"bool": true, "boolean": true,
}

func isOpenVariant(s string) bool  { return openVariants[s] }
func isYesNoVariant(s string) bool { return yesNoVariants[s] }

func normType(rawType string) string {
	return strings.ToLower(strings.TrimSpace(rawType))
}

// Normalize maps a raw question-type string to its canonical kind.
func Normalize(rawType string) Kind {
	s := normType(rawType)
	if s == "" {
		return KindOpen
	}
	for _, r := range typeRules {
		if r.match(s) {
			return r.kind
		}
	}
	return KindOpen
}

// Classify is Normalize plus the option-presence rule: once a question is
// known to carry options, an ambiguous choice type is pinned to single.
// A raw type that itself says "multi" is never downgraded.
func Classify(rawType string, optionCount int) Kind {
	k := Normalize(rawType)
	if optionCount > 0 && k == KindMulti && !strings.Contains(normType(rawType), "multi") {
		k = KindSingle
	}
	return k
}
