package scoring

import "strings"

// Range is the attainable score span of a single question. Min <= Max
// always holds; when nothing can be established the declared fallback
// range applies, never zero values by accident.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ResolveRange computes the question's score range. The question is
// expected to be Prepare'd (synthesized options attached). The result is
// authoritative for the whole scoring pass: aggregation and unanswered
// handling both read from it, nothing recomputes it elsewhere.
func ResolveRange(q Question) Range {
	kind := Classify(q.RawType, len(q.Options))

	if kind == KindMulti {
		// Only positively valued options raise the ceiling; zero or
		// negative options are non-contributing choices.
		max := 0.0
		for _, o := range q.Options {
			if v, ok := NumericValue(o.Value); ok && v > 0 {
				max += v
			}
		}
		return Range{Min: 0, Max: max}
	}

	if len(q.Options) > 0 {
		if rng, ok := optionValueRange(q.Options); ok {
			return rng
		}
	}
	return heuristicRange(q)
}

func optionValueRange(opts []Option) (Range, bool) {
	var min, max float64
	found := false
	for _, o := range opts {
		v, ok := NumericValue(o.Value)
		if !ok {
			continue
		}
		if !found || v < min {
			min = v
		}
		if !found || v > max {
			max = v
		}
		found = true
	}
	return Range{Min: min, Max: max}, found
}

// heuristicRange is the documented fallback ladder for questions whose
// options (if any) yield no numeric values.
func heuristicRange(q Question) Range {
	s := normType(q.RawType)
	if start, end, ok := ParseLikertSpec(s); ok {
		lo, hi := float64(start), float64(end)
		if hi < lo {
			lo, hi = hi, lo
		}
		return Range{Min: lo, Max: hi}
	}
	if isYesNoVariant(s) {
		return Range{Min: 0, Max: 1}
	}
	if len(q.Options) == 3 || strings.Contains(s, "triad") {
		return Range{Min: 1, Max: 3}
	}
	return Range{Min: 1, Max: 4}
}
