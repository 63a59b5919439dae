package scoring

// ScoreScale scores one scale: member questions are iterated in catalog
// order, each range resolved exactly once, each answer coerced against
// it. Unanswered questions contribute their own minimum so a missing
// answer cannot deflate the attainable percentage. Open questions carry
// no numeric weight and are skipped entirely.
func ScoreScale(sc Scale, answers map[string]AnswerRecord) ScaleScore {
	ss := ScaleScore{ScaleID: sc.ID, ScaleCode: sc.Code, ScaleName: sc.Name}
	for _, item := range sc.Items {
		q := Prepare(item)
		if Classify(q.RawType, len(q.Options)) == KindOpen {
			continue
		}
		rng := ResolveRange(q)
		var rec *AnswerRecord
		if r, ok := answers[q.ID]; ok {
			rec = &r
		}
		c := Coerce(q, rec)
		if !c.Answered {
			c.Value = rng.Min
		}
		ss.Raw += c.Value
		ss.Min += rng.Min
		ss.Max += rng.Max
	}
	ss.Percent = PercentOf(ss.Raw, ss.Min, ss.Max)
	return ss
}

// Aggregate runs the full local pipeline over all scales of a test.
func Aggregate(scales []Scale, answers map[string]AnswerRecord) RunResult {
	out := RunResult{Scales: make([]ScaleScore, 0, len(scales))}
	for _, sc := range scales {
		out.Scales = append(out.Scales, ScoreScale(sc, answers))
	}
	out.TotalRaw, out.TotalPercent = Totals(out.Scales)
	return out
}

// Totals derives test-level numbers from scale scores: totalRaw is the
// sum of scale raws, totalPercent the arithmetic mean of the non-nil
// scale percents (nil when no scale has a usable range). The mean of
// percents is canonical; totals are never re-derived from raw sums.
func Totals(scales []ScaleScore) (totalRaw float64, totalPercent *float64) {
	var sum float64
	var n int
	for _, ss := range scales {
		totalRaw += ss.Raw
		if ss.Percent != nil {
			sum += *ss.Percent
			n++
		}
	}
	if n > 0 {
		mean := sum / float64(n)
		totalPercent = &mean
	}
	return totalRaw, totalPercent
}

// PercentOf is the shared percent rule: (raw-min)/(max-min)*100 when the
// range is usable, nil otherwise.
func PercentOf(raw, min, max float64) *float64 {
	if max <= min {
		return nil
	}
	p := (raw - min) / (max - min) * 100
	return &p
}

// IndexAnswers keys answer records by question id; the last record per
// question wins, mirroring how the attempt store overwrites saves.
func IndexAnswers(records []AnswerRecord) map[string]AnswerRecord {
	out := make(map[string]AnswerRecord, len(records))
	for _, r := range records {
		if r.QuestionID == "" {
			continue
		}
		out[r.QuestionID] = r
	}
	return out
}
