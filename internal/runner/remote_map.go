package runner

import (
	"encoding/json"
	"fmt"

	"github.com/psicodata/scoring-engine/internal/scoring"
)

// RemoteRun is the loosely shaped reply of the remote scorer. Field
// names differ between scorer deployments (snake vs camel, raw vs
// rawScore vs score), so the body is kept as generic maps and mapped
// tolerantly by MapRemoteRun.
type RemoteRun struct {
	Fields map[string]any
	Scales []map[string]any
}

// ParseRemoteRun decodes a remote scorer response body. The scale list
// may live under any of the usual keys; a missing list is not an error,
// it simply maps to the empty run that triggers local fallback.
func ParseRemoteRun(body []byte) (RemoteRun, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return RemoteRun{}, fmt.Errorf("decode remote run: %w", err)
	}
	run := RemoteRun{Fields: fields}
	for _, key := range []string{"scales", "scaleScores", "scale_scores", "results"} {
		list, ok := fields[key].([]any)
		if !ok {
			continue
		}
		for _, el := range list {
			if m, ok := el.(map[string]any); ok {
				run.Scales = append(run.Scales, m)
			}
		}
		break
	}
	return run, nil
}

// MapRemoteRun converts a remote reply into the canonical RunResult.
// ok is false when the reply carries no scales at all — the Empty state,
// handled exactly like a failed request.
func MapRemoteRun(run RemoteRun) (scoring.RunResult, bool) {
	if len(run.Scales) == 0 {
		return scoring.RunResult{}, false
	}
	out := scoring.RunResult{Scales: make([]scoring.ScaleScore, 0, len(run.Scales))}
	for _, m := range run.Scales {
		out.Scales = append(out.Scales, mapRemoteScale(m))
	}

	totalRaw, totalPercent := scoring.Totals(out.Scales)
	if v, ok := pickFloat(run.Fields, "totalRaw", "total_raw", "rawTotal", "raw_total"); ok {
		totalRaw = v
	}
	if v, ok := pickFloat(run.Fields, "totalPercent", "total_percent", "percentTotal", "percent_total"); ok {
		totalPercent = &v
	}
	out.TotalRaw = totalRaw
	out.TotalPercent = totalPercent
	return out, true
}

func mapRemoteScale(m map[string]any) scoring.ScaleScore {
	ss := scoring.ScaleScore{}
	ss.ScaleID, _ = pickString(m, "scaleId", "scale_id", "id")
	ss.ScaleCode, _ = pickString(m, "scaleCode", "scale_code", "code")
	ss.ScaleName, _ = pickString(m, "scaleName", "scale_name", "name")
	ss.Raw, _ = pickFloat(m, "raw", "rawScore", "raw_score", "score")
	ss.Min, _ = pickFloat(m, "min", "minScore", "min_score")
	ss.Max, _ = pickFloat(m, "max", "maxScore", "max_score")
	if v, ok := pickFloat(m, "percent", "pct", "percentage"); ok {
		ss.Percent = &v
	} else {
		ss.Percent = scoring.PercentOf(ss.Raw, ss.Min, ss.Max)
	}
	return ss
}

func pickString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s := scoring.StringValue(v); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func pickFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := scoring.NumericValue(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}
