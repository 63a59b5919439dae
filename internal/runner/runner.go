package runner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/psicodata/scoring-engine/internal/scoring"
)

// Catalog provides test metadata: scales with their member questions,
// the flat question list and the flat option list.
type Catalog interface {
	ScalesWithItems(ctx context.Context, testID string) ([]scoring.Scale, error)
	Questions(ctx context.Context, testID string) ([]scoring.Question, error)
	QuestionOptions(ctx context.Context, testID string) ([]scoring.Option, error)
}

// AnswerSource returns the raw answers of one attempt.
type AnswerSource interface {
	AttemptAnswers(ctx context.Context, attemptID string) ([]scoring.AnswerRecord, error)
}

// RemoteScorer is the authoritative scorer. SubmitRun registers the run
// remotely and returns its scores; GetRun is the read-only variant used
// by review views that must not create anything server-side.
type RemoteScorer interface {
	SubmitRun(ctx context.Context, p RunPayload) (RemoteRun, error)
	GetRun(ctx context.Context, p RunPayload) (RemoteRun, error)
}

// ScoreRequest identifies one scoring run. ReadOnly selects GetRun over
// SubmitRun on the remote side; the local fallback is identical.
type ScoreRequest struct {
	TestID     string
	PatientID  string
	AttemptID  string
	StartedAt  *time.Time
	FinishedAt *time.Time
	ReadOnly   bool
}

// Runner is the two-tier scoring orchestrator: ask the remote scorer
// first, recompute everything locally when it has nothing. Remote
// failure and remote emptiness are deliberately indistinguishable at the
// decision point; neither ever reaches the caller as an error.
type Runner struct {
	catalog Catalog
	answers AnswerSource
	remote  RemoteScorer // nil means local-only
	log     zerolog.Logger
}

func New(catalog Catalog, answers AnswerSource, remote RemoteScorer, log zerolog.Logger) *Runner {
	return &Runner{catalog: catalog, answers: answers, remote: remote, log: log}
}

// Score executes one run. The only error it returns is the inability to
// load the catalog or the attempt's answers; everything else degrades to
// the local pipeline. Scoring the same unchanged inputs twice yields
// identical results.
func (r *Runner) Score(ctx context.Context, req ScoreRequest) (scoring.RunResult, error) {
	scales, questions, err := r.loadCatalog(ctx, req.TestID)
	if err != nil {
		return scoring.RunResult{}, fmt.Errorf("catalog for test %s: %w", req.TestID, err)
	}
	records, err := r.answers.AttemptAnswers(ctx, req.AttemptID)
	if err != nil {
		return scoring.RunResult{}, fmt.Errorf("answers for attempt %s: %w", req.AttemptID, err)
	}
	answers := scoring.IndexAnswers(records)

	if r.remote != nil {
		payload := BuildPayload(req, questions, answers)
		remote, err := r.callRemote(ctx, req, payload)
		if err != nil {
			r.log.Warn().Err(err).
				Str("attempt_id", req.AttemptID).
				Msg("remote scorer unavailable, scoring locally")
		} else if res, ok := MapRemoteRun(remote); ok {
			return res, nil
		} else {
			r.log.Debug().
				Str("attempt_id", req.AttemptID).
				Msg("remote scorer returned no scales, scoring locally")
		}
	}
	return scoring.Aggregate(scales, answers), nil
}

// Payload builds the normalized answer payload for an attempt without
// scoring it; the export/debug surface uses this.
func (r *Runner) Payload(ctx context.Context, req ScoreRequest) (RunPayload, error) {
	_, questions, err := r.loadCatalog(ctx, req.TestID)
	if err != nil {
		return RunPayload{}, fmt.Errorf("catalog for test %s: %w", req.TestID, err)
	}
	records, err := r.answers.AttemptAnswers(ctx, req.AttemptID)
	if err != nil {
		return RunPayload{}, fmt.Errorf("answers for attempt %s: %w", req.AttemptID, err)
	}
	return BuildPayload(req, questions, scoring.IndexAnswers(records)), nil
}

func (r *Runner) callRemote(ctx context.Context, req ScoreRequest, p RunPayload) (RemoteRun, error) {
	if req.ReadOnly {
		return r.remote.GetRun(ctx, p)
	}
	return r.remote.SubmitRun(ctx, p)
}

// loadCatalog fetches scales, questions and options and performs the
// caller-side normalization the catalog contract requires: options are
// grouped per question, sorted by order, inactive ones dropped, and
// scale items are replaced by the fully hydrated questions.
func (r *Runner) loadCatalog(ctx context.Context, testID string) ([]scoring.Scale, []scoring.Question, error) {
	scales, err := r.catalog.ScalesWithItems(ctx, testID)
	if err != nil {
		return nil, nil, err
	}
	questions, err := r.catalog.Questions(ctx, testID)
	if err != nil {
		return nil, nil, err
	}
	options, err := r.catalog.QuestionOptions(ctx, testID)
	if err != nil {
		return nil, nil, err
	}

	byQuestion := map[string][]scoring.Option{}
	for _, o := range options {
		if !o.Active {
			continue
		}
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], o)
	}
	for id := range byQuestion {
		opts := byQuestion[id]
		sort.SliceStable(opts, func(i, j int) bool { return opts[i].Order < opts[j].Order })
		byQuestion[id] = opts
	}

	index := make(map[string]scoring.Question, len(questions))
	for i := range questions {
		questions[i].Options = byQuestion[questions[i].ID]
		index[questions[i].ID] = questions[i]
	}
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Order < questions[j].Order })

	for si := range scales {
		for qi := range scales[si].Items {
			if full, ok := index[scales[si].Items[qi].ID]; ok {
				scales[si].Items[qi] = full
			}
		}
		sort.SliceStable(scales[si].Items, func(i, j int) bool {
			return scales[si].Items[i].Order < scales[si].Items[j].Order
		})
	}
	return scales, questions, nil
}
