package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/psicodata/scoring-engine/internal/catalog"
	"github.com/psicodata/scoring-engine/internal/runner"
)

func scoreRequestFor(r *http.Request, store *catalog.Store, readOnly bool) (runner.ScoreRequest, int, error) {
	attemptID := strings.TrimSpace(chi.URLParam(r, "attemptID"))
	if attemptID == "" {
		return runner.ScoreRequest{}, http.StatusBadRequest, errors.New("attemptID required")
	}
	a, err := store.Attempt(r.Context(), attemptID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return runner.ScoreRequest{}, http.StatusNotFound, err
		}
		return runner.ScoreRequest{}, http.StatusBadGateway, err
	}
	return runner.ScoreRequest{
		TestID:     a.TestID,
		PatientID:  a.PatientID,
		AttemptID:  a.ID,
		StartedAt:  a.StartedAt,
		FinishedAt: a.FinishedAt,
		ReadOnly:   readOnly,
	}, 0, nil
}

// POST /attempts/{attemptID}/score
func ScoreAttemptHandler(store *catalog.Store, rn *runner.Runner) http.HandlerFunc {
	return scoreHandler(store, rn, false)
}

// GET /attempts/{attemptID}/score
func GetAttemptScoreHandler(store *catalog.Store, rn *runner.Runner) http.HandlerFunc {
	return scoreHandler(store, rn, true)
}

func scoreHandler(store *catalog.Store, rn *runner.Runner, readOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, code, err := scoreRequestFor(r, store, readOnly)
		if err != nil {
			http.Error(w, err.Error(), code)
			return
		}
		res, err := rn.Score(r.Context(), req)
		if err != nil {
			http.Error(w, "score: "+err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}
}

// GET /attempts/{attemptID}/payload
func AttemptPayloadHandler(store *catalog.Store, rn *runner.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, code, err := scoreRequestFor(r, store, true)
		if err != nil {
			http.Error(w, err.Error(), code)
			return
		}
		p, err := rn.Payload(r.Context(), req)
		if err != nil {
			http.Error(w, "payload: "+err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p)
	}
}
