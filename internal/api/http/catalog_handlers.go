package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/psicodata/scoring-engine/internal/catalog"
)

// GET /tests/{testID}/scales
func ListScalesHandler(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID := strings.TrimSpace(chi.URLParam(r, "testID"))
		if testID == "" {
			http.Error(w, "testID required", http.StatusBadRequest)
			return
		}
		scales, err := store.ScalesWithItems(r.Context(), testID)
		if err != nil {
			http.Error(w, "scales: "+err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(scales)
	}
}
