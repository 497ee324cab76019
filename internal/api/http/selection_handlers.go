package http

import (
	"encoding/json"
	"net/http"

	"github.com/mind-engage/mindengage-selection/internal/grading"
	"github.com/mind-engage/mindengage-selection/internal/ranking"
	"github.com/mind-engage/mindengage-selection/internal/selection"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type publicRow struct {
	Rank       int            `json:"rank"`
	ChestNo    string         `json:"chest_no"`
	Name       string         `json:"name"`
	Department string         `json:"department"`
	Bucket     ranking.Bucket `json:"bucket"`
}

// GET /ranklist: public board without the score columns.
func RanklistHandler(svc *selection.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows := svc.Leaderboard(r.Context())
		out := make([]publicRow, len(rows))
		for i, row := range rows {
			out[i] = publicRow{row.Rank, row.ChestNo, row.Name, row.Department, row.Bucket}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /admin/topscores: full board with stage columns.
func TopScoresHandler(svc *selection.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Leaderboard(r.Context()))
	}
}

type stageView struct {
	grading.Stage
	MaxTotal float64 `json:"max_total"`
}

// GET /admin/rubric
func RubricHandler(svc *selection.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rb := svc.Rubric()
		stages := make([]stageView, len(rb.Stages))
		for i, s := range rb.Stages {
			stages[i] = stageView{Stage: s, MaxTotal: s.MaxPoints()}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"stages":        stages,
			"bonus":         rb.Bonus,
			"bonus_options": grading.ScoreOptions(rb.Bonus.MaxPoints),
			"evaluators":    rb.Evaluators,
			"max_total":     rb.MaxTotal(),
		})
	}
}

// GET /admin/students?by=chest|admission&q=...
// A read-only lookup that does not touch the caller's desk.
func StudentLookupHandler(svc *selection.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode := selection.SearchMode(r.URL.Query().Get("by"))
		if mode == "" {
			mode = selection.ByChest
		}
		res, err := svc.Search(r.Context(), mode, r.URL.Query().Get("q"))
		if err != nil {
			searchError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
