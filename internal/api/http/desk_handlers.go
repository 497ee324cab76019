package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-selection/internal/rbac"
	"github.com/mind-engage/mindengage-selection/internal/selection"
)

func deskFor(ds *selection.Desks, r *http.Request) *selection.Desk {
	return ds.For(rbac.SubjectFromContext(r.Context()))
}

func searchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, selection.ErrStaleSearch):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, selection.ErrInvalidEdit):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "search cancelled", http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func deskError(w http.ResponseWriter, err error) {
	var se *selection.SaveError
	switch {
	case errors.As(err, &se):
		http.Error(w, "could not save "+se.Stage+": "+se.Err.Error(), http.StatusBadGateway)
	case errors.Is(err, selection.ErrNoCandidate):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, selection.ErrUnknownStage):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, selection.ErrInvalidEdit):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, selection.ErrCandidateChanged):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// POST /admin/desk/search  {"by":"chest|admission","q":"..."}
func DeskSearchHandler(ds *selection.Desks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			By string `json:"by"`
			Q  string `json:"q"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.By == "" {
			req.By = string(selection.ByChest)
		}
		res, err := deskFor(ds, r).Search(r.Context(), selection.SearchMode(req.By), req.Q)
		if err != nil {
			searchError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /admin/desk
func DeskCurrentHandler(ds *selection.Desks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := deskFor(ds, r).Current()
		writeJSON(w, http.StatusOK, selection.Lookup{Found: st != nil, Student: st})
	}
}

// PATCH /admin/desk/stages/{stage}
func DeskEditHandler(ds *selection.Desks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p selection.StagePatch
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		st, err := deskFor(ds, r).Edit(chi.URLParam(r, "stage"), p)
		if err != nil {
			deskError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// POST /admin/desk/stages/{stage}/save
func DeskSaveHandler(ds *selection.Desks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := deskFor(ds, r).Save(r.Context(), chi.URLParam(r, "stage"))
		if err != nil {
			deskError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
