package http

import (
	"context"
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/mindengage-selection/internal/sync"
)

type AuditReader interface {
	Recent(ctx context.Context, key string, limit int) ([]syncx.Event, error)
}

// GET /admin/audit?record=&limit=
func AuditHandler(log AuditReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		events, err := log.Recent(r.Context(), r.URL.Query().Get("record"), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}
