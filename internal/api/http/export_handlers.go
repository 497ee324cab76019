package http

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-selection/internal/export"
	"github.com/mind-engage/mindengage-selection/internal/selection"
	"github.com/mind-engage/mindengage-selection/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /admin/ranklist.xlsx: streams the board and archives a copy when bs is set.
func RanklistXLSXHandler(svc *selection.Service, bs storage.BlobStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, svc.Leaderboard(r.Context())); err != nil {
			log.Error("xlsx export failed", zap.Error(err))
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}
		if bs != nil {
			key := export.SnapshotKey(time.Now())
			if _, err := bs.Put(r.Context(), key, bytes.NewReader(buf.Bytes())); err != nil {
				log.Warn("export archive failed", zap.String("key", key), zap.Error(err))
			}
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="ranklist.xlsx"`)
		_, _ = buf.WriteTo(w)
	}
}

// MountExports serves archived exports: GET / lists keys, GET /* fetches one.
func MountExports(r chi.Router, bs storage.BlobStore) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		keys, err := bs.List(r.Context(), "exports/")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, keys)
	})

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(r.Context(), "exports/"+name)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", xlsxContentType)
		_, _ = io.Copy(w, rc)
	})
}
