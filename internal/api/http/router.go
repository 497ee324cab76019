package http

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	auth "github.com/mind-engage/mindengage-selection/internal/auth/middleware"
	"github.com/mind-engage/mindengage-selection/internal/logging"
	"github.com/mind-engage/mindengage-selection/internal/rbac"
	"github.com/mind-engage/mindengage-selection/internal/selection"
	"github.com/mind-engage/mindengage-selection/internal/storage"
)

// Deps is everything the router mounts handlers on. Blobs and Audit are optional.
type Deps struct {
	Service     *selection.Service
	Desks       *selection.Desks
	Auth        *auth.AuthService
	DB          *sql.DB
	AdminUser   string
	Blobs       storage.BlobStore
	Audit       AuditReader
	CORSOrigins []string
	Log         *zap.Logger
	// Ready reports whether the backing stores answer; nil means always ready.
	Ready func(r *http.Request) error
}

func NewRouter(d Deps) chi.Router {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Desks == nil {
		d.Desks = selection.NewDesks(d.Service)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.RequestLogger(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(d.Auth))
	r.Get("/ranklist", RanklistHandler(d.Service))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	// Protected API (JWT → role in context → RBAC)
	r.Route("/admin", func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))
		if d.DB != nil {
			pr.Use(auth.AttachRoleFromDB(d.DB, d.AdminUser))
		}

		pr.With(rbac.Require(rbac.PermCandidateView)).Get("/rubric", RubricHandler(d.Service))
		pr.With(rbac.Require(rbac.PermCandidateView)).Get("/students", StudentLookupHandler(d.Service))

		pr.Route("/desk", func(dr chi.Router) {
			dr.Use(rbac.Require(rbac.PermScoreEdit))
			dr.Get("/", DeskCurrentHandler(d.Desks))
			dr.Post("/search", DeskSearchHandler(d.Desks))
			dr.Patch("/stages/{stage}", DeskEditHandler(d.Desks))
			dr.Post("/stages/{stage}/save", DeskSaveHandler(d.Desks))
		})

		pr.With(rbac.Require(rbac.PermRanklistView)).Get("/topscores", TopScoresHandler(d.Service))
		pr.With(rbac.Require(rbac.PermRanklistExport)).Get("/ranklist.xlsx", RanklistXLSXHandler(d.Service, d.Blobs, d.Log))
		if d.Blobs != nil {
			pr.With(rbac.Require(rbac.PermRanklistExport)).Route("/exports", func(er chi.Router) {
				MountExports(er, d.Blobs)
			})
		}
		if d.Audit != nil {
			pr.With(rbac.Require(rbac.PermAuditView)).Get("/audit", AuditHandler(d.Audit))
		}

		if d.DB != nil {
			pr.With(rbac.Require(rbac.PermUsersManage)).Post("/users", BulkUpsertUsersHandler(d.DB))
			pr.With(rbac.Require(rbac.PermUsersManage)).Get("/users", ListUsersHandler(d.DB))
			pr.With(rbac.Require(rbac.PermUsersManage)).Patch("/users/{username}/role", AdminUpdateUserRoleHandler(d.DB))
			pr.Post("/me/password", ChangePasswordHandler(d.DB))
		}
	})
	return r
}
