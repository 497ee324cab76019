package auth

import (
	"database/sql"
	"net/http"

	"github.com/mind-engage/mindengage-selection/internal/rbac"
)

// AttachRoleFromDB re-reads the caller's role from the users table so that a
// demoted or removed account loses access before its token expires. The
// configured admin account has no row and keeps its token role.
func AttachRoleFromDB(db *sql.DB, adminUser string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := rbac.SubjectFromContext(ctx)
			if sub != "" && sub == adminUser {
				next.ServeHTTP(w, r)
				return
			}

			var role string
			err := db.QueryRowContext(ctx, `SELECT role FROM users WHERE username=$1`, sub).Scan(&role)
			if err != nil || role == "" {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
		})
	}
}
