package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-selection/internal/db"
	"github.com/mind-engage/mindengage-selection/internal/rbac"
)

func hash(t *testing.T, pw string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

func newService(t *testing.T) *AuthService {
	t.Helper()
	h, err := db.Open(context.Background(), db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	_, err = h.Exec(`INSERT INTO users (id, username, role, password_hash, created_at) VALUES ($1,$2,$3,$4,$5)`,
		"u1", "afrin", rbac.RoleStaff, hash(t, "pw1"), time.Now().Unix())
	require.NoError(t, err)
	return NewAuthService("test-secret", h, "admin", hash(t, "root"), nil)
}

func TestAuthenticate(t *testing.T) {
	a := newService(t)
	ctx := context.Background()

	role, err := a.Authenticate(ctx, "admin", "root")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, role)

	role, err = a.Authenticate(ctx, " afrin ", "pw1")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleStaff, role)

	for _, c := range [][2]string{{"admin", "nope"}, {"afrin", "pw2"}, {"ghost", "pw1"}, {"", ""}} {
		_, err := a.Authenticate(ctx, c[0], c[1])
		assert.ErrorIs(t, err, ErrInvalidCredentials, "user %q", c[0])
	}
}

func TestLoginAndMiddleware(t *testing.T) {
	a := newService(t)

	rec := httptest.NewRecorder()
	LoginHandler(a)(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"afrin","password":"pw1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"staff"`)

	rec = httptest.NewRecorder()
	LoginHandler(a)(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"afrin","password":"bad"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := a.IssueJWT("afrin", rbac.RoleStaff)
	require.NoError(t, err)

	var gotSub, gotRole string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = rbac.SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/desk", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "afrin", gotSub)
	assert.Equal(t, rbac.RoleStaff, gotRole)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/desk", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	a := newService(t)
	other := NewAuthService("other-secret", nil, "", "", nil)
	tok, err := other.IssueJWT("afrin", rbac.RoleAdmin)
	require.NoError(t, err)
	_, err = a.Parse(tok)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Sub: "afrin", Role: rbac.RoleStaff,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}})
	s, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = a.Parse(s)
	assert.Error(t, err)
}

func TestAttachRoleFromDB(t *testing.T) {
	a := newService(t)
	var got string
	h := AttachRoleFromDB(a.db, "admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = rbac.RoleFromContext(r.Context())
	}))

	serve := func(sub, role string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(rbac.WithRole(rbac.WithSubject(req.Context(), sub), role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, serve("afrin", rbac.RoleAdmin))
	assert.Equal(t, rbac.RoleStaff, got, "table role wins over token role")
	assert.Equal(t, http.StatusOK, serve("admin", rbac.RoleAdmin))
	assert.Equal(t, rbac.RoleAdmin, got)
	assert.Equal(t, http.StatusForbidden, serve("removed", rbac.RoleStaff))
}
