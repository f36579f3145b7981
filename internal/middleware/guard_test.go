package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"civicconnect/internal/models"
)

type stubResolver struct {
	user models.User
	ok   bool
}

func (s stubResolver) Resolve(*http.Request) (models.User, models.Session, error) {
	if !s.ok {
		return models.User{}, models.Session{}, errors.New("no credentials")
	}
	return s.user, models.Session{ID: "s1", UserID: s.user.ID}, nil
}

type stubRoles map[int64]string

func (s stubRoles) GetUserRole(_ context.Context, id int64) (string, bool, error) {
	role, ok := s[id]
	if !ok {
		return "", false, errors.New("missing")
	}
	return role, true, nil
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	u, _ := User(r.Context())
	w.Header().Set("X-Role", u.Role)
	w.WriteHeader(http.StatusOK)
}

func serve(h http.Handler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	return rec
}

func TestAuthenticateIsOptional(t *testing.T) {
	rec := serve(Authenticate(stubResolver{})(http.HandlerFunc(okHandler)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	rec := serve(Authenticate(stubResolver{})(RequireAuth(http.HandlerFunc(okHandler))))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authentication token missing or invalid")

	rec = serve(Authenticate(stubResolver{ok: true, user: models.User{ID: 1}})(RequireAuth(http.HandlerFunc(okHandler))))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleUsesStoredRole(t *testing.T) {
	// The session still says admin, storage says citizen: storage wins.
	res := stubResolver{ok: true, user: models.User{ID: 7, Role: models.RoleAdmin}}
	roles := stubRoles{7: models.RoleCitizen}
	rec := serve(Authenticate(res)(RequireRole(roles, models.RoleAdmin)(http.HandlerFunc(okHandler))))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Admin access required")

	roles[7] = models.RoleAdmin
	rec = serve(Authenticate(res)(RequireRole(roles, models.RoleAdmin)(http.HandlerFunc(okHandler))))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleAdmin, rec.Header().Get("X-Role"))
}

func TestRequireRoleStaffMessage(t *testing.T) {
	res := stubResolver{ok: true, user: models.User{ID: 2}}
	rec := serve(Authenticate(res)(RequireRole(stubRoles{2: models.RoleCitizen}, models.RoleStaff, models.RoleAdmin)(http.HandlerFunc(okHandler))))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Staff access required")
}
