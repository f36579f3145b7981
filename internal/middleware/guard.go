package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"civicconnect/internal/models"
	"civicconnect/internal/util"
)

const (
	msgUnauthenticated = "Unauthorized: Authentication token missing or invalid"
	msgAdminRequired   = "Unauthorized: Admin access required"
	msgStaffRequired   = "Unauthorized: Staff access required"
)

// Resolver turns the credentials on a request into a user and session.
// It returns an error when no valid credential is present.
type Resolver interface {
	Resolve(r *http.Request) (models.User, models.Session, error)
}

// RoleLookup reads the current role and active flag from storage.
type RoleLookup interface {
	GetUserRole(ctx context.Context, id int64) (role string, active bool, err error)
}

// Authenticate attaches the caller's identity when one resolves. It never
// rejects a request.
func Authenticate(res Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u, sess, err := res.Resolve(r); err == nil {
				ctx := WithUser(r.Context(), u)
				ctx = WithSession(ctx, sess)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests that Authenticate could not identify.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := User(r.Context()); !ok {
			util.WriteError(w, http.StatusUnauthorized, "unauthorized", msgUnauthenticated, RequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole re-reads the caller's role from storage on every request and
// allows only the listed roles.
func RequireRole(lookup RoleLookup, roles ...string) func(http.Handler) http.Handler {
	msg := msgStaffRequired
	if len(roles) == 1 && roles[0] == models.RoleAdmin {
		msg = msgAdminRequired
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := RequestID(r.Context())
			u, ok := User(r.Context())
			if !ok {
				util.WriteError(w, http.StatusUnauthorized, "unauthorized", msgUnauthenticated, rid)
				return
			}
			role, active, err := lookup.GetUserRole(r.Context(), u.ID)
			if err != nil {
				slog.ErrorContext(r.Context(), "role lookup failed", "user_id", u.ID, "error", err, "request_id", rid)
				util.WriteError(w, http.StatusForbidden, "forbidden", msg, rid)
				return
			}
			if !active || !hasRole(role, roles) {
				util.WriteError(w, http.StatusForbidden, "forbidden", msg, rid)
				return
			}
			u.Role = role
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func hasRole(role string, allowed []string) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}
