package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"

	"civicconnect/internal/config"
	"civicconnect/internal/models"
	"civicconnect/internal/service"
)

const sessionTokenKey = "token"

var errNoCredentials = errors.New("no credentials")

func newCookieStore(cfg config.Config) *sessions.CookieStore {
	cs := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionAbsoluteDuration().Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	return cs
}

// resolver finds the opaque session token on a request, first in a bearer
// token and then in the signed session cookie.
type resolver struct {
	svc     *service.Service
	cookies *sessions.CookieStore
	name    string
}

func (rv resolver) Resolve(r *http.Request) (models.User, models.Session, error) {
	raw, err := rv.token(r)
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	return rv.svc.ValidateSession(r.Context(), raw)
}

func (rv resolver) token(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", errNoCredentials
		}
		return rv.svc.Signer().Parse(strings.TrimSpace(tok))
	}
	if _, err := r.Cookie(rv.name); err != nil {
		return "", errNoCredentials
	}
	sess, err := rv.cookies.Get(r, rv.name)
	if err != nil {
		return "", err
	}
	raw, _ := sess.Values[sessionTokenKey].(string)
	if raw == "" {
		return "", errNoCredentials
	}
	return raw, nil
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, r *http.Request, raw string) error {
	sess, _ := h.cookies.New(r, h.cfg.SessionCookieName)
	sess.Values[sessionTokenKey] = raw
	return sess.Save(r, w)
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter, r *http.Request) error {
	sess, _ := h.cookies.New(r, h.cfg.SessionCookieName)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
