package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/sessions"

	"civicconnect/internal/config"
	"civicconnect/internal/middleware"
	"civicconnect/internal/models"
	"civicconnect/internal/rate"
	"civicconnect/internal/service"
	"civicconnect/internal/util"
	"civicconnect/internal/version"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	cfg     config.Config
	svc     *service.Service
	limiter rate.Counter
	cookies *sessions.CookieStore
	log     *slog.Logger
}

// NewRouter builds the HTTP surface. A nil limiter means an in-process one.
func NewRouter(cfg config.Config, svc *service.Service, limiter rate.Counter, log *slog.Logger) http.Handler {
	if limiter == nil {
		limiter = rate.NewLimiter()
	}
	if log == nil {
		log = slog.Default()
	}
	h := &Handlers{
		cfg:     cfg,
		svc:     svc,
		limiter: limiter,
		cookies: newCookieStore(cfg),
		log:     log,
	}
	admin := middleware.RequireRole(svc.Store(), models.RoleAdmin)

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		util.WriteError(w, http.StatusNotFound, "not_found", "Endpoint not found", middleware.RequestID(r.Context()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		util.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", middleware.RequestID(r.Context()))
	})
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLogger(log, cfg.TrustProxy))
	r.Use(middleware.SecurityHeaders)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": version.Current()})
	})
	r.Get("/health/ready", h.Ready)

	r.Route(cfg.APIBasePath, func(r chi.Router) {
		r.Use(middleware.Authenticate(resolver{svc: svc, cookies: h.cookies, name: cfg.SessionCookieName}))
		auth := r.With(middleware.RequireAuth)

		r.Route("/users", func(r chi.Router) {
			auth := r.With(middleware.RequireAuth)
			r.With(h.ipLimit("register", 10, time.Minute)).Post("/register", h.Register)
			r.Post("/verify-email", h.VerifyEmail)
			r.With(h.ipLimit("resend_otp", 5, time.Minute)).Post("/resend-otp", h.ResendOTP)
			r.With(h.ipLimit("login", 20, time.Minute)).Post("/login", h.Login)
			auth.Post("/logout", h.Logout)
			r.With(h.ipLimit("forgot_password", 5, time.Minute)).Post("/forgot-password", h.ForgotPassword)
			r.With(h.ipLimit("verify_reset_code", 10, time.Minute)).Post("/verify-reset-code", h.VerifyResetCode)
			r.With(h.ipLimit("reset_password", 10, time.Minute)).Post("/reset-password", h.ResetPassword)
			auth.Get("/me", h.Me)
			r.Get("/{id}", h.GetUser)
			auth.Put("/{id}", h.UpdateUser)
			r.Get("/{id}/issues", h.UserIssues)
			auth.Get("/{id}/stats", h.UserStats)
		})

		r.Get("/issues", h.ListIssues)
		auth.Post("/issues", h.CreateIssue)
		r.Get("/issues/{id}", h.GetIssue)
		auth.Put("/issues/{id}", h.UpdateIssue)
		auth.Delete("/issues/{id}", h.DeleteIssue)
		auth.Put("/issues/{id}/image", h.UploadIssueImage)

		auth.Post("/issues/{id}/upvotes", h.Upvote)
		r.Get("/issues/{id}/upvotes", h.ListUpvotes)
		auth.Delete("/issues/{id}/upvotes", h.RemoveUpvote)
		auth.Get("/issues/{id}/upvotes/check", h.CheckUpvote)

		auth.Post("/issues/{id}/comments", h.AddComment)
		r.Get("/issues/{id}/comments", h.ListComments)
		r.Get("/comments/{id}", h.GetComment)
		auth.Put("/comments/{id}", h.UpdateComment)
		auth.Delete("/comments/{id}", h.DeleteComment)

		auth.Post("/upload/issue", h.Upload)
		auth.Post("/upload/profile", h.Upload)
		auth.Delete("/files", h.DeleteFile)
		r.Get("/files/{name}", h.FileInfo)

		auth.Get("/notifications", h.ListNotifications)
		auth.Put("/notifications", h.MarkAllNotificationsRead)
		auth.Get("/notifications/unread-count", h.UnreadCount)
		auth.Put("/notifications/mark-all-read", h.MarkAllNotificationsRead)
		auth.Put("/notifications/{id}/read", h.MarkNotificationRead)

		r.Route("/admin", func(r chi.Router) {
			r.Use(admin)
			r.Get("/stats", h.AdminStats)
			r.Get("/users", h.AdminUsers)
			r.Put("/users/{id}/role", h.AdminUpdateRole)
			r.Get("/audit-logs", h.AdminAuditLogs)
			r.Get("/staff", h.ListStaff)
			r.Post("/staff", h.CreateStaff)
			r.Get("/staff/{id}", h.GetStaff)
			r.Put("/staff/{id}", h.UpdateStaff)
			r.Put("/staff/{id}/status", h.ToggleStaffStatus)
		})

		r.Get("/stats", h.PublicStats)
	})

	return r
}

func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ready := map[string]any{"checked_at": time.Now().UTC().Format(time.RFC3339)}
	if err := h.svc.Store().Ping(r.Context()); err != nil {
		ready["status"] = "degraded"
		ready["database"] = map[string]any{"ok": false, "error": err.Error()}
		util.WriteJSON(w, http.StatusServiceUnavailable, ready)
		return
	}
	ready["status"] = "ready"
	ready["database"] = map[string]any{"ok": true}
	util.WriteJSON(w, http.StatusOK, ready)
}

func (h *Handlers) ipLimit(route string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return middleware.RateLimit(h.limiter, route, limit, window, h.cfg.TrustProxy)
}

// caller describes the request's identity for the service layer.
func (h *Handlers) caller(r *http.Request) service.Caller {
	c := service.Caller{IP: middleware.ClientIP(r, h.cfg.TrustProxy), UserAgent: r.UserAgent()}
	if u, ok := middleware.User(r.Context()); ok {
		c.UserID, c.Role = u.ID, u.Role
	}
	if s, ok := middleware.Session(r.Context()); ok {
		c.SessionID = s.ID
	}
	return c
}

// fail writes err. Service errors carry their own status and message;
// anything else is logged and hidden behind a 500.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	rid := middleware.RequestID(r.Context())
	if e, ok := service.AsError(err); ok {
		util.WriteError(w, e.Status, util.CodeForStatus(e.Status), e.Message, rid)
		return
	}
	h.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err, "request_id", rid)
	util.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", rid)
}

func (h *Handlers) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	util.WriteError(w, http.StatusBadRequest, "bad_request", msg, middleware.RequestID(r.Context()))
}

// decode reads a JSON body into v. An empty body leaves v zero so field
// validation reports what is missing.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	h.badRequest(w, r, "Invalid JSON body")
	return false
}

func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(w, r, "Invalid id")
		return 0, false
	}
	return id, true
}

func pageFrom(r *http.Request, def, max int) service.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return service.NewPage(page, limit, def, max)
}

func queryBool(r *http.Request, key string) bool {
	switch strings.ToLower(r.URL.Query().Get(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
