package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"civicconnect/internal/audit"
	"civicconnect/internal/auth"
	"civicconnect/internal/config"
	"civicconnect/internal/dispatch"
	"civicconnect/internal/models"
	"civicconnect/internal/notify"
	"civicconnect/internal/rate"
	"civicconnect/internal/store"
)

// SessionStore is the server-side session state behind cookies and bearer
// tokens.
type SessionStore interface {
	CreateSession(ctx context.Context, sess models.Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (models.Session, error)
	TouchSession(ctx context.Context, id string, idleExpiry time.Time) error
	RevokeSession(ctx context.Context, id string) error
	RevokeUserSessions(ctx context.Context, userID int64) error
}

type Submitter interface {
	Submit(name string, fn dispatch.Task) bool
}

type Deps struct {
	Sessions SessionStore
	Limiter  rate.Counter
	Queue    Submitter
	Audit    *audit.Recorder
	Notifier *notify.Notifier
	Codes    notify.CodeSender
	Signer   *auth.TokenSigner
	Logger   *slog.Logger
}

type Service struct {
	cfg      config.Config
	st       *store.Store
	sessions SessionStore
	limiter  rate.Counter
	queue    Submitter
	audit    *audit.Recorder
	notifier *notify.Notifier
	codes    notify.CodeSender
	signer   *auth.TokenSigner
	log      *slog.Logger
}

// Caller describes who is making a request. UserID is zero for anonymous
// callers.
type Caller struct {
	UserID    int64
	Role      string
	SessionID string
	IP        string
	UserAgent string
}

func (c Caller) Authenticated() bool { return c.UserID != 0 }

func (c Caller) IsStaff() bool {
	return c.Role == models.RoleStaff || c.Role == models.RoleAdmin
}

func New(cfg config.Config, st *store.Store, d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Sessions == nil {
		d.Sessions = st
	}
	if d.Limiter == nil {
		d.Limiter = rate.NewLimiter()
	}
	if d.Queue == nil {
		d.Queue = inline{log: d.Logger}
	}
	if d.Audit == nil {
		d.Audit = audit.NewRecorder(d.Queue, st, d.Logger)
	}
	if d.Notifier == nil {
		d.Notifier = notify.NewNotifier(d.Queue, st, d.Logger)
	}
	if d.Codes == nil {
		d.Codes = notify.NewLogSender(d.Logger)
	}
	if d.Signer == nil {
		d.Signer = auth.NewTokenSigner(cfg.SessionSecret, "civicconnect")
	}
	return &Service{
		cfg:      cfg,
		st:       st,
		sessions: d.Sessions,
		limiter:  d.Limiter,
		queue:    d.Queue,
		audit:    d.Audit,
		notifier: d.Notifier,
		codes:    d.Codes,
		signer:   d.Signer,
		log:      d.Logger,
	}
}

func (s *Service) Store() *store.Store { return s.st }

func (s *Service) Signer() *auth.TokenSigner { return s.signer }

func (s *Service) record(ctx context.Context, c Caller, action, entityType string, entityID int64, before, after any) {
	s.audit.Record(ctx, audit.Entry{
		UserID:     c.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Old:        before,
		New:        after,
		IP:         c.IP,
		UserAgent:  c.UserAgent,
	})
}

// inline runs tasks on the caller's goroutine. It backs services built
// without a dispatcher, such as in tests.
type inline struct{ log *slog.Logger }

func (i inline) Submit(name string, fn dispatch.Task) bool {
	if err := fn(context.Background()); err != nil {
		i.log.Error("side effect failed", "task", name, "error", err)
	}
	return true
}

func hashUA(ua string) string {
	s := sha256.Sum256([]byte(ua))
	return hex.EncodeToString(s[:])
}
