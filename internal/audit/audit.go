package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"civicconnect/internal/dispatch"
	"civicconnect/internal/models"
)

const (
	UserCreated            = "USER_CREATED"
	EmailVerified          = "EMAIL_VERIFIED"
	OTPResent              = "OTP_RESENT"
	UserLogin              = "USER_LOGIN"
	UserLogout             = "USER_LOGOUT"
	UserUpdated            = "USER_UPDATED"
	PasswordResetRequested = "PASSWORD_RESET_REQUESTED"
	PasswordResetCompleted = "PASSWORD_RESET_COMPLETED"
	IssueCreated           = "ISSUE_CREATED"
	IssueUpdated           = "ISSUE_UPDATED"
	IssueDeleted           = "ISSUE_DELETED"
	CommentAdded           = "COMMENT_ADDED"
	CommentUpdated         = "COMMENT_UPDATED"
	CommentDeleted         = "COMMENT_DELETED"
	IssueUpvoted           = "ISSUE_UPVOTED"
	IssueUnupvoted         = "ISSUE_UNUPVOTED"
	FileDeleted            = "FILE_DELETED"
	RoleUpdate             = "ROLE_UPDATE"
	StaffCreate            = "STAFF_CREATE"
	StaffUpdate            = "STAFF_UPDATE"
	StaffStatusToggle      = "STAFF_STATUS_TOGGLE"
	NotificationsRead      = "NOTIFICATIONS_READ"
)

type Entry struct {
	UserID     int64
	Action     string
	EntityType string
	EntityID   int64
	Old        any
	New        any
	IP         string
	UserAgent  string
}

type Submitter interface {
	Submit(name string, fn dispatch.Task) bool
}

type Store interface {
	InsertAudit(ctx context.Context, e models.AuditEntry) error
}

// Recorder appends audit rows asynchronously. Failures are logged and never
// reach the caller.
type Recorder struct {
	q   Submitter
	st  Store
	log *slog.Logger
}

func NewRecorder(q Submitter, st Store, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{q: q, st: st, log: log}
}

func (r *Recorder) Record(ctx context.Context, e Entry) {
	row := models.AuditEntry{
		Action:     e.Action,
		EntityType: e.EntityType,
		IPAddress:  e.IP,
		UserAgent:  truncate(e.UserAgent, 500),
	}
	if e.UserID != 0 {
		id := e.UserID
		row.UserID = &id
	}
	if e.EntityID != 0 {
		id := e.EntityID
		row.EntityID = &id
	}
	row.OldValues = r.encode(ctx, e.Action, e.Old)
	row.NewValues = r.encode(ctx, e.Action, e.New)

	r.q.Submit("audit."+e.Action, func(ctx context.Context) error {
		if err := r.st.InsertAudit(ctx, row); err != nil {
			return fmt.Errorf("audit %s: %w", row.Action, err)
		}
		return nil
	})
}

func (r *Recorder) encode(ctx context.Context, action string, v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		r.log.WarnContext(ctx, "audit snapshot not encodable", "action", action, "error", err)
		return ""
	}
	return string(b)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
