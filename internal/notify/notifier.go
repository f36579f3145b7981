package notify

import (
	"context"
	"fmt"
	"log/slog"

	"civicconnect/internal/dispatch"
	"civicconnect/internal/models"
)

const (
	TypeStatusChange = "status_change"
	TypeComment      = "comment"
)

type Submitter interface {
	Submit(name string, fn dispatch.Task) bool
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n models.Notification) (int64, error)
}

// Notifier creates in-app notifications off the request path.
type Notifier struct {
	q   Submitter
	st  NotificationStore
	log *slog.Logger
}

func NewNotifier(q Submitter, st NotificationStore, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{q: q, st: st, log: log}
}

func (n *Notifier) StatusChanged(ownerID, issueID int64, issueTitle, oldStatus, newStatus string) {
	id := issueID
	n.enqueue(models.Notification{
		UserID:    ownerID,
		IssueID:   &id,
		Type:      TypeStatusChange,
		Title:     "Issue status updated",
		Message:   fmt.Sprintf("Your issue %q changed from %s to %s.", issueTitle, oldStatus, newStatus),
		OldStatus: oldStatus,
		NewStatus: newStatus,
	})
}

func (n *Notifier) CommentAdded(ownerID, issueID int64, issueTitle, commenter string) {
	id := issueID
	n.enqueue(models.Notification{
		UserID:  ownerID,
		IssueID: &id,
		Type:    TypeComment,
		Title:   "New comment on your issue",
		Message: fmt.Sprintf("%s commented on %q.", commenter, issueTitle),
	})
}

func (n *Notifier) enqueue(msg models.Notification) {
	n.q.Submit("notification."+msg.Type, func(ctx context.Context) error {
		if _, err := n.st.CreateNotification(ctx, msg); err != nil {
			return fmt.Errorf("create notification for user %d: %w", msg.UserID, err)
		}
		return nil
	})
}
