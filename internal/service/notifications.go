package service

import (
	"context"
	"errors"

	"civicconnect/internal/audit"
	"civicconnect/internal/models"
	"civicconnect/internal/store"
)

func (s *Service) ListNotifications(ctx context.Context, c Caller, unreadOnly bool, p Page) ([]NotificationView, Pagination, error) {
	items, total, err := s.st.ListNotifications(ctx, models.NotificationQuery{
		UserID:     c.UserID,
		UnreadOnly: unreadOnly,
		Limit:      p.Limit,
		Offset:     p.Offset,
	})
	if err != nil {
		return nil, Pagination{}, err
	}
	out := make([]NotificationView, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationView{
			ID:         n.ID,
			IssueID:    n.IssueID,
			IssueTitle: n.IssueTitle,
			Type:       n.Type,
			Title:      n.Title,
			Message:    n.Message,
			OldStatus:  n.OldStatus,
			NewStatus:  n.NewStatus,
			IsRead:     n.IsRead,
			CreatedAt:  n.CreatedAt,
		})
	}
	return out, newPagination(p, total), nil
}

func (s *Service) UnreadCount(ctx context.Context, c Caller) (int, error) {
	return s.st.CountUnreadNotifications(ctx, c.UserID)
}

func (s *Service) MarkNotificationRead(ctx context.Context, c Caller, id int64) error {
	owner, err := s.st.NotificationOwner(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("Notification not found")
	}
	if err != nil {
		return err
	}
	if !OwnsResource(c.UserID, owner) {
		return forbidden("Unauthorized")
	}
	if err := s.st.MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	s.record(ctx, c, audit.NotificationsRead, "notifications", id, nil, map[string]bool{"is_read": true})
	return nil
}

// MarkAllNotificationsRead returns how many notifications changed.
func (s *Service) MarkAllNotificationsRead(ctx context.Context, c Caller) (int64, error) {
	n, err := s.st.MarkAllNotificationsRead(ctx, c.UserID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.record(ctx, c, audit.NotificationsRead, "notifications", 0, nil, map[string]int64{"marked": n})
	}
	return n, nil
}
