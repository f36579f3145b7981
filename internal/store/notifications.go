package store

import (
	"context"
	"database/sql"

	"civicconnect/internal/models"
)

func (s *Store) CreateNotification(ctx context.Context, n models.Notification) (int64, error) {
	return s.insert(ctx, s.db,
		`INSERT INTO notifications(user_id,issue_id,type,title,message,old_status,new_status,is_read,created_at) VALUES(?,?,?,?,?,?,?,?,?)`,
		n.UserID, n.IssueID, n.Type, n.Title, n.Message, nullString(n.OldStatus), nullString(n.NewStatus), false, now(),
	)
}

func (s *Store) ListNotifications(ctx context.Context, q models.NotificationQuery) ([]models.Notification, int, error) {
	where := ` WHERE n.user_id=?`
	args := []any{q.UserID}
	if q.UnreadOnly {
		where += ` AND n.is_read=?`
		args = append(args, false)
	}
	total, err := s.count(ctx, `SELECT COUNT(*) FROM notifications n`+where, args...)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT n.id,n.user_id,n.issue_id,n.type,n.title,n.message,n.old_status,n.new_status,n.is_read,n.created_at,i.title FROM notifications n LEFT JOIN issues i ON i.id=n.issue_id`+where+` ORDER BY n.created_at DESC, n.id DESC LIMIT ? OFFSET ?`),
		append(args, q.Limit, q.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]models.Notification, 0, q.Limit)
	for rows.Next() {
		var n models.Notification
		var issueID sql.NullInt64
		var oldStatus, newStatus, issueTitle sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &issueID, &n.Type, &n.Title, &n.Message, &oldStatus, &newStatus, &n.IsRead, &n.CreatedAt, &issueTitle); err != nil {
			return nil, 0, err
		}
		n.IssueID = int64Ptr(issueID)
		n.OldStatus = oldStatus.String
		n.NewStatus = newStatus.String
		n.IssueTitle = issueTitle.String
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID int64) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id=? AND is_read=?`, userID, false)
}

// NotificationOwner returns the recipient of a notification.
func (s *Store) NotificationOwner(ctx context.Context, id int64) (int64, error) {
	var owner int64
	if err := s.db.QueryRowContext(ctx, s.q(`SELECT user_id FROM notifications WHERE id=?`), id).Scan(&owner); err != nil {
		return 0, classify(err)
	}
	return owner, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id int64) error {
	_, err := s.exec(ctx, `UPDATE notifications SET is_read=? WHERE id=?`, true, id)
	return err
}

// MarkAllNotificationsRead returns how many notifications changed.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	return s.exec(ctx, `UPDATE notifications SET is_read=? WHERE user_id=? AND is_read=?`, true, userID, false)
}
