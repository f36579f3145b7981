package store

import (
	"context"
	"database/sql"
	"time"

	"civicconnect/internal/models"
)

func (s *Store) InsertAudit(ctx context.Context, e models.AuditEntry) error {
	_, err := s.insert(ctx, s.db,
		`INSERT INTO audit_trail(user_id,action,entity_type,entity_id,old_values,new_values,ip_address,user_agent,created_at) VALUES(?,?,?,?,?,?,?,?,?)`,
		e.UserID, e.Action, e.EntityType, e.EntityID, nullString(e.OldValues), nullString(e.NewValues), nullString(e.IPAddress), nullString(e.UserAgent), now(),
	)
	return err
}

// ListAudit returns audit rows newest first, joined with the acting user.
func (s *Store) ListAudit(ctx context.Context, limit, offset int) ([]models.AuditEntry, int, error) {
	total, err := s.count(ctx, `SELECT COUNT(*) FROM audit_trail`)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT a.id,a.user_id,a.action,a.entity_type,a.entity_id,a.old_values,a.new_values,a.ip_address,a.user_agent,a.created_at,u.email,u.first_name,u.last_name
		 FROM audit_trail a LEFT JOIN users u ON u.id=a.user_id ORDER BY a.created_at DESC, a.id DESC LIMIT ? OFFSET ?`),
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]models.AuditEntry, 0, limit)
	for rows.Next() {
		var e models.AuditEntry
		var userID, entityID sql.NullInt64
		var oldV, newV, ip, ua, email, first, last sql.NullString
		if err := rows.Scan(&e.ID, &userID, &e.Action, &e.EntityType, &entityID, &oldV, &newV, &ip, &ua, &e.CreatedAt, &email, &first, &last); err != nil {
			return nil, 0, err
		}
		e.UserID = int64Ptr(userID)
		e.EntityID = int64Ptr(entityID)
		e.OldValues, e.NewValues = oldV.String, newV.String
		e.IPAddress, e.UserAgent = ip.String, ua.String
		e.ActorEmail = email.String
		if first.Valid || last.Valid {
			e.ActorName = first.String + " " + last.String
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (s *Store) CountAuditSince(ctx context.Context, since time.Time) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM audit_trail WHERE created_at >= ?`, since)
}
