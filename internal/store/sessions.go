package store

import (
	"context"
	"database/sql"
	"time"

	"civicconnect/internal/models"
)

func (s *Store) CreateSession(ctx context.Context, sess models.Session) error {
	_, err := s.exec(ctx,
		`INSERT INTO sessions(id,user_id,token_hash,ip_hint,user_agent_hash,expires_at,idle_expires_at,created_at,last_seen_at) VALUES(?,?,?,?,?,?,?,?,?)`,
		sess.ID, sess.UserID, sess.TokenHash, sess.IPHint, sess.UserAgentHash, sess.ExpiresAt, sess.IdleExpiresAt, sess.CreatedAt, sess.LastSeenAt,
	)
	return err
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (models.Session, error) {
	var sess models.Session
	var ipHint, uaHash sql.NullString
	var revoked sql.NullTime
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT id,user_id,token_hash,ip_hint,user_agent_hash,expires_at,idle_expires_at,created_at,last_seen_at,revoked_at FROM sessions WHERE token_hash=?`),
		tokenHash,
	).Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &ipHint, &uaHash, &sess.ExpiresAt, &sess.IdleExpiresAt, &sess.CreatedAt, &sess.LastSeenAt, &revoked)
	if err != nil {
		return models.Session{}, classify(err)
	}
	sess.IPHint = ipHint.String
	sess.UserAgentHash = uaHash.String
	sess.RevokedAt = timePtr(revoked)
	return sess, nil
}

func (s *Store) TouchSession(ctx context.Context, id string, idleExpiry time.Time) error {
	_, err := s.exec(ctx, `UPDATE sessions SET last_seen_at=?, idle_expires_at=? WHERE id=?`, now(), idleExpiry, id)
	return err
}

func (s *Store) RevokeSession(ctx context.Context, id string) error {
	_, err := s.exec(ctx, `UPDATE sessions SET revoked_at=? WHERE id=? AND revoked_at IS NULL`, now(), id)
	return err
}

func (s *Store) RevokeUserSessions(ctx context.Context, userID int64) error {
	_, err := s.exec(ctx, `UPDATE sessions SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL`, now(), userID)
	return err
}
