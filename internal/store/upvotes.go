package store

import (
	"context"
	"strings"

	"civicconnect/internal/models"
)

// AddUpvote inserts the (issue, user) pair. The unique index turns a repeat
// into ErrConflict.
func (s *Store) AddUpvote(ctx context.Context, issueID, userID int64) error {
	_, err := s.insert(ctx, s.db, `INSERT INTO upvotes(issue_id,user_id,created_at) VALUES(?,?,?)`, issueID, userID, now())
	return err
}

func (s *Store) RemoveUpvote(ctx context.Context, issueID, userID int64) error {
	n, err := s.exec(ctx, `DELETE FROM upvotes WHERE issue_id=? AND user_id=?`, issueID, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) HasUpvoted(ctx context.Context, issueID, userID int64) (bool, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM upvotes WHERE issue_id=? AND user_id=?`, issueID, userID)
	return n > 0, err
}

func (s *Store) ListUpvotes(ctx context.Context, issueID int64, limit, offset int) ([]models.Upvote, int, error) {
	total, err := s.count(ctx, `SELECT COUNT(*) FROM upvotes WHERE issue_id=?`, issueID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT v.id,v.issue_id,v.user_id,v.created_at,u.first_name,u.last_name FROM upvotes v JOIN users u ON u.id=v.user_id WHERE v.issue_id=? ORDER BY v.created_at DESC, v.id DESC LIMIT ? OFFSET ?`),
		issueID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]models.Upvote, 0, limit)
	for rows.Next() {
		var v models.Upvote
		if err := rows.Scan(&v.ID, &v.IssueID, &v.UserID, &v.CreatedAt, &v.FirstName, &v.LastName); err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

// UpvotedIssueIDs reports which of issueIDs userID has upvoted.
func (s *Store) UpvotedIssueIDs(ctx context.Context, userID int64, issueIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(issueIDs))
	if userID == 0 || len(issueIDs) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(issueIDs)+1)
	args = append(args, userID)
	for _, id := range issueIDs {
		args = append(args, id)
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(issueIDs)), ",")
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT issue_id FROM upvotes WHERE user_id=? AND issue_id IN (`+marks+`)`), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
