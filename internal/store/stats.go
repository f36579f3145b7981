package store

import (
	"context"
	"time"

	"civicconnect/internal/models"
)

func (s *Store) groupCounts(ctx context.Context, query string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

func (s *Store) AdminStats(ctx context.Context, since time.Time) (models.AdminStats, error) {
	var st models.AdminStats
	var err error
	if st.UsersByRole, err = s.groupCounts(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`); err != nil {
		return st, err
	}
	if st.IssuesByStatus, err = s.groupCounts(ctx, `SELECT status, COUNT(*) FROM issues GROUP BY status`); err != nil {
		return st, err
	}
	for _, n := range st.UsersByRole {
		st.UsersTotal += n
	}
	for _, n := range st.IssuesByStatus {
		st.IssuesTotal += n
	}
	st.RecentActivityCount, err = s.CountAuditSince(ctx, since)
	return st, err
}

// PublicStats returns the issue total, user total and the number of issues
// in the resolved status.
func (s *Store) PublicStats(ctx context.Context, resolvedStatus string) (issues, users, resolved int, err error) {
	if issues, err = s.count(ctx, `SELECT COUNT(*) FROM issues`); err != nil {
		return
	}
	if users, err = s.count(ctx, `SELECT COUNT(*) FROM users`); err != nil {
		return
	}
	resolved, err = s.count(ctx, `SELECT COUNT(*) FROM issues WHERE status=?`, resolvedStatus)
	return
}
