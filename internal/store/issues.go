package store

import (
	"context"
	"database/sql"
	"strings"

	"civicconnect/internal/models"
)

const issueSelect = `SELECT i.id,i.user_id,i.title,i.description,i.category,i.location,i.latitude,i.longitude,i.priority,i.status,i.is_anonymous,i.image_path,i.upvote_count,i.comment_count,i.created_at,i.updated_at,u.first_name,u.last_name,u.profile_image FROM issues i JOIN users u ON u.id=i.user_id`

func scanIssue(row rowScanner) (models.Issue, error) {
	var it models.Issue
	var location, image, authorImage sql.NullString
	var lat, lng sql.NullFloat64
	err := row.Scan(&it.ID, &it.UserID, &it.Title, &it.Description, &it.Category, &location, &lat, &lng, &it.Priority, &it.Status,
		&it.IsAnonymous, &image, &it.UpvoteCount, &it.CommentCount, &it.CreatedAt, &it.UpdatedAt,
		&it.AuthorFirstName, &it.AuthorLastName, &authorImage)
	if err != nil {
		return models.Issue{}, classify(err)
	}
	it.Location = location.String
	it.ImagePath = image.String
	it.AuthorImage = authorImage.String
	it.Latitude = floatPtr(lat)
	it.Longitude = floatPtr(lng)
	return it, nil
}

func (s *Store) CreateIssue(ctx context.Context, it models.Issue) (models.Issue, error) {
	ts := now()
	it.CreatedAt, it.UpdatedAt = ts, ts
	id, err := s.insert(ctx, s.db,
		`INSERT INTO issues(user_id,title,description,category,location,latitude,longitude,priority,status,is_anonymous,image_path,upvote_count,comment_count,created_at,updated_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,0,0,?,?)`,
		it.UserID, it.Title, it.Description, it.Category, nullString(it.Location), it.Latitude, it.Longitude, it.Priority, it.Status,
		it.IsAnonymous, nullString(it.ImagePath), it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return models.Issue{}, err
	}
	return s.GetIssue(ctx, id)
}

func (s *Store) GetIssue(ctx context.Context, id int64) (models.Issue, error) {
	return scanIssue(s.db.QueryRowContext(ctx, s.q(issueSelect+` WHERE i.id=?`), id))
}

// likePattern lowercases and escapes a search term for LIKE ... ESCAPE '!',
// which every supported driver reads the same way.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

var issueSortColumns = map[string]string{
	"created_at":   "i.created_at",
	"upvote_count": "i.upvote_count",
	"title":        "i.title",
	"priority":     "CASE i.priority WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END",
}

func issueFilter(q models.IssueQuery) (string, []any) {
	var where []string
	var args []any
	if q.Category != "" {
		where = append(where, "i.category=?")
		args = append(args, q.Category)
	}
	if q.Status != "" {
		where = append(where, "i.status=?")
		args = append(args, q.Status)
	}
	if q.Priority != "" {
		where = append(where, "i.priority=?")
		args = append(args, q.Priority)
	}
	if q.Search != "" {
		like := likePattern(q.Search)
		where = append(where, "(LOWER(i.title) LIKE ? ESCAPE '!' OR LOWER(i.description) LIKE ? ESCAPE '!')")
		args = append(args, like, like)
	}
	if q.OwnerID != 0 {
		where = append(where, "i.user_id=?")
		args = append(args, q.OwnerID)
		if !q.IncludeAnonymous {
			where = append(where, "i.is_anonymous=?")
			args = append(args, false)
		}
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// ListIssues returns one page of issues and the total number of matches.
// Unknown sort keys fall back to creation time; ties break on id.
func (s *Store) ListIssues(ctx context.Context, q models.IssueQuery) ([]models.Issue, int, error) {
	where, args := issueFilter(q)
	total, err := s.count(ctx, `SELECT COUNT(*) FROM issues i`+where, args...)
	if err != nil {
		return nil, 0, err
	}
	col, ok := issueSortColumns[q.SortBy]
	if !ok {
		col = issueSortColumns["created_at"]
	}
	dir := "DESC"
	if strings.EqualFold(q.Order, "asc") {
		dir = "ASC"
	}
	rows, err := s.db.QueryContext(ctx,
		s.q(issueSelect+where+` ORDER BY `+col+` `+dir+`, i.id `+dir+` LIMIT ? OFFSET ?`),
		append(args, q.Limit, q.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]models.Issue, 0, q.Limit)
	for rows.Next() {
		it, err := scanIssue(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, it)
	}
	return out, total, rows.Err()
}

// IssueUpdate carries optional changes; nil fields are left alone.
type IssueUpdate struct {
	Title       *string
	Description *string
	Category    *string
	Location    *string
	Latitude    *float64
	Longitude   *float64
	Priority    *string
	Status      *string
	IsAnonymous *bool
}

func (u IssueUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Category == nil && u.Location == nil &&
		u.Latitude == nil && u.Longitude == nil && u.Priority == nil && u.Status == nil && u.IsAnonymous == nil
}

func (s *Store) UpdateIssue(ctx context.Context, id int64, upd IssueUpdate) error {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if upd.Title != nil {
		set("title", *upd.Title)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.Category != nil {
		set("category", *upd.Category)
	}
	if upd.Location != nil {
		set("location", nullString(*upd.Location))
	}
	if upd.Latitude != nil {
		set("latitude", *upd.Latitude)
	}
	if upd.Longitude != nil {
		set("longitude", *upd.Longitude)
	}
	if upd.Priority != nil {
		set("priority", *upd.Priority)
	}
	if upd.Status != nil {
		set("status", *upd.Status)
	}
	if upd.IsAnonymous != nil {
		set("is_anonymous", *upd.IsAnonymous)
	}
	if len(sets) == 0 {
		return nil
	}
	set("updated_at", now())
	args = append(args, id)
	n, err := s.exec(ctx, `UPDATE issues SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteIssue removes an issue together with its upvotes, comments and
// notifications in one transaction.
func (s *Store) DeleteIssue(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM upvotes WHERE issue_id=?`,
		`DELETE FROM comments WHERE issue_id=?`,
		`DELETE FROM notifications WHERE issue_id=?`,
	} {
		if _, err := tx.ExecContext(ctx, s.q(stmt), id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM issues WHERE id=?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// RecountUpvotes recomputes the cached upvote counter from the upvotes table.
func (s *Store) RecountUpvotes(ctx context.Context, issueID int64) (int, error) {
	if _, err := s.exec(ctx, `UPDATE issues SET upvote_count=(SELECT COUNT(*) FROM upvotes WHERE issue_id=?) WHERE id=?`, issueID, issueID); err != nil {
		return 0, err
	}
	return s.count(ctx, `SELECT upvote_count FROM issues WHERE id=?`, issueID)
}

// RecountComments recomputes the cached comment counter from the comments table.
func (s *Store) RecountComments(ctx context.Context, issueID int64) (int, error) {
	if _, err := s.exec(ctx, `UPDATE issues SET comment_count=(SELECT COUNT(*) FROM comments WHERE issue_id=?) WHERE id=?`, issueID, issueID); err != nil {
		return 0, err
	}
	return s.count(ctx, `SELECT comment_count FROM issues WHERE id=?`, issueID)
}
