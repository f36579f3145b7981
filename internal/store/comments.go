package store

import (
	"context"
	"database/sql"

	"civicconnect/internal/models"
)

const commentSelect = `SELECT c.id,c.issue_id,c.user_id,c.content,c.is_anonymous,c.created_at,c.updated_at,u.first_name,u.last_name,u.profile_image FROM comments c JOIN users u ON u.id=c.user_id`

func scanComment(row rowScanner) (models.Comment, error) {
	var c models.Comment
	var image sql.NullString
	err := row.Scan(&c.ID, &c.IssueID, &c.UserID, &c.Content, &c.IsAnonymous, &c.CreatedAt, &c.UpdatedAt,
		&c.AuthorFirstName, &c.AuthorLastName, &image)
	if err != nil {
		return models.Comment{}, classify(err)
	}
	c.AuthorImage = image.String
	return c, nil
}

func (s *Store) CreateComment(ctx context.Context, c models.Comment) (models.Comment, error) {
	ts := now()
	id, err := s.insert(ctx, s.db,
		`INSERT INTO comments(issue_id,user_id,content,is_anonymous,created_at,updated_at) VALUES(?,?,?,?,?,?)`,
		c.IssueID, c.UserID, c.Content, c.IsAnonymous, ts, ts,
	)
	if err != nil {
		return models.Comment{}, err
	}
	return s.GetComment(ctx, id)
}

func (s *Store) GetComment(ctx context.Context, id int64) (models.Comment, error) {
	return scanComment(s.db.QueryRowContext(ctx, s.q(commentSelect+` WHERE c.id=?`), id))
}

func (s *Store) ListComments(ctx context.Context, q models.CommentQuery) ([]models.Comment, int, error) {
	total, err := s.count(ctx, `SELECT COUNT(*) FROM comments WHERE issue_id=?`, q.IssueID)
	if err != nil {
		return nil, 0, err
	}
	dir := "DESC"
	if q.Asc {
		dir = "ASC"
	}
	rows, err := s.db.QueryContext(ctx,
		s.q(commentSelect+` WHERE c.issue_id=? ORDER BY c.created_at `+dir+`, c.id `+dir+` LIMIT ? OFFSET ?`),
		q.IssueID, q.Limit, q.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]models.Comment, 0, q.Limit)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (s *Store) UpdateCommentContent(ctx context.Context, id int64, content string) error {
	n, err := s.exec(ctx, `UPDATE comments SET content=?, updated_at=? WHERE id=?`, content, now(), id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	n, err := s.exec(ctx, `DELETE FROM comments WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
