package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"civicconnect/internal/audit"
	"civicconnect/internal/models"
	"civicconnect/internal/store"
)

const (
	commentMinLen = 2
	commentMaxLen = 5000
)

type CommentInput struct {
	Content     string `json:"content"`
	IsAnonymous bool   `json:"is_anonymous"`
}

func checkCommentContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	n := utf8.RuneCountInString(content)
	switch {
	case n == 0:
		return "", badRequest("Comment content is required")
	case n < commentMinLen:
		return "", badRequest("Comment must be at least 2 characters long")
	case n > commentMaxLen:
		return "", badRequest("Comment cannot exceed 5000 characters")
	}
	return content, nil
}

// AddComment posts a comment on an issue and tells the issue's owner about
// it, unless the owner wrote it.
func (s *Service) AddComment(ctx context.Context, c Caller, issueID int64, in CommentInput) (CommentView, error) {
	content, err := checkCommentContent(in.Content)
	if err != nil {
		return CommentView{}, err
	}
	it, err := s.loadIssue(ctx, issueID)
	if err != nil {
		return CommentView{}, err
	}
	cm, err := s.st.CreateComment(ctx, models.Comment{
		IssueID:     issueID,
		UserID:      c.UserID,
		Content:     content,
		IsAnonymous: in.IsAnonymous,
	})
	if err != nil {
		return CommentView{}, err
	}
	if _, err := s.st.RecountComments(ctx, issueID); err != nil {
		return CommentView{}, err
	}
	if !OwnsResource(c.UserID, it.UserID) {
		who := anonymousName
		if !cm.IsAnonymous {
			who = strings.TrimSpace(cm.AuthorFirstName + " " + cm.AuthorLastName)
		}
		s.notifier.CommentAdded(it.UserID, it.ID, it.Title, who)
	}
	s.record(ctx, c, audit.CommentAdded, "comments", cm.ID, nil, map[string]any{
		"issue_id": issueID, "content": cm.Content, "is_anonymous": cm.IsAnonymous,
	})
	return s.commentView(cm, c.UserID), nil
}

// ListComments pages through an issue's comments, newest first unless asc.
func (s *Service) ListComments(ctx context.Context, c Caller, issueID int64, asc bool, p Page) ([]CommentView, Pagination, error) {
	if _, err := s.loadIssue(ctx, issueID); err != nil {
		return nil, Pagination{}, err
	}
	items, total, err := s.st.ListComments(ctx, models.CommentQuery{
		IssueID: issueID,
		Asc:     asc,
		Limit:   p.Limit,
		Offset:  p.Offset,
	})
	if err != nil {
		return nil, Pagination{}, err
	}
	out := make([]CommentView, 0, len(items))
	for _, cm := range items {
		out = append(out, s.commentView(cm, c.UserID))
	}
	return out, newPagination(p, total), nil
}

func (s *Service) GetComment(ctx context.Context, c Caller, id int64) (CommentView, error) {
	cm, err := s.loadComment(ctx, id)
	if err != nil {
		return CommentView{}, err
	}
	return s.commentView(cm, c.UserID), nil
}

func (s *Service) UpdateComment(ctx context.Context, c Caller, id int64, content string) (CommentView, error) {
	cm, err := s.loadComment(ctx, id)
	if err != nil {
		return CommentView{}, err
	}
	if !OwnsResource(c.UserID, cm.UserID) {
		return CommentView{}, forbidden("Unauthorized: Cannot update other user's comments")
	}
	content, err = checkCommentContent(content)
	if err != nil {
		return CommentView{}, err
	}
	if err := s.st.UpdateCommentContent(ctx, id, content); err != nil {
		return CommentView{}, err
	}
	after, err := s.st.GetComment(ctx, id)
	if err != nil {
		return CommentView{}, err
	}
	s.record(ctx, c, audit.CommentUpdated, "comments", id,
		map[string]string{"content": cm.Content}, map[string]string{"content": after.Content})
	return s.commentView(after, c.UserID), nil
}

func (s *Service) DeleteComment(ctx context.Context, c Caller, id int64) error {
	cm, err := s.loadComment(ctx, id)
	if err != nil {
		return err
	}
	if !OwnsResource(c.UserID, cm.UserID) {
		return forbidden("Unauthorized: Cannot delete other user's comments")
	}
	if err := s.st.DeleteComment(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("Comment not found")
		}
		return err
	}
	if _, err := s.st.RecountComments(ctx, cm.IssueID); err != nil {
		return err
	}
	s.record(ctx, c, audit.CommentDeleted, "comments", id,
		map[string]any{"issue_id": cm.IssueID, "content": cm.Content}, nil)
	return nil
}

func (s *Service) loadComment(ctx context.Context, id int64) (models.Comment, error) {
	cm, err := s.st.GetComment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Comment{}, notFound("Comment not found")
	}
	return cm, err
}
