package service

import (
	"context"
	"errors"
	"strings"

	"civicconnect/internal/audit"
	"civicconnect/internal/store"
)

// Upvote records the caller's support for an issue and returns the new
// count. The (issue, user) unique index rejects repeats.
func (s *Service) Upvote(ctx context.Context, c Caller, issueID int64) (int, error) {
	if _, err := s.loadIssue(ctx, issueID); err != nil {
		return 0, err
	}
	if err := s.st.AddUpvote(ctx, issueID, c.UserID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return 0, conflict("Already upvoted this issue")
		}
		return 0, err
	}
	n, err := s.st.RecountUpvotes(ctx, issueID)
	if err != nil {
		return 0, err
	}
	s.record(ctx, c, audit.IssueUpvoted, "issues", issueID, nil, map[string]int{"upvote_count": n})
	return n, nil
}

func (s *Service) RemoveUpvote(ctx context.Context, c Caller, issueID int64) (int, error) {
	if _, err := s.loadIssue(ctx, issueID); err != nil {
		return 0, err
	}
	if err := s.st.RemoveUpvote(ctx, issueID, c.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, notFound("Not upvoted yet")
		}
		return 0, err
	}
	n, err := s.st.RecountUpvotes(ctx, issueID)
	if err != nil {
		return 0, err
	}
	s.record(ctx, c, audit.IssueUnupvoted, "issues", issueID, nil, map[string]int{"upvote_count": n})
	return n, nil
}

func (s *Service) ListUpvotes(ctx context.Context, issueID int64, p Page) ([]UpvoteView, Pagination, error) {
	if _, err := s.loadIssue(ctx, issueID); err != nil {
		return nil, Pagination{}, err
	}
	items, total, err := s.st.ListUpvotes(ctx, issueID, p.Limit, p.Offset)
	if err != nil {
		return nil, Pagination{}, err
	}
	out := make([]UpvoteView, 0, len(items))
	for _, v := range items {
		out = append(out, UpvoteView{
			ID:        v.ID,
			IssueID:   v.IssueID,
			UserID:    v.UserID,
			UserName:  strings.TrimSpace(v.FirstName + " " + v.LastName),
			CreatedAt: v.CreatedAt,
		})
	}
	return out, newPagination(p, total), nil
}

func (s *Service) HasUpvoted(ctx context.Context, c Caller, issueID int64) (bool, error) {
	if _, err := s.loadIssue(ctx, issueID); err != nil {
		return false, err
	}
	return s.st.HasUpvoted(ctx, issueID, c.UserID)
}
