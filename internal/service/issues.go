package service

import (
	"context"
	"errors"
	"strings"

	"civicconnect/internal/audit"
	"civicconnect/internal/models"
	"civicconnect/internal/store"
)

type IssueInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Location    string   `json:"location"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Priority    string   `json:"priority"`
	IsAnonymous bool     `json:"is_anonymous"`
	// Status is accepted for compatibility and ignored; new issues always
	// start in the initial status.
	Status string `json:"status"`
}

// CreateIssue files a new report for the caller.
func (s *Service) CreateIssue(ctx context.Context, c Caller, in IssueInput) (IssueView, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"title", in.Title}, {"description", in.Description}, {"category", in.Category},
	} {
		if f.v == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return IssueView{}, badRequest("Missing required fields: %s", strings.Join(missing, ", "))
	}
	if !validTitle(in.Title) {
		return IssueView{}, badRequest("Title must be between 5 and 255 characters")
	}
	if !validDescription(in.Description) {
		return IssueView{}, badRequest("Description must be at least 10 characters long")
	}
	if !s.validCategory(in.Category) {
		return IssueView{}, badRequest("Invalid category value")
	}
	if in.Priority == "" {
		in.Priority = "medium"
	}
	if !validPriority(in.Priority) {
		return IssueView{}, badRequest("Invalid priority value")
	}
	if !validCoordinates(in.Latitude, in.Longitude) {
		return IssueView{}, badRequest("Invalid coordinates")
	}

	it, err := s.st.CreateIssue(ctx, models.Issue{
		UserID:      c.UserID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Location:    strings.TrimSpace(in.Location),
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Priority:    in.Priority,
		Status:      s.cfg.InitialIssueStatus(),
		IsAnonymous: in.IsAnonymous,
	})
	if err != nil {
		return IssueView{}, err
	}
	s.record(ctx, c, audit.IssueCreated, "issues", it.ID, nil, issueSnapshot(it))
	return s.issueView(it, c.UserID, false), nil
}

func (s *Service) GetIssue(ctx context.Context, c Caller, id int64) (IssueView, error) {
	it, err := s.loadIssue(ctx, id)
	if err != nil {
		return IssueView{}, err
	}
	upvoted := false
	if c.Authenticated() {
		if upvoted, err = s.st.HasUpvoted(ctx, id, c.UserID); err != nil {
			return IssueView{}, err
		}
	}
	return s.issueView(it, c.UserID, upvoted), nil
}

type IssueFilter struct {
	Category  string
	Status    string
	Priority  string
	Search    string
	SortBy    string
	SortOrder string
}

// ListIssues returns one page of issues matching f. Unknown sort columns
// fall back to created_at and any order other than ASC means DESC.
func (s *Service) ListIssues(ctx context.Context, c Caller, f IssueFilter, p Page) ([]IssueView, Pagination, error) {
	if f.Priority != "" && !validPriority(f.Priority) {
		return nil, Pagination{}, badRequest("Invalid priority value")
	}
	if f.Status != "" && !contains(s.cfg.IssueStatuses, f.Status) {
		return nil, Pagination{}, badRequest("Invalid status value")
	}
	order := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		order = "ASC"
	}
	items, total, err := s.st.ListIssues(ctx, models.IssueQuery{
		Category: strings.TrimSpace(f.Category),
		Status:   f.Status,
		Priority: f.Priority,
		Search:   strings.TrimSpace(f.Search),
		SortBy:   f.SortBy,
		Order:    order,
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
	if err != nil {
		return nil, Pagination{}, err
	}
	views, err := s.issueViews(ctx, c, items)
	if err != nil {
		return nil, Pagination{}, err
	}
	return views, newPagination(p, total), nil
}

type IssuePatch struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Location    *string  `json:"location"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Priority    *string  `json:"priority"`
	Status      *string  `json:"status"`
	IsAnonymous *bool    `json:"is_anonymous"`
}

// UpdateIssue applies a partial update. Owners may edit their report;
// staff and admins may edit any report and are the only ones who may move
// its status. A status change made by someone else notifies the owner.
func (s *Service) UpdateIssue(ctx context.Context, c Caller, id int64, in IssuePatch) (IssueView, error) {
	before, err := s.loadIssue(ctx, id)
	if err != nil {
		return IssueView{}, err
	}
	if !OwnsResource(c.UserID, before.UserID) && !c.IsStaff() {
		return IssueView{}, forbidden("Unauthorized: Cannot update other user's issues")
	}

	upd := store.IssueUpdate{
		Title:       trimPtr(in.Title),
		Description: trimPtr(in.Description),
		Category:    trimPtr(in.Category),
		Location:    trimPtr(in.Location),
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Priority:    trimPtr(in.Priority),
		Status:      trimPtr(in.Status),
		IsAnonymous: in.IsAnonymous,
	}
	if upd.Empty() {
		return IssueView{}, badRequest("No fields to update")
	}
	if upd.Title != nil && !validTitle(*upd.Title) {
		return IssueView{}, badRequest("Title must be between 5 and 255 characters")
	}
	if upd.Description != nil && !validDescription(*upd.Description) {
		return IssueView{}, badRequest("Description must be at least 10 characters long")
	}
	if upd.Category != nil && !s.validCategory(*upd.Category) {
		return IssueView{}, badRequest("Invalid category value")
	}
	if upd.Priority != nil && !validPriority(*upd.Priority) {
		return IssueView{}, badRequest("Invalid priority value")
	}
	if !validCoordinates(upd.Latitude, upd.Longitude) {
		return IssueView{}, badRequest("Invalid coordinates")
	}
	if upd.Status != nil {
		if !contains(s.cfg.IssueStatuses, *upd.Status) {
			return IssueView{}, badRequest("Invalid status value")
		}
		if !c.IsStaff() {
			return IssueView{}, forbidden("Unauthorized: Only staff can change issue status")
		}
	}

	if err := s.st.UpdateIssue(ctx, id, upd); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return IssueView{}, notFound("Issue not found")
		}
		return IssueView{}, err
	}
	after, err := s.st.GetIssue(ctx, id)
	if err != nil {
		return IssueView{}, err
	}
	if after.Status != before.Status && !OwnsResource(c.UserID, after.UserID) {
		s.notifier.StatusChanged(after.UserID, after.ID, after.Title, before.Status, after.Status)
	}
	s.record(ctx, c, audit.IssueUpdated, "issues", id, issueSnapshot(before), issueSnapshot(after))

	upvoted, err := s.st.HasUpvoted(ctx, id, c.UserID)
	if err != nil {
		return IssueView{}, err
	}
	return s.issueView(after, c.UserID, upvoted), nil
}

// DeleteIssue removes an issue with its upvotes, comments and notifications.
func (s *Service) DeleteIssue(ctx context.Context, c Caller, id int64) error {
	it, err := s.loadIssue(ctx, id)
	if err != nil {
		return err
	}
	if !OwnsResource(c.UserID, it.UserID) && !c.IsStaff() {
		return forbidden("Unauthorized: Cannot delete other user's issues")
	}
	if err := s.st.DeleteIssue(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("Issue not found")
		}
		return err
	}
	s.record(ctx, c, audit.IssueDeleted, "issues", id, issueSnapshot(it), nil)
	return nil
}

// UploadIssueImage is kept on the route table; binary uploads are not
// handled by this service.
func (s *Service) UploadIssueImage(ctx context.Context, c Caller, id int64) error {
	if _, err := s.loadIssue(ctx, id); err != nil {
		return err
	}
	return notImplemented("File uploads are not supported")
}

func (s *Service) loadIssue(ctx context.Context, id int64) (models.Issue, error) {
	it, err := s.st.GetIssue(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Issue{}, notFound("Issue not found")
	}
	return it, err
}

// issueViews renders a page of issues, marking the ones the caller upvoted
// with a single lookup.
func (s *Service) issueViews(ctx context.Context, c Caller, items []models.Issue) ([]IssueView, error) {
	upvoted := map[int64]bool{}
	if c.Authenticated() && len(items) > 0 {
		ids := make([]int64, len(items))
		for i, it := range items {
			ids[i] = it.ID
		}
		var err error
		if upvoted, err = s.st.UpvotedIssueIDs(ctx, c.UserID, ids); err != nil {
			return nil, err
		}
	}
	out := make([]IssueView, 0, len(items))
	for _, it := range items {
		out = append(out, s.issueView(it, c.UserID, upvoted[it.ID]))
	}
	return out, nil
}

func (s *Service) validCategory(cat string) bool {
	if cat == "" {
		return false
	}
	return len(s.cfg.IssueCategories) == 0 || contains(s.cfg.IssueCategories, cat)
}

func issueSnapshot(it models.Issue) map[string]any {
	return map[string]any{
		"title":        it.Title,
		"description":  it.Description,
		"category":     it.Category,
		"location":     it.Location,
		"priority":     it.Priority,
		"status":       it.Status,
		"is_anonymous": it.IsAnonymous,
	}
}
