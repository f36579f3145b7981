package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"civicconnect/internal/audit"
	"civicconnect/internal/models"
	"civicconnect/internal/store"
)

const recentActivityWindow = 7 * 24 * time.Hour

func (s *Service) AdminStats(ctx context.Context) (models.AdminStats, error) {
	return s.st.AdminStats(ctx, time.Now().UTC().Add(-recentActivityWindow))
}

func (s *Service) ListUsers(ctx context.Context, search, role string, p Page) ([]UserView, AdminPagination, error) {
	role = strings.TrimSpace(role)
	if role != "" && !validRole(role) {
		return nil, AdminPagination{}, badRequest("Invalid role")
	}
	users, total, err := s.st.ListUsers(ctx, models.UserQuery{
		Search: strings.TrimSpace(search),
		Role:   role,
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		return nil, AdminPagination{}, err
	}
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, s.userView(u, true))
	}
	return out, newAdminPagination(p, total), nil
}

// UpdateUserRole changes a user's role. An admin cannot demote themself,
// so there is always at least the acting admin left.
func (s *Service) UpdateUserRole(ctx context.Context, c Caller, id int64, role string) (UserView, error) {
	role = strings.TrimSpace(role)
	if !validRole(role) {
		return UserView{}, badRequest("Invalid role")
	}
	if id == c.UserID && role != models.RoleAdmin {
		return UserView{}, badRequest("Cannot change your own role")
	}
	before, err := s.st.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return UserView{}, notFound("User not found")
	}
	if err != nil {
		return UserView{}, err
	}
	if err := s.st.UpdateUserRole(ctx, id, role); err != nil {
		return UserView{}, err
	}
	after := before
	after.Role = role
	s.record(ctx, c, audit.RoleUpdate, "users", id, map[string]string{"role": before.Role}, map[string]string{"role": role})
	return s.userView(after, true), nil
}

func (s *Service) AuditLogs(ctx context.Context, p Page) ([]models.AuditEntry, AdminPagination, error) {
	entries, total, err := s.st.ListAudit(ctx, p.Limit, p.Offset)
	if err != nil {
		return nil, AdminPagination{}, err
	}
	return entries, newAdminPagination(p, total), nil
}
