package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"civicconnect/internal/audit"
	"civicconnect/internal/auth"
	"civicconnect/internal/models"
	"civicconnect/internal/store"
)

func (s *Service) ListStaff(ctx context.Context, search string, p Page) ([]UserView, AdminPagination, error) {
	return s.ListUsers(ctx, search, models.RoleStaff, p)
}

type StaffInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// CreateStaff adds a staff account. Admin-created accounts are active and
// verified from the start.
func (s *Service) CreateStaff(ctx context.Context, c Caller, in StaffInput) (UserView, error) {
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.Email == "" || in.FirstName == "" || in.LastName == "" || in.Password == "" {
		return UserView{}, badRequest("Missing required fields: email, first_name, last_name, password")
	}
	if !validEmail(in.Email) {
		return UserView{}, badRequest("Invalid email format")
	}
	if err := s.checkPasswordLength(in.Password); err != nil {
		return UserView{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return UserView{}, err
	}
	verifiedAt := time.Now().UTC()
	u, err := s.st.CreateUser(ctx, models.User{
		Email:           in.Email,
		PasswordHash:    hash,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Phone:           strings.TrimSpace(in.Phone),
		Role:            models.RoleStaff,
		IsActive:        true,
		EmailVerified:   true,
		EmailVerifiedAt: &verifiedAt,
	})
	if errors.Is(err, store.ErrConflict) {
		return UserView{}, conflict("Email already exists")
	}
	if err != nil {
		return UserView{}, err
	}
	s.record(ctx, c, audit.StaffCreate, "users", u.ID, nil, map[string]string{
		"email": u.Email, "first_name": u.FirstName, "last_name": u.LastName, "role": u.Role,
	})
	return s.userView(u, true), nil
}

func (s *Service) GetStaff(ctx context.Context, id int64) (UserView, error) {
	u, err := s.loadStaff(ctx, id)
	if err != nil {
		return UserView{}, err
	}
	return s.userView(u, true), nil
}

type StaffPatch struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Location  *string `json:"location"`
	Bio       *string `json:"bio"`
}

func (s *Service) UpdateStaff(ctx context.Context, c Caller, id int64, in StaffPatch) (UserView, error) {
	before, err := s.loadStaff(ctx, id)
	if err != nil {
		return UserView{}, err
	}
	upd := store.UserUpdate{
		Email:     trimPtr(in.Email),
		FirstName: trimPtr(in.FirstName),
		LastName:  trimPtr(in.LastName),
		Phone:     trimPtr(in.Phone),
		Location:  trimPtr(in.Location),
		Bio:       trimPtr(in.Bio),
	}
	if upd.Empty() {
		return UserView{}, badRequest("No valid fields to update")
	}
	if upd.Email != nil {
		e := normalizeEmail(*upd.Email)
		if !validEmail(e) {
			return UserView{}, badRequest("Invalid email format")
		}
		upd.Email = &e
	}
	if (upd.FirstName != nil && *upd.FirstName == "") || (upd.LastName != nil && *upd.LastName == "") {
		return UserView{}, badRequest("First and last name cannot be empty")
	}
	if err := s.st.UpdateUser(ctx, id, upd); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return UserView{}, conflict("Email already exists")
		}
		return UserView{}, err
	}
	after, err := s.st.GetUserByID(ctx, id)
	if err != nil {
		return UserView{}, err
	}
	s.record(ctx, c, audit.StaffUpdate, "users", id, staffSnapshot(before), staffSnapshot(after))
	return s.userView(after, true), nil
}

// ToggleStaffStatus flips is_active and returns the new value. Deactivated
// staff are signed out everywhere.
func (s *Service) ToggleStaffStatus(ctx context.Context, c Caller, id int64) (bool, error) {
	u, err := s.loadStaff(ctx, id)
	if err != nil {
		return false, err
	}
	active := !u.IsActive
	if err := s.st.SetUserActive(ctx, id, active); err != nil {
		return false, err
	}
	if !active {
		if err := s.sessions.RevokeUserSessions(ctx, id); err != nil {
			return false, err
		}
	}
	s.record(ctx, c, audit.StaffStatusToggle, "users", id,
		map[string]bool{"is_active": u.IsActive}, map[string]bool{"is_active": active})
	return active, nil
}

func (s *Service) loadStaff(ctx context.Context, id int64) (models.User, error) {
	u, err := s.st.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && u.Role != models.RoleStaff) {
		return models.User{}, notFound("Staff member not found")
	}
	return u, err
}

func staffSnapshot(u models.User) map[string]string {
	m := profileSnapshot(u)
	m["email"] = u.Email
	return m
}
