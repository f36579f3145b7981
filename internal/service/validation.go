package service

import (
	"math"
	netmail "net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"civicconnect/internal/models"
)

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validEmail(s string) bool {
	if s == "" || len(s) > 254 {
		return false
	}
	addr, err := netmail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@")+1:], ".")
}

// checkPasswordLength applies the registration policy: length only.
func (s *Service) checkPasswordLength(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < s.cfg.PasswordMinLength {
		return badRequest("Password must be at least %d characters long", s.cfg.PasswordMinLength)
	}
	if n > s.cfg.PasswordMaxLength {
		return badRequest("Password must be at most %d characters long", s.cfg.PasswordMaxLength)
	}
	return nil
}

// checkStrongPassword applies the reset policy: length plus lower, upper and digit.
func (s *Service) checkStrongPassword(pw string) error {
	if err := s.checkPasswordLength(pw); err != nil {
		return err
	}
	var lower, upper, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !lower:
		return badRequest("Password must contain at least one lowercase letter")
	case !upper:
		return badRequest("Password must contain at least one uppercase letter")
	case !digit:
		return badRequest("Password must contain at least one number")
	}
	return nil
}

func validTitle(t string) bool {
	n := utf8.RuneCountInString(t)
	return n >= 5 && n <= 255
}

func validDescription(d string) bool {
	return utf8.RuneCountInString(d) >= 10
}

func validCoordinates(lat, lng *float64) bool {
	if lat != nil && (math.IsNaN(*lat) || *lat < -90 || *lat > 90) {
		return false
	}
	if lng != nil && (math.IsNaN(*lng) || *lng < -180 || *lng > 180) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func validPriority(p string) bool { return contains(models.Priorities, p) }

func validRole(r string) bool {
	return r == models.RoleCitizen || r == models.RoleStaff || r == models.RoleAdmin
}

// Page is a resolved page request.
type Page struct {
	Page   int
	Limit  int
	Offset int
}

// NewPage clamps page to at least 1 and limit into 1..max, with def for
// missing or non-positive limits.
func NewPage(page, limit, def, max int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return Page{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// OwnsResource reports whether userID is the owner.
func OwnsResource(userID, ownerID int64) bool {
	return userID != 0 && userID == ownerID
}
