package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"civicconnect/internal/models"
)

const userColumns = `id,email,password_hash,first_name,last_name,phone,location,bio,profile_image,role,is_active,email_verified,email_verified_at,otp_code,otp_expires_at,otp_attempts,last_login,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	var phone, location, bio, image, otp sql.NullString
	var verifiedAt, otpExpires, lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &phone, &location, &bio, &image,
		&u.Role, &u.IsActive, &u.EmailVerified, &verifiedAt, &otp, &otpExpires, &u.OTPAttempts, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, classify(err)
	}
	u.Phone = phone.String
	u.Location = location.String
	u.Bio = bio.String
	u.ProfileImage = image.String
	u.OTPCode = otp.String
	u.EmailVerifiedAt = timePtr(verifiedAt)
	u.OTPExpiresAt = timePtr(otpExpires)
	u.LastLogin = timePtr(lastLogin)
	return u, nil
}

// CreateUser inserts u and returns it with its id and timestamps set.
// A duplicate email yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	ts := now()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt, u.UpdatedAt = ts, ts
	id, err := s.insert(ctx, s.db,
		`INSERT INTO users(email,password_hash,first_name,last_name,phone,location,bio,profile_image,role,is_active,email_verified,email_verified_at,otp_code,otp_expires_at,otp_attempts,created_at,updated_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, nullString(u.Phone), nullString(u.Location), nullString(u.Bio), nullString(u.ProfileImage),
		u.Role, u.IsActive, u.EmailVerified, u.EmailVerifiedAt, nullString(u.OTPCode), u.OTPExpiresAt, u.OTPAttempts, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	u.ID = id
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+userColumns+` FROM users WHERE email=?`), strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+userColumns+` FROM users WHERE id=?`), id)
	return scanUser(row)
}

// GetUserRole reads the role and active flag straight from storage.
func (s *Store) GetUserRole(ctx context.Context, id int64) (string, bool, error) {
	var role string
	var active bool
	err := s.db.QueryRowContext(ctx, s.q(`SELECT role,is_active FROM users WHERE id=?`), id).Scan(&role, &active)
	if err != nil {
		return "", false, classify(err)
	}
	return role, active, nil
}

// EnsureAdmin creates or promotes the bootstrap administrator.
func (s *Store) EnsureAdmin(ctx context.Context, email, passwordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || passwordHash == "" {
		return nil
	}
	u, err := s.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		ts := now()
		_, err = s.CreateUser(ctx, models.User{
			Email: email, PasswordHash: passwordHash, FirstName: "System", LastName: "Administrator",
			Role: models.RoleAdmin, IsActive: true, EmailVerified: true, EmailVerifiedAt: &ts,
		})
		return err
	}
	if err != nil {
		return err
	}
	_, err = s.exec(ctx,
		`UPDATE users SET role=?, is_active=?, email_verified=?, password_hash=?, updated_at=? WHERE id=?`,
		models.RoleAdmin, true, true, passwordHash, now(), u.ID,
	)
	return err
}

// SetOTP stores a fresh code and resets the attempt counter.
func (s *Store) SetOTP(ctx context.Context, userID int64, code string, expiresAt time.Time) error {
	_, err := s.exec(ctx, `UPDATE users SET otp_code=?, otp_expires_at=?, otp_attempts=0, updated_at=? WHERE id=?`, code, expiresAt, now(), userID)
	return err
}

func (s *Store) IncrementOTPAttempts(ctx context.Context, userID int64) error {
	_, err := s.exec(ctx, `UPDATE users SET otp_attempts=otp_attempts+1 WHERE id=?`, userID)
	return err
}

func (s *Store) ClearOTP(ctx context.Context, userID int64) error {
	_, err := s.exec(ctx, `UPDATE users SET otp_code=NULL, otp_expires_at=NULL, otp_attempts=0, updated_at=? WHERE id=?`, now(), userID)
	return err
}

func (s *Store) MarkEmailVerified(ctx context.Context, userID int64) error {
	ts := now()
	_, err := s.exec(ctx,
		`UPDATE users SET email_verified=?, email_verified_at=?, otp_code=NULL, otp_expires_at=NULL, otp_attempts=0, updated_at=? WHERE id=?`,
		true, ts, ts, userID,
	)
	return err
}

// ResetPassword replaces the hash and clears any pending code.
func (s *Store) ResetPassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := s.exec(ctx,
		`UPDATE users SET password_hash=?, otp_code=NULL, otp_expires_at=NULL, otp_attempts=0, updated_at=? WHERE id=?`,
		passwordHash, now(), userID,
	)
	return err
}

func (s *Store) TouchUserLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := s.exec(ctx, `UPDATE users SET last_login=? WHERE id=?`, at, userID)
	return err
}

// UserUpdate carries optional profile changes; nil fields are left alone.
type UserUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	Phone     *string
	Location  *string
	Bio       *string
}

func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.FirstName == nil && u.LastName == nil && u.Phone == nil && u.Location == nil && u.Bio == nil
}

func (s *Store) UpdateUser(ctx context.Context, id int64, upd UserUpdate) error {
	var sets []string
	var args []any
	add := func(col string, v *string) {
		if v == nil {
			return
		}
		sets = append(sets, col+"=?")
		if col == "email" {
			args = append(args, strings.ToLower(strings.TrimSpace(*v)))
			return
		}
		args = append(args, nullString(*v))
	}
	add("email", upd.Email)
	add("first_name", upd.FirstName)
	add("last_name", upd.LastName)
	add("phone", upd.Phone)
	add("location", upd.Location)
	add("bio", upd.Bio)
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at=?")
	args = append(args, now(), id)
	n, err := s.exec(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateUserRole(ctx context.Context, id int64, role string) error {
	n, err := s.exec(ctx, `UPDATE users SET role=?, updated_at=? WHERE id=?`, role, now(), id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetUserActive(ctx context.Context, id int64, active bool) error {
	_, err := s.exec(ctx, `UPDATE users SET is_active=?, updated_at=? WHERE id=?`, active, now(), id)
	return err
}

func userFilter(q models.UserQuery) (string, []any) {
	var where []string
	var args []any
	if q.Role != "" {
		where = append(where, "role=?")
		args = append(args, q.Role)
	}
	if q.Search != "" {
		like := likePattern(q.Search)
		where = append(where, "(LOWER(email) LIKE ? ESCAPE '!' OR LOWER(first_name) LIKE ? ESCAPE '!' OR LOWER(last_name) LIKE ? ESCAPE '!')")
		args = append(args, like, like, like)
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// ListUsers returns one page of users, newest first, and the total match count.
func (s *Store) ListUsers(ctx context.Context, q models.UserQuery) ([]models.User, int, error) {
	where, args := userFilter(q)
	total, err := s.count(ctx, `SELECT COUNT(*) FROM users`+where, args...)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+userColumns+` FROM users`+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`),
		append(args, q.Limit, q.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]models.User, 0, q.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// UserStats counts reported issues and upvotes received on them.
func (s *Store) UserStats(ctx context.Context, userID int64) (issues, upvotes int, err error) {
	issues, err = s.count(ctx, `SELECT COUNT(*) FROM issues WHERE user_id=?`, userID)
	if err != nil {
		return 0, 0, err
	}
	upvotes, err = s.count(ctx, `SELECT COUNT(*) FROM upvotes v JOIN issues i ON i.id=v.issue_id WHERE i.user_id=?`, userID)
	return issues, upvotes, err
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error {
	_, err := s.exec(ctx, `UPDATE users SET password_hash=?, updated_at=? WHERE id=?`, passwordHash, now(), userID)
	return err
}
