package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"civicconnect/internal/audit"
	"civicconnect/internal/auth"
	"civicconnect/internal/models"
	"civicconnect/internal/store"
)

const (
	codeDigits        = 6
	loginLimit        = 5
	loginWindow       = 5 * time.Minute
	msgBadCredentials = "Invalid email or password"
)

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type RegisterResult struct {
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Register creates an unverified citizen and sends a verification code.
// Only the password length is checked here; resets apply the stronger policy.
func (s *Service) Register(ctx context.Context, c Caller, in RegisterInput) (RegisterResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"email", in.Email}, {"password", in.Password}, {"first_name", in.FirstName}, {"last_name", in.LastName},
	} {
		if f.v == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return RegisterResult{}, badRequest("Missing required fields: %s", strings.Join(missing, ", "))
	}
	if !validEmail(in.Email) {
		return RegisterResult{}, badRequest("Invalid email format")
	}
	if err := s.checkPasswordLength(in.Password); err != nil {
		return RegisterResult{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return RegisterResult{}, err
	}
	code, err := auth.NewNumericCode(codeDigits)
	if err != nil {
		return RegisterResult{}, err
	}
	expires := time.Now().UTC().Add(s.cfg.OTPTTL())
	u, err := s.st.CreateUser(ctx, models.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        strings.TrimSpace(in.Phone),
		Role:         models.RoleCitizen,
		IsActive:     true,
		OTPCode:      code,
		OTPExpiresAt: &expires,
	})
	if errors.Is(err, store.ErrConflict) {
		return RegisterResult{}, conflict("Email already registered")
	}
	if err != nil {
		return RegisterResult{}, err
	}

	s.sendVerificationCode(u, code)
	c.UserID = u.ID
	s.record(ctx, c, audit.UserCreated, "users", u.ID, nil, map[string]string{
		"email": u.Email, "first_name": u.FirstName, "last_name": u.LastName,
	})
	return RegisterResult{
		UserID:  u.ID,
		Email:   u.Email,
		Message: "User registered successfully. Please verify your email using the OTP code sent to your email address.",
	}, nil
}

// VerifyEmail checks a verification code. Once the attempt budget is spent
// every try is refused, the right code included, until a new code is issued.
func (s *Service) VerifyEmail(ctx context.Context, c Caller, email, code string) (int64, error) {
	email, code = normalizeEmail(email), strings.TrimSpace(code)
	if email == "" || code == "" {
		return 0, badRequest("Email and OTP code required")
	}
	u, err := s.st.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return 0, notFound("User not found")
	}
	if err != nil {
		return 0, err
	}
	if u.EmailVerified {
		return 0, badRequest("Email already verified")
	}
	if err := s.checkCode(ctx, u, code,
		"Maximum OTP attempts exceeded. Please request a new OTP.",
		"OTP code has expired",
		"Invalid OTP code",
	); err != nil {
		return 0, err
	}
	if err := s.st.MarkEmailVerified(ctx, u.ID); err != nil {
		return 0, err
	}
	c.UserID = u.ID
	s.record(ctx, c, audit.EmailVerified, "users", u.ID, nil, nil)
	return u.ID, nil
}

// ResendOTP issues a fresh verification code and resets the attempt counter.
func (s *Service) ResendOTP(ctx context.Context, c Caller, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return badRequest("Email is required")
	}
	u, err := s.st.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("User not found")
	}
	if err != nil {
		return err
	}
	if u.EmailVerified {
		return badRequest("Email is already verified")
	}
	code, err := s.issueCode(ctx, u.ID)
	if err != nil {
		return err
	}
	s.sendVerificationCode(u, code)
	c.UserID = u.ID
	s.record(ctx, c, audit.OTPResent, "users", u.ID, nil, nil)
	return nil
}

type LoginResult struct {
	User UserView
	// Token is the signed bearer token returned in the body.
	Token string
	// SessionToken is the opaque token carried by the session cookie.
	SessionToken string
	ExpiresAt    time.Time
}

// Login checks credentials before account state, so inactive and
// unverified answers are only given to callers who know the password.
func (s *Service) Login(ctx context.Context, c Caller, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, badRequest("Email and password required")
	}
	ok, err := s.limiter.Allow(ctx, "login", email, loginLimit, loginWindow)
	if err != nil {
		s.log.ErrorContext(ctx, "login rate counter failed", "error", err)
	} else if !ok {
		return LoginResult{}, tooManyRequests("Too many login attempts. Please try again later.")
	}

	u, err := s.st.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return LoginResult{}, unauthorized(msgBadCredentials)
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return LoginResult{}, unauthorized(msgBadCredentials)
	}
	if !u.IsActive {
		return LoginResult{}, forbidden("Account is inactive")
	}
	if !u.EmailVerified {
		return LoginResult{}, forbidden("Please verify your email address first")
	}
	if auth.NeedsRehash(u.PasswordHash) {
		if h, err := auth.HashPassword(password); err == nil {
			if err := s.st.UpdatePasswordHash(ctx, u.ID, h); err != nil {
				s.log.WarnContext(ctx, "password rehash failed", "user_id", u.ID, "error", err)
			}
		}
	}

	raw, tokenHash, err := auth.NewOpaqueToken()
	if err != nil {
		return LoginResult{}, err
	}
	now := time.Now().UTC()
	sess := models.Session{
		ID:            uuid.NewString(),
		UserID:        u.ID,
		TokenHash:     tokenHash,
		IPHint:        c.IP,
		UserAgentHash: hashUA(c.UserAgent),
		ExpiresAt:     now.Add(s.cfg.SessionAbsoluteDuration()),
		IdleExpiresAt: now.Add(s.cfg.SessionIdleDuration()),
		CreatedAt:     now,
		LastSeenAt:    now,
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return LoginResult{}, err
	}
	token, err := s.signer.Sign(u.ID, u.Role, raw, sess.ExpiresAt)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.st.TouchUserLastLogin(ctx, u.ID, now); err != nil {
		s.log.WarnContext(ctx, "last login update failed", "user_id", u.ID, "error", err)
	}
	u.LastLogin = &now
	_ = s.limiter.Reset(ctx, "login", email)

	c.UserID = u.ID
	s.record(ctx, c, audit.UserLogin, "users", u.ID, nil, nil)
	return LoginResult{User: s.userView(u, true), Token: token, SessionToken: raw, ExpiresAt: sess.ExpiresAt}, nil
}

func (s *Service) Logout(ctx context.Context, c Caller) error {
	if c.SessionID != "" {
		if err := s.sessions.RevokeSession(ctx, c.SessionID); err != nil {
			return err
		}
	}
	s.record(ctx, c, audit.UserLogout, "users", c.UserID, nil, nil)
	return nil
}

// ValidateSession resolves an opaque session token. Revoked, expired and
// idle sessions, and sessions of deactivated users, do not resolve.
func (s *Service) ValidateSession(ctx context.Context, rawToken string) (models.User, models.Session, error) {
	if rawToken == "" {
		return models.User{}, models.Session{}, ErrInvalidSession
	}
	sess, err := s.sessions.GetSessionByTokenHash(ctx, auth.HashToken(rawToken))
	if err != nil {
		return models.User{}, models.Session{}, ErrInvalidSession
	}
	now := time.Now().UTC()
	if sess.RevokedAt != nil || now.After(sess.ExpiresAt) || now.After(sess.IdleExpiresAt) {
		return models.User{}, models.Session{}, ErrInvalidSession
	}
	u, err := s.st.GetUserByID(ctx, sess.UserID)
	if err != nil || !u.IsActive {
		return models.User{}, models.Session{}, ErrInvalidSession
	}
	if err := s.sessions.TouchSession(ctx, sess.ID, now.Add(s.cfg.SessionIdleDuration())); err != nil {
		s.log.WarnContext(ctx, "session touch failed", "session_id", sess.ID, "error", err)
	}
	return u, sess, nil
}

// ForgotPassword sends a reset code. Unknown addresses get the same answer
// as known ones.
func (s *Service) ForgotPassword(ctx context.Context, c Caller, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return badRequest("Email is required")
	}
	if !validEmail(email) {
		return badRequest("Invalid email format")
	}
	u, err := s.st.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := accountUsable(u); err != nil {
		return err
	}
	code, err := s.issueCode(ctx, u.ID)
	if err != nil {
		return err
	}
	first := u.FirstName
	to := u.Email
	s.queue.Submit("code.password_reset", func(ctx context.Context) error {
		return s.codes.SendPasswordResetCode(ctx, to, first, code)
	})
	c.UserID = u.ID
	s.record(ctx, c, audit.PasswordResetRequested, "users", u.ID, nil, nil)
	return nil
}

// VerifyResetCode checks a reset code without consuming it.
func (s *Service) VerifyResetCode(ctx context.Context, email, code string) error {
	email, code = normalizeEmail(email), strings.TrimSpace(code)
	if email == "" || code == "" {
		return badRequest("Email and reset code required")
	}
	u, err := s.resetUser(ctx, email)
	if err != nil {
		return err
	}
	return s.checkCode(ctx, u, code,
		"Maximum attempts exceeded. Please request a new reset code.",
		"Reset code has expired",
		"Invalid reset code",
	)
}

// ResetPassword consumes a reset code, stores the new password and signs
// the user out everywhere.
func (s *Service) ResetPassword(ctx context.Context, c Caller, email, code, newPassword string) error {
	email, code = normalizeEmail(email), strings.TrimSpace(code)
	if email == "" || code == "" || newPassword == "" {
		return badRequest("Email, reset code, and new password required")
	}
	if err := s.checkStrongPassword(newPassword); err != nil {
		return err
	}
	u, err := s.resetUser(ctx, email)
	if err != nil {
		return err
	}
	if err := s.checkCode(ctx, u, code,
		"Maximum attempts exceeded. Please request a new reset code.",
		"Reset code has expired",
		"Invalid reset code",
	); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.st.ResetPassword(ctx, u.ID, hash); err != nil {
		return err
	}
	if err := s.sessions.RevokeUserSessions(ctx, u.ID); err != nil {
		return err
	}
	c.UserID = u.ID
	s.record(ctx, c, audit.PasswordResetCompleted, "users", u.ID, nil, nil)
	return nil
}

func (s *Service) resetUser(ctx context.Context, email string) (models.User, error) {
	u, err := s.st.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, badRequest("Invalid email or reset code")
	}
	if err != nil {
		return models.User{}, err
	}
	return u, accountUsable(u)
}

func accountUsable(u models.User) error {
	if !u.IsActive {
		return forbidden("Account is inactive")
	}
	if !u.EmailVerified {
		return forbidden("Please verify your email address first")
	}
	return nil
}

func (s *Service) checkCode(ctx context.Context, u models.User, code, tooMany, expired, invalid string) error {
	if u.OTPAttempts >= s.cfg.OTPMaxAttempts {
		return tooManyRequests("%s", tooMany)
	}
	if u.OTPCode == "" || u.OTPExpiresAt == nil || time.Now().UTC().After(*u.OTPExpiresAt) {
		return badRequest("%s", expired)
	}
	if subtle.ConstantTimeCompare([]byte(u.OTPCode), []byte(code)) != 1 {
		if err := s.st.IncrementOTPAttempts(ctx, u.ID); err != nil {
			return err
		}
		return badRequest("%s", invalid)
	}
	return nil
}

func (s *Service) issueCode(ctx context.Context, userID int64) (string, error) {
	code, err := auth.NewNumericCode(codeDigits)
	if err != nil {
		return "", err
	}
	if err := s.st.SetOTP(ctx, userID, code, time.Now().UTC().Add(s.cfg.OTPTTL())); err != nil {
		return "", err
	}
	return code, nil
}

func (s *Service) sendVerificationCode(u models.User, code string) {
	to, first := u.Email, u.FirstName
	s.queue.Submit("code.verification", func(ctx context.Context) error {
		return s.codes.SendVerificationCode(ctx, to, first, code)
	})
}

func (s *Service) Me(ctx context.Context, c Caller) (UserView, error) {
	u, err := s.st.GetUserByID(ctx, c.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return UserView{}, notFound("User not found")
	}
	if err != nil {
		return UserView{}, err
	}
	return s.userView(u, true), nil
}

// GetProfile returns a user's profile. Email, phone and last login are shown
// only to the user themself and to staff or admins.
func (s *Service) GetProfile(ctx context.Context, c Caller, id int64) (UserView, error) {
	u, err := s.st.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return UserView{}, notFound("User not found")
	}
	if err != nil {
		return UserView{}, err
	}
	return s.userView(u, OwnsResource(c.UserID, id) || c.IsStaff()), nil
}

type ProfileInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Location  *string `json:"location"`
	Bio       *string `json:"bio"`
}

func (s *Service) UpdateProfile(ctx context.Context, c Caller, id int64, in ProfileInput) (UserView, error) {
	if !OwnsResource(c.UserID, id) {
		return UserView{}, forbidden("Unauthorized: Cannot update other user profiles")
	}
	upd := store.UserUpdate{
		FirstName: trimPtr(in.FirstName),
		LastName:  trimPtr(in.LastName),
		Phone:     trimPtr(in.Phone),
		Location:  trimPtr(in.Location),
		Bio:       trimPtr(in.Bio),
	}
	if upd.Empty() {
		return UserView{}, badRequest("No fields to update")
	}
	if (upd.FirstName != nil && *upd.FirstName == "") || (upd.LastName != nil && *upd.LastName == "") {
		return UserView{}, badRequest("First and last name cannot be empty")
	}
	before, err := s.st.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return UserView{}, notFound("User not found")
	}
	if err != nil {
		return UserView{}, err
	}
	if err := s.st.UpdateUser(ctx, id, upd); err != nil {
		return UserView{}, err
	}
	after, err := s.st.GetUserByID(ctx, id)
	if err != nil {
		return UserView{}, err
	}
	s.record(ctx, c, audit.UserUpdated, "users", id, profileSnapshot(before), profileSnapshot(after))
	return s.userView(after, true), nil
}

func profileSnapshot(u models.User) map[string]string {
	return map[string]string{
		"first_name": u.FirstName, "last_name": u.LastName, "phone": u.Phone, "location": u.Location, "bio": u.Bio,
	}
}

// UserIssues lists issues reported by id. Anonymous ones are included only
// when the user is looking at their own list.
func (s *Service) UserIssues(ctx context.Context, c Caller, id int64, p Page) ([]IssueView, Pagination, error) {
	if _, err := s.st.GetUserByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, Pagination{}, notFound("User not found")
		}
		return nil, Pagination{}, err
	}
	items, total, err := s.st.ListIssues(ctx, models.IssueQuery{
		OwnerID:          id,
		IncludeAnonymous: OwnsResource(c.UserID, id),
		Limit:            p.Limit,
		Offset:           p.Offset,
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

type UserStats struct {
	IssuesReported  int `json:"issues_reported"`
	UpvotesReceived int `json:"upvotes_received"`
}

func (s *Service) UserStats(ctx context.Context, id int64) (UserStats, error) {
	if _, err := s.st.GetUserByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return UserStats{}, notFound("User not found")
		}
		return UserStats{}, err
	}
	issues, upvotes, err := s.st.UserStats(ctx, id)
	if err != nil {
		return UserStats{}, err
	}
	return UserStats{IssuesReported: issues, UpvotesReceived: upvotes}, nil
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
