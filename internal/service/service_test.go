package service

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicconnect/internal/auth"
	"civicconnect/internal/config"
	"civicconnect/internal/db"
	"civicconnect/internal/models"
	"civicconnect/internal/store"
)

type codeBox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (b *codeBox) SendVerificationCode(_ context.Context, to, _, code string) error {
	b.put(to, code)
	return nil
}

func (b *codeBox) SendPasswordResetCode(_ context.Context, to, _, code string) error {
	b.put(to, code)
	return nil
}

func (b *codeBox) put(to, code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.codes[to] = code
}

func (b *codeBox) get(to string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codes[to]
}

type fixture struct {
	svc   *Service
	st    *store.Store
	codes *codeBox
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	sqdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "svc.db"), 1, 1, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqdb.Close() })
	require.NoError(t, db.ApplyMigrationFile(sqdb, filepath.Join("..", "..", "migrations", "001_init.sql")))

	cfg := config.Config{
		SessionIdleMinutes:  30,
		SessionAbsoluteHour: 12,
		SessionSecret:       strings.Repeat("k", 32),
		UploadDir:           t.TempDir(),
		PublicBaseURL:       "http://localhost:8080",
	}
	cfg.ApplyDefaults()
	st := store.New(sqdb, "sqlite")
	box := &codeBox{codes: map[string]string{}}
	return fixture{svc: New(cfg, st, Deps{Codes: box}), st: st, codes: box}
}

func (f fixture) user(t *testing.T, email, role string) models.User {
	t.Helper()
	hash, err := auth.HashPassword("Passw0rd!")
	require.NoError(t, err)
	u, err := f.st.CreateUser(context.Background(), models.User{
		Email: email, PasswordHash: hash, FirstName: "Test", LastName: "User",
		Role: role, IsActive: true, EmailVerified: true,
	})
	require.NoError(t, err)
	return u
}

func caller(u models.User) Caller {
	return Caller{UserID: u.ID, Role: u.Role, IP: "127.0.0.1", UserAgent: "test"}
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	e, ok := AsError(err)
	require.True(t, ok, "want client error, got %v", err)
	assert.Equal(t, status, e.Status, e.Message)
}

func (f fixture) issue(t *testing.T, owner models.User, anonymous bool) IssueView {
	t.Helper()
	it, err := f.svc.CreateIssue(context.Background(), caller(owner), IssueInput{
		Title: "Broken streetlight", Description: "The light on Elm St is out.", Category: "streetlight",
		IsAnonymous: anonymous,
	})
	require.NoError(t, err)
	return it
}

func TestRegisterVerifyAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, Caller{}, RegisterInput{
		Email: " Jane@Example.com ", Password: "longenough", FirstName: "Jane", LastName: "Doe",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", res.Email)

	_, err = f.svc.Register(ctx, Caller{}, RegisterInput{
		Email: "jane@example.com", Password: "longenough", FirstName: "J", LastName: "D",
	})
	requireStatus(t, err, http.StatusConflict)

	_, err = f.svc.Login(ctx, Caller{}, "jane@example.com", "longenough")
	requireStatus(t, err, http.StatusForbidden)

	code := f.codes.get("jane@example.com")
	require.Len(t, code, 6)
	id, err := f.svc.VerifyEmail(ctx, Caller{}, "jane@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, res.UserID, id)

	_, err = f.svc.VerifyEmail(ctx, Caller{}, "jane@example.com", code)
	requireStatus(t, err, http.StatusBadRequest)

	out, err := f.svc.Login(ctx, Caller{}, "jane@example.com", "longenough")
	require.NoError(t, err)
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, models.RoleCitizen, out.User.Role)

	u, sess, err := f.svc.ValidateSession(ctx, out.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, res.UserID, u.ID)

	require.NoError(t, f.svc.Logout(ctx, Caller{UserID: u.ID, SessionID: sess.ID}))
	_, _, err = f.svc.ValidateSession(ctx, out.SessionToken)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, Caller{}, RegisterInput{Email: "a@b.co"})
	requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Missing required fields: password, first_name, last_name", err.Error())

	_, err = f.svc.Register(ctx, Caller{}, RegisterInput{Email: "nope", Password: "longenough", FirstName: "a", LastName: "b"})
	assert.EqualError(t, err, "Invalid email format")

	_, err = f.svc.Register(ctx, Caller{}, RegisterInput{Email: "a@b.co", Password: "short", FirstName: "a", LastName: "b"})
	assert.EqualError(t, err, "Password must be at least 8 characters long")
}

func TestVerifyEmailLocksAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, Caller{}, RegisterInput{Email: "lock@example.com", Password: "longenough", FirstName: "L", LastName: "K"})
	require.NoError(t, err)
	code := f.codes.get("lock@example.com")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 5; i++ {
		_, err := f.svc.VerifyEmail(ctx, Caller{}, "lock@example.com", wrong)
		requireStatus(t, err, http.StatusBadRequest)
	}
	_, err = f.svc.VerifyEmail(ctx, Caller{}, "lock@example.com", code)
	requireStatus(t, err, http.StatusTooManyRequests)

	require.NoError(t, f.svc.ResendOTP(ctx, Caller{}, "lock@example.com"))
	_, err = f.svc.VerifyEmail(ctx, Caller{}, "lock@example.com", f.codes.get("lock@example.com"))
	require.NoError(t, err)
}

func TestVerifyEmailExpiredCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, Caller{}, RegisterInput{Email: "old@example.com", Password: "longenough", FirstName: "O", LastName: "D"})
	require.NoError(t, err)
	u, err := f.st.GetUserByEmail(ctx, "old@example.com")
	require.NoError(t, err)
	require.NoError(t, f.st.SetOTP(ctx, u.ID, "123456", time.Now().UTC().Add(-time.Minute)))

	_, err = f.svc.VerifyEmail(ctx, Caller{}, "old@example.com", "123456")
	assert.EqualError(t, err, "OTP code has expired")
}

func TestLoginFailuresAndRateLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "rl@example.com", models.RoleCitizen)

	_, err := f.svc.Login(ctx, Caller{}, "missing@example.com", "whatever1")
	requireStatus(t, err, http.StatusUnauthorized)

	for i := 0; i < 5; i++ {
		_, err := f.svc.Login(ctx, Caller{}, "rl@example.com", "wrong-password")
		assert.EqualError(t, err, "Invalid email or password")
	}
	_, err = f.svc.Login(ctx, Caller{}, "rl@example.com", "Passw0rd!")
	requireStatus(t, err, http.StatusTooManyRequests)
}

func TestLoginInactiveAfterPasswordCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "off@example.com", models.RoleCitizen)
	require.NoError(t, f.st.SetUserActive(ctx, u.ID, false))

	_, err := f.svc.Login(ctx, Caller{}, "off@example.com", "wrong-password")
	requireStatus(t, err, http.StatusUnauthorized)
	_, err = f.svc.Login(ctx, Caller{}, "off@example.com", "Passw0rd!")
	assert.EqualError(t, err, "Account is inactive")
}

func TestPasswordResetRevokesSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "reset@example.com", models.RoleCitizen)

	require.NoError(t, f.svc.ForgotPassword(ctx, Caller{}, "nobody@example.com"))
	require.NoError(t, f.svc.ForgotPassword(ctx, Caller{}, "reset@example.com"))
	code := f.codes.get("reset@example.com")
	require.NotEmpty(t, code)

	login, err := f.svc.Login(ctx, Caller{}, "reset@example.com", "Passw0rd!")
	require.NoError(t, err)

	require.NoError(t, f.svc.VerifyResetCode(ctx, "reset@example.com", code))
	err = f.svc.ResetPassword(ctx, Caller{}, "reset@example.com", code, "alllowercase1")
	assert.EqualError(t, err, "Password must contain at least one uppercase letter")

	require.NoError(t, f.svc.ResetPassword(ctx, Caller{}, "reset@example.com", code, "N3wPassword"))
	_, _, err = f.svc.ValidateSession(ctx, login.SessionToken)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = f.svc.Login(ctx, Caller{}, "reset@example.com", "N3wPassword")
	require.NoError(t, err)
	err = f.svc.ResetPassword(ctx, Caller{}, "reset@example.com", code, "An0therOne")
	assert.EqualError(t, err, "Reset code has expired")
}

func TestProfileVisibilityAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com", models.RoleCitizen)
	bob := f.user(t, "bob@example.com", models.RoleCitizen)
	staff := f.user(t, "staff@example.com", models.RoleStaff)

	v, err := f.svc.GetProfile(ctx, caller(bob), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, v.Email)

	v, err = f.svc.GetProfile(ctx, caller(staff), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", v.Email)

	bio := "Neighbourhood watch"
	_, err = f.svc.UpdateProfile(ctx, caller(bob), alice.ID, ProfileInput{Bio: &bio})
	requireStatus(t, err, http.StatusForbidden)

	_, err = f.svc.UpdateProfile(ctx, caller(alice), alice.ID, ProfileInput{})
	assert.EqualError(t, err, "No fields to update")

	v, err = f.svc.UpdateProfile(ctx, caller(alice), alice.ID, ProfileInput{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, bio, v.Bio)

	_, err = f.svc.GetProfile(ctx, Caller{}, 9999)
	requireStatus(t, err, http.StatusNotFound)
}

func TestCreateIssueDefaultsAndAnonymity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", models.RoleCitizen)
	other := f.user(t, "other@example.com", models.RoleCitizen)

	it, err := f.svc.CreateIssue(ctx, caller(owner), IssueInput{
		Title: "Pothole on Main", Description: "Deep pothole near the crossing.", Category: "pothole",
		Status: "resolved", IsAnonymous: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "open", it.Status)
	assert.Equal(t, "medium", it.Priority)
	assert.True(t, it.IsOwner)

	seen, err := f.svc.GetIssue(ctx, caller(other), it.ID)
	require.NoError(t, err)
	assert.Nil(t, seen.UserID)
	assert.Equal(t, "Anonymous", seen.UserName)
	assert.False(t, seen.IsOwner)

	list, _, err := f.svc.UserIssues(ctx, caller(other), owner.ID, NewPage(1, 10, 10, 50))
	require.NoError(t, err)
	assert.Empty(t, list)
	list, _, err = f.svc.UserIssues(ctx, caller(owner), owner.ID, NewPage(1, 10, 10, 50))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.Upvote(ctx, caller(other), it.ID)
	require.NoError(t, err)
	stats, err := f.svc.UserStats(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, UserStats{IssuesReported: 1, UpvotesReceived: 1}, stats)

	_, err = f.svc.UserStats(ctx, 9999)
	requireStatus(t, err, 404)
}

func TestCreateIssueValidation(t *testing.T) {
	f := newFixture(t)
	c := caller(f.user(t, "v@example.com", models.RoleCitizen))
	ctx := context.Background()

	_, err := f.svc.CreateIssue(ctx, c, IssueInput{Title: "Hey", Description: "long enough text", Category: "other"})
	assert.EqualError(t, err, "Title must be between 5 and 255 characters")
	_, err = f.svc.CreateIssue(ctx, c, IssueInput{Title: "Valid title", Description: "short", Category: "other"})
	assert.EqualError(t, err, "Description must be at least 10 characters long")
	_, err = f.svc.CreateIssue(ctx, c, IssueInput{Title: "Valid title", Description: "long enough text", Category: "other", Priority: "urgent"})
	assert.EqualError(t, err, "Invalid priority value")
	_, err = f.svc.CreateIssue(ctx, c, IssueInput{Title: strings.Repeat("é", 256), Description: "long enough text", Category: "other"})
	assert.EqualError(t, err, "Title must be between 5 and 255 characters")

	_, pg, err := f.svc.ListIssues(ctx, c, IssueFilter{}, NewPage(1, 10, 10, 100))
	require.NoError(t, err)
	assert.Zero(t, pg.Total)

	it, err := f.svc.CreateIssue(ctx, c, IssueInput{Title: strings.Repeat("é", 255), Description: "long enough text", Category: "other"})
	require.NoError(t, err)
	assert.Equal(t, 255, utf8.RuneCountInString(it.Title))
}

func TestListIssuesSecondPageOfStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "o@example.com", models.RoleCitizen)
	for i := 0; i < 15; i++ {
		status := "resolved"
		if i%5 == 0 {
			status = "open"
		}
		_, err := f.st.CreateIssue(ctx, models.Issue{
			UserID: owner.ID, Title: fmt.Sprintf("Issue number %d", i), Description: "Seeded for paging.",
			Category: "other", Priority: "medium", Status: status,
		})
		require.NoError(t, err)
	}

	items, pg, err := f.svc.ListIssues(ctx, caller(owner), IssueFilter{Status: "resolved"}, NewPage(2, 10, 10, 100))
	require.NoError(t, err)
	assert.Equal(t, 2, pg.Page)
	assert.Equal(t, 12, pg.Total)
	assert.Equal(t, 2, pg.Pages)
	assert.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, "resolved", it.Status)
	}
}

func TestUpdateIssueStatusRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "o@example.com", models.RoleCitizen)
	stranger := f.user(t, "s@example.com", models.RoleCitizen)
	staff := f.user(t, "staff@example.com", models.RoleStaff)
	it := f.issue(t, owner, false)

	title := "Renamed streetlight"
	_, err := f.svc.UpdateIssue(ctx, caller(stranger), it.ID, IssuePatch{Title: &title})
	requireStatus(t, err, http.StatusForbidden)

	status := "resolved"
	_, err = f.svc.UpdateIssue(ctx, caller(owner), it.ID, IssuePatch{Status: &status})
	requireStatus(t, err, http.StatusForbidden)

	_, err = f.svc.UpdateIssue(ctx, caller(owner), it.ID, IssuePatch{})
	assert.EqualError(t, err, "No fields to update")

	bad := "done"
	_, err = f.svc.UpdateIssue(ctx, caller(staff), it.ID, IssuePatch{Status: &bad})
	assert.EqualError(t, err, "Invalid status value")

	v, err := f.svc.UpdateIssue(ctx, caller(staff), it.ID, IssuePatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "resolved", v.Status)

	n, err := f.svc.UnreadCount(ctx, caller(owner))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err := f.svc.PublicStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, PublicStats{TotalIssues: 1, TotalUsers: 3, ResolutionRate: 100}, stats)
}

func TestDeleteIssuePermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "o@example.com", models.RoleCitizen)
	stranger := f.user(t, "s@example.com", models.RoleCitizen)
	it := f.issue(t, owner, false)

	err := f.svc.DeleteIssue(ctx, caller(stranger), it.ID)
	assert.EqualError(t, err, "Unauthorized: Cannot delete other user's issues")
	require.NoError(t, f.svc.DeleteIssue(ctx, caller(owner), it.ID))
	_, err = f.svc.GetIssue(ctx, Caller{}, it.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestCommentsCountsAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "o@example.com", models.RoleCitizen)
	commenter := f.user(t, "c@example.com", models.RoleCitizen)
	it := f.issue(t, owner, false)

	_, err := f.svc.AddComment(ctx, caller(commenter), it.ID, CommentInput{Content: " x "})
	assert.EqualError(t, err, "Comment must be at least 2 characters long")
	_, err = f.svc.AddComment(ctx, caller(commenter), it.ID, CommentInput{Content: strings.Repeat("a", 5001)})
	assert.EqualError(t, err, "Comment cannot exceed 5000 characters")
	_, err = f.svc.AddComment(ctx, caller(commenter), 9999, CommentInput{Content: "hello"})
	requireStatus(t, err, http.StatusNotFound)

	cm, err := f.svc.AddComment(ctx, caller(commenter), it.ID, CommentInput{Content: "Seen it too", IsAnonymous: true})
	require.NoError(t, err)
	assert.Nil(t, cm.UserID)

	got, err := f.svc.GetIssue(ctx, Caller{}, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentCount)
	n, err := f.svc.UnreadCount(ctx, caller(owner))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.svc.UpdateComment(ctx, caller(owner), cm.ID, "edited")
	requireStatus(t, err, http.StatusForbidden)
	err = f.svc.DeleteComment(ctx, caller(owner), cm.ID)
	requireStatus(t, err, http.StatusForbidden)

	require.NoError(t, f.svc.DeleteComment(ctx, caller(commenter), cm.ID))
	got, err = f.svc.GetIssue(ctx, Caller{}, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CommentCount)
}

func TestUpvoteOncePerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "o@example.com", models.RoleCitizen)
	voter := f.user(t, "v@example.com", models.RoleCitizen)
	it := f.issue(t, owner, false)

	n, err := f.svc.Upvote(ctx, caller(voter), it.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = f.svc.Upvote(ctx, caller(voter), it.ID)
	assert.EqualError(t, err, "Already upvoted this issue")

	list, _, err := f.svc.ListIssues(ctx, caller(voter), IssueFilter{}, NewPage(1, 10, 10, 100))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].UserHasUpvoted)
	assert.Equal(t, 1, list[0].UpvoteCount)

	second := f.user(t, "second@example.com", models.RoleCitizen)
	n, err = f.svc.Upvote(ctx, caller(second), it.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.svc.RemoveUpvote(ctx, caller(voter), it.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = f.svc.RemoveUpvote(ctx, caller(voter), it.ID)
	assert.EqualError(t, err, "Not upvoted yet")

	got, err := f.svc.GetIssue(ctx, caller(owner), it.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UpvoteCount)
}

func TestNotificationOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "o@example.com", models.RoleCitizen)
	other := f.user(t, "x@example.com", models.RoleCitizen)
	it := f.issue(t, owner, false)
	_, err := f.svc.AddComment(ctx, caller(other), it.ID, CommentInput{Content: "Same here"})
	require.NoError(t, err)

	items, _, err := f.svc.ListNotifications(ctx, caller(owner), true, NewPage(1, 20, 20, 50))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Broken streetlight", items[0].IssueTitle)

	err = f.svc.MarkNotificationRead(ctx, caller(other), items[0].ID)
	requireStatus(t, err, http.StatusForbidden)
	err = f.svc.MarkNotificationRead(ctx, caller(owner), 9999)
	requireStatus(t, err, http.StatusNotFound)

	require.NoError(t, f.svc.MarkNotificationRead(ctx, caller(owner), items[0].ID))
	n, err := f.svc.UnreadCount(ctx, caller(owner))
	require.NoError(t, err)
	assert.Zero(t, n)
	logs, _, err := f.svc.AuditLogs(ctx, NewPage(1, 50, 50, 100))
	require.NoError(t, err)
	var readLogged bool
	for _, e := range logs {
		if e.Action == "NOTIFICATIONS_READ" && e.EntityID != nil && *e.EntityID == items[0].ID {
			readLogged = true
		}
	}
	assert.True(t, readLogged)

	_, err = f.svc.AddComment(ctx, caller(other), it.ID, CommentInput{Content: "Still broken"})
	require.NoError(t, err)
	marked, err := f.svc.MarkAllNotificationsRead(ctx, caller(owner))
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)
}

func TestAdminRoleChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	citizen := f.user(t, "c@example.com", models.RoleCitizen)

	_, err := f.svc.UpdateUserRole(ctx, caller(admin), admin.ID, models.RoleCitizen)
	assert.EqualError(t, err, "Cannot change your own role")
	_, err = f.svc.UpdateUserRole(ctx, caller(admin), citizen.ID, "mayor")
	assert.EqualError(t, err, "Invalid role")
	_, err = f.svc.UpdateUserRole(ctx, caller(admin), 9999, models.RoleStaff)
	requireStatus(t, err, http.StatusNotFound)

	v, err := f.svc.UpdateUserRole(ctx, caller(admin), citizen.ID, models.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, v.Role)

	stats, err := f.svc.AdminStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.UsersTotal)
	assert.Equal(t, 1, stats.UsersByRole[models.RoleStaff])
	assert.Positive(t, stats.RecentActivityCount)

	logs, pg, err := f.svc.AuditLogs(ctx, NewPage(1, 50, 50, 100))
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "ROLE_UPDATE", logs[0].Action)
	assert.Equal(t, 1, pg.CurrentPage)
}

func TestStaffLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := caller(f.user(t, "admin@example.com", models.RoleAdmin))

	_, err := f.svc.CreateStaff(ctx, admin, StaffInput{Email: "s@example.com"})
	assert.EqualError(t, err, "Missing required fields: email, first_name, last_name, password")

	st, err := f.svc.CreateStaff(ctx, admin, StaffInput{Email: "s@example.com", Password: "longenough", FirstName: "S", LastName: "T"})
	require.NoError(t, err)
	assert.True(t, st.EmailVerified)
	_, err = f.svc.CreateStaff(ctx, admin, StaffInput{Email: "s@example.com", Password: "longenough", FirstName: "S", LastName: "T"})
	requireStatus(t, err, http.StatusConflict)

	login, err := f.svc.Login(ctx, Caller{}, "s@example.com", "longenough")
	require.NoError(t, err)

	active, err := f.svc.ToggleStaffStatus(ctx, admin, st.ID)
	require.NoError(t, err)
	assert.False(t, active)
	_, _, err = f.svc.ValidateSession(ctx, login.SessionToken)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = f.svc.GetStaff(ctx, admin.UserID)
	assert.EqualError(t, err, "Staff member not found")

	_, err = f.svc.UpdateStaff(ctx, admin, st.ID, StaffPatch{})
	assert.EqualError(t, err, "No valid fields to update")
	taken := "admin@example.com"
	_, err = f.svc.UpdateStaff(ctx, admin, st.ID, StaffPatch{Email: &taken})
	requireStatus(t, err, http.StatusConflict)

	list, pg, err := f.svc.ListStaff(ctx, "", NewPage(1, 20, 20, 100))
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, pg.TotalItems)
}

func TestFileInfoAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "o@example.com", models.RoleCitizen)
	other := f.user(t, "x@example.com", models.RoleCitizen)
	it, err := f.st.CreateIssue(ctx, models.Issue{
		UserID: owner.ID, Title: "Broken streetlight", Description: "The light on Elm St is out.",
		Category: "streetlight", Priority: "medium", Status: "open", ImagePath: "uploads/photo.jpg",
	})
	require.NoError(t, err)
	mine := f.issue(t, other, false)
	require.NoError(t, os.WriteFile(filepath.Join(f.svc.cfg.UploadDir, "photo.jpg"), []byte("jpeg"), 0o600))

	info, err := f.svc.GetFileInfo(ctx, "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size)
	assert.Equal(t, "image/jpeg", info.Type)

	_, err = f.svc.GetFileInfo(ctx, "../etc/passwd")
	assert.EqualError(t, err, "Invalid filename")
	_, err = f.svc.GetFileInfo(ctx, "missing.png")
	requireStatus(t, err, http.StatusNotFound)

	err = f.svc.DeleteFile(ctx, caller(owner), DeleteFileInput{FilePath: "../../secret"})
	assert.EqualError(t, err, "Invalid file path")
	err = f.svc.DeleteFile(ctx, caller(other), DeleteFileInput{FilePath: "photo.jpg", IssueID: it.ID})
	requireStatus(t, err, http.StatusForbidden)
	err = f.svc.DeleteFile(ctx, caller(other), DeleteFileInput{FilePath: "photo.jpg", IssueID: mine.ID})
	requireStatus(t, err, http.StatusForbidden)
	err = f.svc.DeleteFile(ctx, caller(other), DeleteFileInput{FilePath: "photo.jpg"})
	requireStatus(t, err, http.StatusForbidden)
	_, err = os.Stat(filepath.Join(f.svc.cfg.UploadDir, "photo.jpg"))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteFile(ctx, caller(owner), DeleteFileInput{FilePath: "photo.jpg", IssueID: it.ID}))
	_, err = os.Stat(filepath.Join(f.svc.cfg.UploadDir, "photo.jpg"))
	assert.True(t, os.IsNotExist(err))

	requireStatus(t, f.svc.UploadFile(ctx, caller(owner), "issue"), http.StatusNotImplemented)
}

func TestNewPageClamps(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Limit: 10, Offset: 0}, NewPage(0, 0, 10, 100))
	assert.Equal(t, Page{Page: 3, Limit: 100, Offset: 200}, NewPage(3, 500, 10, 100))
	assert.Equal(t, 3, newPagination(NewPage(1, 10, 10, 100), 21).Pages)
}
