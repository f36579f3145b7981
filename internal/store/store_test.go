package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicconnect/internal/db"
	"civicconnect/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	sqdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "store.db"), 1, 1, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqdb.Close() })
	require.NoError(t, db.ApplyMigrationFile(sqdb, filepath.Join("..", "..", "migrations", "001_init.sql")))
	return New(sqdb, "sqlite")
}

func seedUser(t *testing.T, st *Store, email string) models.User {
	t.Helper()
	u, err := st.CreateUser(context.Background(), models.User{
		Email: email, PasswordHash: "x", FirstName: "Ada", LastName: "Lovelace",
		Role: models.RoleCitizen, IsActive: true, EmailVerified: true,
	})
	require.NoError(t, err)
	return u
}

func TestRebindForPostgres(t *testing.T) {
	pg := New(nil, "postgres")
	assert.Equal(t, "SELECT 1 FROM t WHERE a=$1 AND b=$2", pg.q("SELECT 1 FROM t WHERE a=? AND b=?"))

	lite := New(nil, "sqlite")
	assert.Equal(t, "SELECT 1 FROM t WHERE a=?", lite.q("SELECT 1 FROM t WHERE a=?"))
}

func TestIsUniqueViolationPerDriver(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &mysql.MySQLError{Number: 1062})))
	assert.True(t, isUniqueViolation(fmt.Errorf("UNIQUE constraint failed: users.email")))
	assert.False(t, isUniqueViolation(fmt.Errorf("disk full")))
}

func TestCreateUserDuplicateEmailIsConflict(t *testing.T) {
	st := newTestStore(t)
	seedUser(t, st, "Dup@Example.com")

	_, err := st.CreateUser(context.Background(), models.User{
		Email: "dup@example.com", PasswordHash: "x", FirstName: "A", LastName: "B", Role: models.RoleCitizen,
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUpvoteUniquenessAndRecount(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	u := seedUser(t, st, "voter@example.com")
	it, err := st.CreateIssue(ctx, models.Issue{UserID: u.ID, Title: "Broken light", Description: "Dark corner at night", Category: "lighting", Priority: "medium", Status: "open"})
	require.NoError(t, err)

	require.NoError(t, st.AddUpvote(ctx, it.ID, u.ID))
	assert.ErrorIs(t, st.AddUpvote(ctx, it.ID, u.ID), ErrConflict)

	n, err := st.RecountUpvotes(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, st.RemoveUpvote(ctx, it.ID, u.ID))
	assert.ErrorIs(t, st.RemoveUpvote(ctx, it.ID, u.ID), ErrNotFound)
	n, err = st.RecountUpvotes(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestListIssuesFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	u := seedUser(t, st, "lister@example.com")
	for i := 0; i < 5; i++ {
		status := "open"
		if i%2 == 0 {
			status = "resolved"
		}
		_, err := st.CreateIssue(ctx, models.Issue{UserID: u.ID, Title: fmt.Sprintf("Issue %d", i), Description: "Something is broken here", Category: "roads", Priority: "low", Status: status})
		require.NoError(t, err)
	}

	items, total, err := st.ListIssues(ctx, models.IssueQuery{Status: "resolved", Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, "resolved", it.Status)
	}
	assert.True(t, items[0].ID > items[1].ID, "newest first")
}

func TestSearchIsLiteralAndCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	u := seedUser(t, st, "search@example.com")
	for _, title := range []string{"Water LEAK on 5th", "100% blocked drain", "Broken bench"} {
		_, err := st.CreateIssue(ctx, models.Issue{UserID: u.ID, Title: title, Description: "Needs a crew this week", Category: "other", Priority: "low", Status: "open"})
		require.NoError(t, err)
	}

	items, total, err := st.ListIssues(ctx, models.IssueQuery{Search: "water leak", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Water LEAK on 5th", items[0].Title)

	_, total, err = st.ListIssues(ctx, models.IssueQuery{Search: "%", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, total, err = st.ListIssues(ctx, models.IssueQuery{Search: "_", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)

	assert.Equal(t, "%a!%b!_c!!%", likePattern("A%b_C!"))
}

func TestDeleteIssueRemovesChildren(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	u := seedUser(t, st, "owner@example.com")
	it, err := st.CreateIssue(ctx, models.Issue{UserID: u.ID, Title: "Graffiti wall", Description: "Paint all over the wall", Category: "graffiti", Priority: "low", Status: "open"})
	require.NoError(t, err)
	require.NoError(t, st.AddUpvote(ctx, it.ID, u.ID))
	_, err = st.CreateComment(ctx, models.Comment{IssueID: it.ID, UserID: u.ID, Content: "Seen it too"})
	require.NoError(t, err)

	require.NoError(t, st.DeleteIssue(ctx, it.ID))
	_, err = st.GetIssue(ctx, it.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	n, err := st.count(ctx, `SELECT COUNT(*) FROM comments`)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.ErrorIs(t, st.DeleteIssue(ctx, it.ID), ErrNotFound)
}

func TestIncrementRateEventCountsPerWindow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	w := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	for want := 1; want <= 3; want++ {
		got, err := st.IncrementRateEvent(ctx, "a@example.com", "login", w)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := st.IncrementRateEvent(ctx, "a@example.com", "login", w.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	require.NoError(t, st.CleanupRateEventsBefore(ctx, w.Add(30*time.Second)))
	got, err = st.IncrementRateEvent(ctx, "a@example.com", "login", w)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}
