package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "pgx"), mock
}

func TestWhereBuilder(t *testing.T) {
	empty := ""
	role := "admin"

	w := newWhere("org_id = ?", "org-1")
	w.eq("role", &role)
	w.eq("status", nil)
	w.eq("email", &empty)
	w.in("status", []string{"open", "in_progress"})
	w.in("kind", nil)
	w.search("  Jane ", "name", "email")

	assert.Equal(t,
		` WHERE org_id = ? AND role = ? AND status IN (?,?) AND (LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`,
		w.sql())
	want := []any{"org-1", "admin", "open", "in_progress", "%jane%", "%jane%"}
	if diff := cmp.Diff(want, w.args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchEscapesWildcards(t *testing.T) {
	w := &whereBuilder{}
	w.search(`100%_off\`, "title")
	if diff := cmp.Diff([]any{`%100\%\_off\\%`}, w.args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestPageNormalized(t *testing.T) {
	assert.Equal(t, Page{Limit: 25, Offset: 0}, Page{Limit: 0, Offset: -3}.normalized())
	assert.Equal(t, Page{Limit: 5, Offset: 10}, Page{Limit: 5, Offset: 10}.normalized())
}

func TestSelectPageRebindsForPostgres(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	role := "analyst"

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users WHERE org_id = $1 AND role = $2`)).
		WithArgs("org-1", "analyst").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE org_id = $1 AND role = $2 ORDER BY name ASC LIMIT $3 OFFSET $4`)).
		WithArgs("org-1", "analyst", 2, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "email", "name", "role", "status"}).
			AddRow("u-3", "org-1", "c@example.com", "Carol", "analyst", "active"))

	users, total, err := repo.List(context.Background(), "org-1", UserFilter{Role: &role, Page: Page{Limit: 2, Offset: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, users, 1)
	assert.Equal(t, domain.RoleAnalyst, users[0].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalUpdateRequiresPendingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewApprovalRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE approvals SET status=$1`)).
		WithArgs("approved", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "a-1", "org-1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &domain.Approval{ID: "a-1", OrgID: "org-1", Status: domain.ApprovalApproved})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewApprovalRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM approvals WHERE org_id=$1 AND status=$2`)).
		WithArgs("org-1", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountPending(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
