package tenants

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/convodesk/convoauth/internal/common"
	"github.com/convodesk/convoauth/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+tenants\b.*VALUES\s*\(\$1,\s*\$2,\s*\$3\).*RETURNING\s+created_at\s*$`

	mock.ExpectQuery(q).
		WithArgs(sqlmock.AnyArg(), "biz", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	tenant, err := repo.Create(context.Background(), &models.Tenant{Name: "biz", AdminUserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenant.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestGetByAdminUserID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*name,\s*admin_user_id,\s*created_at\s+FROM\s+tenants\s+WHERE\s+admin_user_id\s*=\s*\$1\s*$`

	rows := sqlmock.NewRows([]string{"id", "name", "admin_user_id", "created_at"}).
		AddRow("t1", "biz", "u1", time.Now())

	mock.ExpectQuery(q).WithArgs("u1").WillReturnRows(rows)

	got, err := repo.GetByAdminUserID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "t1" || got.AdminUserID != "u1" {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestGetByAdminUserID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*name,\s*admin_user_id,\s*created_at\s+FROM\s+tenants\s+WHERE\s+admin_user_id\s*=\s*\$1\s*$`

	mock.ExpectQuery(q).WithArgs("nobody").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByAdminUserID(context.Background(), "nobody")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}
