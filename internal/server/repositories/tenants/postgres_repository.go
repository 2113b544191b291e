package tenants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/convodesk/convoauth/internal/common"
	"github.com/convodesk/convoauth/internal/dbx"
	"github.com/convodesk/convoauth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error) {

	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO tenants (id, name, admin_user_id)
         VALUES ($1, $2, $3)
         RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		tenant.ID, tenant.Name, tenant.AdminUserID).Scan(&tenant.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return tenant, nil
}

func (r *PostgresRepository) GetByAdminUserID(ctx context.Context, userID string) (*models.Tenant, error) {
	query :=
		`SELECT id, name, admin_user_id, created_at FROM tenants
		 WHERE admin_user_id = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	query :=
		`SELECT id, name, admin_user_id, created_at FROM tenants
		 WHERE id = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	err := row.Scan(&tenant.ID, &tenant.Name, &tenant.AdminUserID, &tenant.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return tenant, nil
}
