package channels

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/convodesk/convoauth/internal/dbx"
	"github.com/convodesk/convoauth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, channel *models.Channel) (*models.Channel, error) {

	if channel.ID == "" {
		channel.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO channels (id, tenant_id, wa_phone_number_id, wa_business_id, display_name, status)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		channel.ID, channel.TenantID, channel.WAPhoneNumberID, channel.WABusinessID,
		channel.DisplayName, channel.Status).Scan(&channel.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return channel, nil
}
