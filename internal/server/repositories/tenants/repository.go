package tenants

import (
	"context"

	"github.com/convodesk/convoauth/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error)
	GetByAdminUserID(ctx context.Context, userID string) (*models.Tenant, error)
	GetByID(ctx context.Context, id string) (*models.Tenant, error)
}
