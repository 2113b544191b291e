package channels

import (
	"context"

	"github.com/convodesk/convoauth/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, channel *models.Channel) (*models.Channel, error)
}
