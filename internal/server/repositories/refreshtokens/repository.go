package refreshtokens

import (
	"context"

	"github.com/convodesk/convoauth/internal/server/models"
)

// Repository is the refresh-token ledger. Records are appended on issuance
// and revoked on rotation/logout; they are never deleted, forming the audit
// trail of every session chain.
type Repository interface {
	Insert(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error)
	FindActiveByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeActive(ctx context.Context, id string) (bool, error)
	RevokeAllByHash(ctx context.Context, tokenHash string) error
	RevokeFamily(ctx context.Context, familyID string) error
}
