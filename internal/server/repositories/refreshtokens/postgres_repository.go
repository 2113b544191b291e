package refreshtokens

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

func (r *PostgresRepository) Insert(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error) {

	if token.ID == "" {
		token.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO refresh_tokens (id, user_id, tenant_id, token_hash, family_id, expires_at)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		token.ID, token.UserID, token.TenantID, token.TokenHash,
		token.FamilyID, token.ExpiresAt).Scan(&token.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}

// FindActiveByHash returns the single non-revoked record for tokenHash.
// A partial unique index guarantees at most one exists.
func (r *PostgresRepository) FindActiveByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query :=
		`SELECT id, user_id, tenant_id, token_hash, family_id, expires_at, revoked_at, created_at
		 FROM refresh_tokens
		 WHERE token_hash = $1 AND revoked_at IS NULL
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, tokenHash))
}

// FindByHash returns the newest record for tokenHash regardless of state.
// The rotator uses it to recognize replay of an already-revoked token.
func (r *PostgresRepository) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query :=
		`SELECT id, user_id, tenant_id, token_hash, family_id, expires_at, revoked_at, created_at
		 FROM refresh_tokens
		 WHERE token_hash = $1
		 ORDER BY created_at DESC
		 LIMIT 1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, tokenHash))
}

// RevokeActive marks the record revoked only if it is still active, and
// reports whether this call was the one that revoked it. Concurrent rotations
// of the same record race on this statement; the loser observes false and
// must abandon its transaction.
func (r *PostgresRepository) RevokeActive(ctx context.Context, id string) (bool, error) {
	query :=
		`UPDATE refresh_tokens SET revoked_at = now()
		 WHERE id = $1 AND revoked_at IS NULL
		 `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return affected == 1, nil
}

// RevokeAllByHash revokes any active record matching tokenHash. Zero matches
// is success: logout is idempotent.
func (r *PostgresRepository) RevokeAllByHash(ctx context.Context, tokenHash string) error {
	query :=
		`UPDATE refresh_tokens SET revoked_at = now()
		 WHERE token_hash = $1 AND revoked_at IS NULL
		 `

	if _, err := r.db.ExecContext(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// RevokeFamily revokes every active record in a rotation family. Used as the
// breach response when a revoked token is replayed.
func (r *PostgresRepository) RevokeFamily(ctx context.Context, familyID string) error {
	query :=
		`UPDATE refresh_tokens SET revoked_at = now()
		 WHERE family_id = $1 AND revoked_at IS NULL
		 `

	if _, err := r.db.ExecContext(ctx, query, familyID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.RefreshToken, error) {
	token := &models.RefreshToken{}
	var revokedAt sql.NullTime

	err := row.Scan(&token.ID, &token.UserID, &token.TenantID, &token.TokenHash,
		&token.FamilyID, &token.ExpiresAt, &revokedAt, &token.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if revokedAt.Valid {
		token.RevokedAt = &revokedAt.Time
	}

	return token, nil
}
