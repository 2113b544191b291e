package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/convodesk/convoauth/internal/common"
	"github.com/convodesk/convoauth/internal/dbx"
	"github.com/convodesk/convoauth/internal/logging"
	"github.com/convodesk/convoauth/internal/server/auth"
	"github.com/convodesk/convoauth/internal/server/models"
	"github.com/convodesk/convoauth/internal/server/repositories/repomanager"
)

// SessionService rotates and revokes refresh sessions. Ledger records move
// through three states: ACTIVE (revoked_at null, not expired), EXPIRED
// (revoked_at null, past expiry) and REVOKED (revoked_at set); only ACTIVE
// accepts rotation. Records are never deleted.
type SessionService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	issuer *auth.Issuer
	logger logging.Logger
}

func NewSessionService(db *sql.DB, repos repomanager.RepositoryManager, issuer *auth.Issuer, logger logging.Logger) *SessionService {
	return &SessionService{
		db:     db,
		repos:  repos,
		issuer: issuer,
		logger: logger.With("module", "session_service"),
	}
}

// Rotate exchanges a valid refresh token for a fresh token pair. The current
// ledger record is revoked and its successor inserted in one transaction
// with the same family; the expiry of the old record is never extended.
//
// Replaying an already-revoked token burns its whole family: any stolen link
// of the chain becomes useless once the legitimate client has rotated past it.
func (s *SessionService) Rotate(ctx context.Context, rawToken string) (*TokenPair, error) {

	claims, err := s.issuer.ParseRefreshToken(rawToken)
	if err != nil {
		return nil, common.ErrSessionExpiredOrRevoked
	}

	tokenHash := auth.HashToken(rawToken)

	record, err := s.repos.RefreshTokens(s.db).FindActiveByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, s.handleMissingRecord(ctx, tokenHash)
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	if !record.Active(time.Now()) {
		return nil, common.ErrSessionExpiredOrRevoked
	}

	// claims and ledger must agree on the session's identity
	if claims.Subject != record.UserID || claims.FamilyID != record.FamilyID {
		return nil, common.ErrSessionExpiredOrRevoked
	}

	user, err := s.repos.Users(s.db).GetByID(ctx, record.UserID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	refresh, err := s.issuer.IssueRefreshToken(record.UserID, record.TenantID, record.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("error issuing refresh token: %w", err)
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ledger := s.repos.RefreshTokens(tx)

		won, txErr := ledger.RevokeActive(ctx, record.ID)
		if txErr != nil {
			return txErr
		}
		if !won {
			// concurrent rotation revoked it first; abandon, commit nothing
			return common.ErrSessionExpiredOrRevoked
		}

		_, txErr = ledger.Insert(ctx, &models.RefreshToken{
			UserID:    record.UserID,
			TenantID:  record.TenantID,
			TokenHash: auth.HashToken(refresh),
			FamilyID:  record.FamilyID,
			ExpiresAt: time.Now().Add(s.issuer.RefreshTTL()),
		})
		return txErr
	}); err != nil {
		if errors.Is(err, common.ErrSessionExpiredOrRevoked) {
			return nil, common.ErrSessionExpiredOrRevoked
		}
		return nil, fmt.Errorf("error rotating refresh token: %w", err)
	}

	access, err := s.issuer.IssueAccessToken(user.ID, record.TenantID, user.Email, auth.RoleOwner)
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}

	return &TokenPair{
		AccessToken:          access,
		RefreshToken:         refresh,
		AccessTokenExpiresIn: int(s.issuer.AccessTTL().Seconds()),
	}, nil
}

// handleMissingRecord distinguishes "never seen" from "seen and revoked".
// The latter is token reuse inside a known family and revokes the family.
func (s *SessionService) handleMissingRecord(ctx context.Context, tokenHash string) error {

	previous, err := s.repos.RefreshTokens(s.db).FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrSessionExpiredOrRevoked
		}
		return fmt.Errorf("error searching refresh token: %w", err)
	}

	if previous.Revoked() {
		s.logger.Warn(ctx, "refresh token reuse detected, revoking family",
			"family_id", previous.FamilyID, "user_id", previous.UserID)
		if err := s.repos.RefreshTokens(s.db).RevokeFamily(ctx, previous.FamilyID); err != nil {
			return fmt.Errorf("error revoking token family: %w", err)
		}
	}

	return common.ErrSessionExpiredOrRevoked
}

// Revoke ends the session for a raw refresh token (logout). An absent or
// unknown token is a no-op success: logout is idempotent and never fails
// from the caller's perspective unless the store itself does.
func (s *SessionService) Revoke(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}

	if err := s.repos.RefreshTokens(s.db).RevokeAllByHash(ctx, auth.HashToken(rawToken)); err != nil {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}

	return nil
}
