// Package services contains the server-side business logic: registration and
// login (AuthService) and the refresh-session state machine (SessionService).
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
	"github.com/convodesk/convoauth/internal/randx"
	"github.com/convodesk/convoauth/internal/server/auth"
	"github.com/convodesk/convoauth/internal/server/models"
	"github.com/convodesk/convoauth/internal/server/repositories/repomanager"
)

// TokenPair bundles a freshly minted access token and the raw refresh token
// that goes into the client cookie.
type TokenPair struct {
	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresIn int
}

// Session is the result of a successful registration or login.
type Session struct {
	User   *models.User
	Tenant *models.Tenant
	Tokens *TokenPair
}

// familyIDBytes sets the entropy of a new rotation family id: 16 random
// bytes, 128 bits.
const familyIDBytes = 16

// AuthService handles registration and login: credential verification,
// tenant resolution, and issuance of the initial token pair.
type AuthService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	issuer *auth.Issuer
	logger logging.Logger
}

func NewAuthService(db *sql.DB, repos repomanager.RepositoryManager, issuer *auth.Issuer, logger logging.Logger) *AuthService {
	return &AuthService{
		db:     db,
		repos:  repos,
		issuer: issuer,
		logger: logger.With("module", "auth_service"),
	}
}

// Register creates a user with a hashed password, the tenant it administers,
// and the tenant's placeholder channel, all in one transaction, then mints
// the first token pair of a new session family.
func (s *AuthService) Register(ctx context.Context, businessName, name, email, password string) (*Session, error) {

	if _, err := s.repos.Users(s.db).GetByEmail(ctx, email); err == nil {
		return nil, common.ErrEmailAlreadyExists
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("error checking email: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	var (
		user   *models.User
		tenant *models.Tenant
	)
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var txErr error

		user, txErr = s.repos.Users(tx).Create(ctx, &models.User{
			Email:        email,
			Name:         name,
			PasswordHash: hash,
		})
		if txErr != nil {
			return txErr
		}

		tenant, txErr = s.repos.Tenants(tx).Create(ctx, &models.Tenant{
			Name:        businessName,
			AdminUserID: user.ID,
		})
		if txErr != nil {
			return txErr
		}

		// placeholder channel; activation happens outside this service
		_, txErr = s.repos.Channels(tx).Create(ctx, &models.Channel{
			TenantID:    tenant.ID,
			DisplayName: "Principal",
			Status:      "inactive",
		})
		return txErr
	}); err != nil {
		if errors.Is(err, common.ErrEmailAlreadyExists) {
			return nil, common.ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("error registering user: %w", err)
	}

	pair, err := s.issueSession(ctx, user, tenant)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "tenant registered", "user_id", user.ID, "tenant_id", tenant.ID)

	return &Session{User: user, Tenant: tenant, Tokens: pair}, nil
}

// Login verifies credentials and mints a token pair for a new session
// family. Unknown email, wrong password, and a user without a tenant all
// fail with the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {

	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	tenant, err := s.repos.Tenants(s.db).GetByAdminUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching tenant: %w", err)
	}

	pair, err := s.issueSession(ctx, user, tenant)
	if err != nil {
		return nil, err
	}

	return &Session{User: user, Tenant: tenant, Tokens: pair}, nil
}

// issueSession starts a new rotation family: mints both tokens and appends
// the refresh token's digest to the ledger.
func (s *AuthService) issueSession(ctx context.Context, user *models.User, tenant *models.Tenant) (*TokenPair, error) {

	familyID, err := randx.MakeRandHexString(familyIDBytes)
	if err != nil {
		return nil, fmt.Errorf("error generating family id: %w", err)
	}

	access, err := s.issuer.IssueAccessToken(user.ID, tenant.ID, user.Email, auth.RoleOwner)
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}

	refresh, err := s.issuer.IssueRefreshToken(user.ID, tenant.ID, familyID)
	if err != nil {
		return nil, fmt.Errorf("error issuing refresh token: %w", err)
	}

	_, err = s.repos.RefreshTokens(s.db).Insert(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TenantID:  tenant.ID,
		TokenHash: auth.HashToken(refresh),
		FamilyID:  familyID,
		ExpiresAt: time.Now().Add(s.issuer.RefreshTTL()),
	})
	if err != nil {
		return nil, fmt.Errorf("error persisting refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:          access,
		RefreshToken:         refresh,
		AccessTokenExpiresIn: int(s.issuer.AccessTTL().Seconds()),
	}, nil
}
