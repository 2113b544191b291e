package services

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/convodesk/convoauth/internal/dbx"
	"github.com/convodesk/convoauth/internal/logging"
	"github.com/convodesk/convoauth/internal/server/auth"
	"github.com/convodesk/convoauth/internal/server/models"
	channelsrepo "github.com/convodesk/convoauth/internal/server/repositories/channels"
	refreshtokensrepo "github.com/convodesk/convoauth/internal/server/repositories/refreshtokens"
	tenantsrepo "github.com/convodesk/convoauth/internal/server/repositories/tenants"
	usersrepo "github.com/convodesk/convoauth/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newTestIssuer() *auth.Issuer {
	return auth.NewIssuer("access-k", "refresh-k", 15*time.Minute, 30*24*time.Hour)
}

func newTestLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

// --- fake repositories ---

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	byEmailOut *models.User
	byEmailErr error

	byIDOut *models.User
	byIDErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	if u.ID == "" {
		u.ID = "u1"
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	return f.byEmailOut, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byIDOut, nil
}

type fakeTenantsRepo struct {
	createErr error

	byAdminOut *models.Tenant
	byAdminErr error
}

func (f *fakeTenantsRepo) Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if tenant.ID == "" {
		tenant.ID = "t1"
	}
	return tenant, nil
}

func (f *fakeTenantsRepo) GetByAdminUserID(ctx context.Context, userID string) (*models.Tenant, error) {
	if f.byAdminErr != nil {
		return nil, f.byAdminErr
	}
	return f.byAdminOut, nil
}

func (f *fakeTenantsRepo) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	return f.byAdminOut, f.byAdminErr
}

type fakeChannelsRepo struct {
	createErr error
	created   []*models.Channel
}

func (f *fakeChannelsRepo) Create(ctx context.Context, channel *models.Channel) (*models.Channel, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if channel.ID == "" {
		channel.ID = "c1"
	}
	f.created = append(f.created, channel)
	return channel, nil
}

type fakeLedgerRepo struct {
	insertErr error
	inserted  []*models.RefreshToken

	findActiveOut *models.RefreshToken
	findActiveErr error

	findByHashOut *models.RefreshToken
	findByHashErr error

	revokeActiveWon bool
	revokeActiveErr error
	revokedIDs      []string

	revokeAllErr    error
	revokedHashes   []string
	revokeFamilyErr error
	revokedFamilies []string
}

func (f *fakeLedgerRepo) Insert(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	if token.ID == "" {
		token.ID = "rt-new"
	}
	f.inserted = append(f.inserted, token)
	return token, nil
}

func (f *fakeLedgerRepo) FindActiveByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	if f.findActiveErr != nil {
		return nil, f.findActiveErr
	}
	return f.findActiveOut, nil
}

func (f *fakeLedgerRepo) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	if f.findByHashErr != nil {
		return nil, f.findByHashErr
	}
	return f.findByHashOut, nil
}

func (f *fakeLedgerRepo) RevokeActive(ctx context.Context, id string) (bool, error) {
	if f.revokeActiveErr != nil {
		return false, f.revokeActiveErr
	}
	f.revokedIDs = append(f.revokedIDs, id)
	return f.revokeActiveWon, nil
}

func (f *fakeLedgerRepo) RevokeAllByHash(ctx context.Context, tokenHash string) error {
	if f.revokeAllErr != nil {
		return f.revokeAllErr
	}
	f.revokedHashes = append(f.revokedHashes, tokenHash)
	return nil
}

func (f *fakeLedgerRepo) RevokeFamily(ctx context.Context, familyID string) error {
	if f.revokeFamilyErr != nil {
		return f.revokeFamilyErr
	}
	f.revokedFamilies = append(f.revokedFamilies, familyID)
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	t *fakeTenantsRepo
	c *fakeChannelsRepo
	r *fakeLedgerRepo
}

func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Tenants(db dbx.DBTX) tenantsrepo.Repository   { return m.t }
func (m *fakeRepoManager) Channels(db dbx.DBTX) channelsrepo.Repository { return m.c }
func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository {
	return m.r
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: &fakeUsersRepo{},
		t: &fakeTenantsRepo{},
		c: &fakeChannelsRepo{},
		r: &fakeLedgerRepo{},
	}
}
