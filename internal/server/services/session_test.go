package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convodesk/convoauth/internal/common"
	"github.com/convodesk/convoauth/internal/server/auth"
	"github.com/convodesk/convoauth/internal/server/models"
)

func activeRecord(issuer *auth.Issuer, raw string) *models.RefreshToken {
	return &models.RefreshToken{
		ID:        "rt1",
		UserID:    "u1",
		TenantID:  "t1",
		TokenHash: auth.HashToken(raw),
		FamilyID:  "fam1",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

func TestSessionServiceRotate(t *testing.T) {
	ctx := context.Background()
	issuer := newTestIssuer()

	raw, err := issuer.IssueRefreshToken("u1", "t1", "fam1")
	require.NoError(t, err)

	user := &models.User{ID: "u1", Email: "jane@acme.test", Name: "Jane"}

	t.Run("revokes the old record and keeps the family", func(t *testing.T) {
		db, mock := newSQLMockDB(t)
		defer db.Close()
		repos := newFakeRepoManager()
		repos.u.byIDOut = user
		repos.r.findActiveOut = activeRecord(issuer, raw)
		repos.r.revokeActiveWon = true

		mock.ExpectBegin()
		mock.ExpectCommit()

		svc := NewSessionService(db, repos, issuer, newTestLogger())

		pair, err := svc.Rotate(ctx, raw)
		require.NoError(t, err)
		require.NotNil(t, pair)
		assert.NotEqual(t, raw, pair.RefreshToken)

		assert.Equal(t, []string{"rt1"}, repos.r.revokedIDs)
		require.Len(t, repos.r.inserted, 1)
		successor := repos.r.inserted[0]
		assert.Equal(t, "fam1", successor.FamilyID)
		assert.Equal(t, "u1", successor.UserID)
		assert.Equal(t, auth.HashToken(pair.RefreshToken), successor.TokenHash)

		claims, err := issuer.ParseRefreshToken(pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, "fam1", claims.FamilyID)

		accessClaims, err := issuer.ParseAccessToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "u1", accessClaims.Subject)
		assert.Equal(t, "jane@acme.test", accessClaims.Email)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loser of a concurrent rotation commits nothing", func(t *testing.T) {
		db, mock := newSQLMockDB(t)
		defer db.Close()
		repos := newFakeRepoManager()
		repos.u.byIDOut = user
		repos.r.findActiveOut = activeRecord(issuer, raw)
		repos.r.revokeActiveWon = false

		mock.ExpectBegin()
		mock.ExpectRollback()

		svc := NewSessionService(db, repos, issuer, newTestLogger())

		_, err := svc.Rotate(ctx, raw)
		assert.ErrorIs(t, err, common.ErrSessionExpiredOrRevoked)
		assert.Empty(t, repos.r.inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("replaying a revoked token burns the family", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		defer db.Close()
		revokedAt := time.Now().Add(-time.Minute)
		repos := newFakeRepoManager()
		repos.r.findActiveErr = common.ErrNotFound
		repos.r.findByHashOut = &models.RefreshToken{
			ID:        "rt1",
			UserID:    "u1",
			TenantID:  "t1",
			TokenHash: auth.HashToken(raw),
			FamilyID:  "fam1",
			ExpiresAt: time.Now().Add(24 * time.Hour),
			RevokedAt: &revokedAt,
		}

		svc := NewSessionService(db, repos, issuer, newTestLogger())

		_, err := svc.Rotate(ctx, raw)
		assert.ErrorIs(t, err, common.ErrSessionExpiredOrRevoked)
		assert.Equal(t, []string{"fam1"}, repos.r.revokedFamilies)
	})

	t.Run("a token never recorded fails without touching any family", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		defer db.Close()
		repos := newFakeRepoManager()
		repos.r.findActiveErr = common.ErrNotFound
		repos.r.findByHashErr = common.ErrNotFound

		svc := NewSessionService(db, repos, issuer, newTestLogger())

		_, err := svc.Rotate(ctx, raw)
		assert.ErrorIs(t, err, common.ErrSessionExpiredOrRevoked)
		assert.Empty(t, repos.r.revokedFamilies)
	})

	t.Run("rejects a record past its expiry", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		defer db.Close()
		record := activeRecord(issuer, raw)
		record.ExpiresAt = time.Now().Add(-time.Minute)
		repos := newFakeRepoManager()
		repos.r.findActiveOut = record

		svc := NewSessionService(db, repos, issuer, newTestLogger())

		_, err := svc.Rotate(ctx, raw)
		assert.ErrorIs(t, err, common.ErrSessionExpiredOrRevoked)
	})

	t.Run("rejects a record whose identity disagrees with the claims", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		defer db.Close()
		record := activeRecord(issuer, raw)
		record.UserID = "someone-else"
		repos := newFakeRepoManager()
		repos.r.findActiveOut = record

		svc := NewSessionService(db, repos, issuer, newTestLogger())

		_, err := svc.Rotate(ctx, raw)
		assert.ErrorIs(t, err, common.ErrSessionExpiredOrRevoked)
	})

	t.Run("rejects garbage without hitting the ledger", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		defer db.Close()
		repos := newFakeRepoManager()
		repos.r.findActiveErr = common.ErrInternal

		svc := NewSessionService(db, repos, issuer, newTestLogger())

		_, err := svc.Rotate(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, common.ErrSessionExpiredOrRevoked)
	})
}

func TestSessionServiceRevoke(t *testing.T) {
	ctx := context.Background()
	issuer := newTestIssuer()

	raw, err := issuer.IssueRefreshToken("u1", "t1", "fam1")
	require.NoError(t, err)

	t.Run("revokes every record matching the token hash", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		defer db.Close()
		repos := newFakeRepoManager()

		svc := NewSessionService(db, repos, issuer, newTestLogger())

		require.NoError(t, svc.Revoke(ctx, raw))
		assert.Equal(t, []string{auth.HashToken(raw)}, repos.r.revokedHashes)
	})

	t.Run("an empty token is a no-op", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		defer db.Close()
		repos := newFakeRepoManager()

		svc := NewSessionService(db, repos, issuer, newTestLogger())

		require.NoError(t, svc.Revoke(ctx, ""))
		assert.Empty(t, repos.r.revokedHashes)
	})

	t.Run("surfaces store failures", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		defer db.Close()
		repos := newFakeRepoManager()
		repos.r.revokeAllErr = common.ErrInternal

		svc := NewSessionService(db, repos, issuer, newTestLogger())

		assert.Error(t, svc.Revoke(ctx, raw))
	})
}
