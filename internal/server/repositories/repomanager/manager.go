// Package repomanager builds repositories over a shared DB handle or an open
// transaction, so services can run the same repository code inside and
// outside dbx.WithTx.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/convodesk/convoauth/internal/dbx"
	"github.com/convodesk/convoauth/internal/server/repositories/channels"
	"github.com/convodesk/convoauth/internal/server/repositories/refreshtokens"
	"github.com/convodesk/convoauth/internal/server/repositories/tenants"
	"github.com/convodesk/convoauth/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Tenants(db dbx.DBTX) tenants.Repository
	Channels(db dbx.DBTX) channels.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
