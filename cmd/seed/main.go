// Seeds a demo tenant with an admin user and an active channel. Intended for
// local development and CI, not production.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/convodesk/convoauth/internal/common"
	"github.com/convodesk/convoauth/internal/dbx"
	"github.com/convodesk/convoauth/internal/server/auth"
	"github.com/convodesk/convoauth/internal/server/config"
	"github.com/convodesk/convoauth/internal/server/models"
	"github.com/convodesk/convoauth/internal/server/repositories/repomanager"
)

const (
	adminEmail    = "admin@demo.com"
	adminName     = "Admin"
	adminPassword = "Admin123!"
	tenantName    = "Demo Business"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	if err := run(ctx, cfg); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db open error: %w", err)
	}
	defer db.Close()

	repos := repomanager.NewPostgresRepositoryManager()

	if err := repos.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	if _, err := repos.Users(db).GetByEmail(ctx, adminEmail); err == nil {
		log.Printf("seed skipped: %s already exists", adminEmail)
		return nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("seed check error: %w", err)
	}

	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("password hash error: %w", err)
	}

	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, txErr := repos.Users(tx).Create(ctx, &models.User{
			Email:        adminEmail,
			Name:         adminName,
			PasswordHash: hash,
		})
		if txErr != nil {
			return txErr
		}

		tenant, txErr := repos.Tenants(tx).Create(ctx, &models.Tenant{
			Name:        tenantName,
			AdminUserID: user.ID,
		})
		if txErr != nil {
			return txErr
		}

		_, txErr = repos.Channels(tx).Create(ctx, &models.Channel{
			TenantID:    tenant.ID,
			DisplayName: "Principal",
			Status:      "active",
		})
		return txErr
	})
	if err != nil {
		return fmt.Errorf("seed error: %w", err)
	}

	log.Printf("seed done: user=%s tenant=%q", adminEmail, tenantName)
	return nil
}
