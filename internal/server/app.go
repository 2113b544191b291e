// Package server initializes and runs the auth server. It opens the
// database, applies migrations, wires the services onto the HTTP surface
// and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/convodesk/convoauth/internal/logging"
	"github.com/convodesk/convoauth/internal/server/auth"
	"github.com/convodesk/convoauth/internal/server/config"
	"github.com/convodesk/convoauth/internal/server/repositories/repomanager"
	"github.com/convodesk/convoauth/internal/server/services"
	"github.com/convodesk/convoauth/internal/server/web"
	"github.com/convodesk/convoauth/internal/server/web/handlers"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	repos  repomanager.RepositoryManager
	server *web.Server
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// driver registered by the repomanager package
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	issuer := auth.NewIssuer(cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration)

	authService := services.NewAuthService(db, repos, issuer, logger)
	sessionService := services.NewSessionService(db, repos, issuer, logger)

	handler := handlers.NewAuthHandler(authService, sessionService, cfg.RefreshTokenValidityDuration, logger)
	router := web.NewRouter(handler, issuer)
	srv := web.NewServer(cfg.EndpointAddrHTTP, router, logger)

	return &App{config: cfg, logger: logger, db: db, repos: repos, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// waitForDB pings until the database accepts connections. The database
// container often comes up a few seconds after the server does.
func (app *App) waitForDB(ctx context.Context) error {
	backoff := retry.WithMaxRetries(10, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := app.db.PingContext(ctx); err != nil {
			app.logger.Warn(ctx, "database not ready, retrying", "error", err.Error())
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.waitForDB(ctx); err != nil {
		return fmt.Errorf("db connection error: %w", err)
	}

	if err := app.repos.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}

	return nil
}
