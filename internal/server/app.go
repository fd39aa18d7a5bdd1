// Package server wires configuration, storage, services and transports into
// the running consentkeeper process and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/consentkeeper/internal/logging"
	"github.com/dmitrijs2005/consentkeeper/internal/server/archive"
	"github.com/dmitrijs2005/consentkeeper/internal/server/config"
	"github.com/dmitrijs2005/consentkeeper/internal/server/identity"
	"github.com/dmitrijs2005/consentkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/consentkeeper/internal/server/rest"
	"github.com/dmitrijs2005/consentkeeper/internal/server/rest/middleware"
	"github.com/dmitrijs2005/consentkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/consentkeeper/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *rest.Server
	health *gs.HealthServer
}

// OpenDatabase connects to PostgreSQL and verifies the connection.
func OpenDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// NewArchive returns an S3 archive when a bucket is configured and a no-op
// archive otherwise.
func NewArchive(ctx context.Context, c *config.Config) (archive.Archive, error) {
	if c.S3Bucket == "" {
		return archive.Nop{}, nil
	}
	return archive.NewS3Archive(ctx, archive.S3Settings{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Bucket:       c.S3Bucket,
		BaseEndpoint: c.S3BaseEndpoint,
	})
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	rm := repomanager.NewPostgresRepositoryManager()

	db, err := OpenDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	arch, err := NewArchive(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive init error: %w", err)
	}
	if c.S3Bucket == "" {
		logger.Info(ctx, "Evidence archive disabled: no bucket configured")
	}

	store := identity.NewStore(rm.Users(db), c.UserCacheTTL)

	us := services.NewUserService(db, rm, store, c, logger)
	ts := services.NewTemplateService(db, rm, store, logger)
	cs := services.NewConsentService(db, rm, store, arch, logger)

	handler := rest.NewHandler(us, ts, cs, middleware.NewAuthMiddleware(c.SecretKey))

	return &App{
		config: c,
		logger: logger,
		db:     db,
		http:   rest.NewServer(c.EndpointAddrHTTP, handler, logger),
		health: gs.NewHealthServer(c.EndpointAddrHealth, db, c.HealthCheckInterval, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runComponent runs fn and cancels the whole app when it fails.
func (app *App) runComponent(ctx context.Context, cancelFunc context.CancelFunc, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		app.logger.Error(ctx, "component failed", "component", name, "error", err)
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or a server fails, then
// closes the database.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.runComponent(ctx, cancelFunc, "http", app.http.Run)
	}()
	go func() {
		defer wg.Done()
		app.runComponent(ctx, cancelFunc, "grpc_health", app.health.Run)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}
