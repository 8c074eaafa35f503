package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/binsight/auth/internal/auth/http"
	"github.com/binsight/auth/internal/auth/service"
	"github.com/binsight/auth/internal/auth/store"
	"github.com/binsight/auth/internal/auth/store/drivers/sqlite"
	"github.com/binsight/auth/pkg/cryptox"
	"github.com/binsight/auth/pkg/jwtx"
	"github.com/binsight/auth/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db   store.Store
	keys *jwtx.KeyPair

	tokenService        *service.TokenService
	loginService        *service.LoginService
	mfaService          *service.MFAService
	userService         *service.UserService
	auditService        *service.AuditService
	guardService        *service.GuardService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService
	lockout             *service.Lockout

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Pepper must be configured before the first hash or verify.
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	// A fresh signing key per process: restarting the service invalidates
	// every outstanding session token.
	keys, err := jwtx.NewEphemeralKeyPair(app.cfg.Issuer)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	app.keys = keys

	app.initServices()
	app.initHTTP()

	// Seed the first admin on an empty database.
	if err := app.bootstrapService.EnsureAdmin(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("bootstrap failed: %w", err)
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase opens the store and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices wires up the business logic services.
func (app *Application) initServices() {
	app.lockout = service.NewLockout()
	app.lockout.Threshold = app.cfg.LockoutThreshold
	app.lockout.Window = app.cfg.LockoutWindow
	app.lockout.Cooldown = app.cfg.LockoutCooldown

	app.auditService = &service.AuditService{Store: app.db}

	app.tokenService = &service.TokenService{
		Keys:      app.keys,
		Issuer:    app.cfg.Issuer,
		AccessTTL: app.cfg.AccessTTL,
	}

	app.loginService = &service.LoginService{
		Store:        app.db,
		Tokens:       app.tokenService,
		Audit:        app.auditService,
		Lockout:      app.lockout,
		ChallengeTTL: app.cfg.ChallengeTTL,
	}

	app.mfaService = &service.MFAService{
		Store:  app.db,
		Audit:  app.auditService,
		Issuer: app.cfg.Issuer,
	}

	app.userService = &service.UserService{
		Store: app.db,
		Audit: app.auditService,
	}

	app.guardService = &service.GuardService{
		Tokens:  app.tokenService,
		Lockout: app.lockout,
	}

	app.bootstrapService = &service.BootstrapService{
		Store: app.db,
		Audit: app.auditService,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP wires the router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.keys, BuildVersion, app.db, app.logger)

	router.LoginService = app.loginService
	router.MFAService = app.mfaService
	router.UserService = app.userService
	router.AuditService = app.auditService
	router.GuardService = app.guardService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
