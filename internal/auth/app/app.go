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

	httpapi "github.com/aussiebroadwan/turnstile/internal/auth/http"
	"github.com/aussiebroadwan/turnstile/internal/auth/members"
	"github.com/aussiebroadwan/turnstile/internal/auth/service"
	"github.com/aussiebroadwan/turnstile/internal/auth/store"
	"github.com/aussiebroadwan/turnstile/internal/auth/store/cache"
	"github.com/aussiebroadwan/turnstile/internal/auth/store/drivers/mongodb"
	"github.com/aussiebroadwan/turnstile/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/turnstile/pkg/cryptox"
	"github.com/aussiebroadwan/turnstile/pkg/jwtx"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	members *members.FileDirectory
	codec   *jwtx.HS256Codec

	// Services
	authenticator       *service.Authenticator
	tokenService        *service.TokenService
	tokenValidator      *service.TokenValidator
	challengeService    *service.ChallengeService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "turnstile",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx := context.Background()
	if err := app.initStore(ctx); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler exposes the router, mostly so tests can serve it without a port.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// schemaVersioner is implemented by drivers with versioned migrations.
type schemaVersioner interface {
	SchemaVersion() (uint, bool, error)
}

// initStore opens the configured backend, applies its migrations and fronts
// it with redis when an address is configured.
func (app *Application) initStore(ctx context.Context) error {
	opts := []store.Option{store.WithRefreshTokenTTL(app.cfg.RefreshTokenTTL)}

	var (
		db  store.Store
		err error
	)
	switch app.cfg.StoreDriver {
	case StoreDriverMongoDB:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		db, err = mongodb.NewStore(connectCtx, app.cfg.MongoURI, app.cfg.MongoDatabase, opts...)
	default:
		host := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(host, opts...)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize %s store: %w", app.cfg.StoreDriver, err)
	}

	if err := db.ApplyMigrations(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply %s migrations: %w", app.cfg.StoreDriver, err)
	}
	attrs := []any{"driver", app.cfg.StoreDriver}
	if sv, ok := db.(schemaVersioner); ok {
		if v, dirty, err := sv.SchemaVersion(); err == nil {
			attrs = append(attrs, "schema_version", v, "schema_dirty", dirty)
		}
	}
	app.logger.Info("token store ready", attrs...)

	if app.cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			// The cache falls back to the backend, so a cold redis isn't fatal
			app.logger.Warn("redis unreachable at startup", "addr", app.cfg.RedisAddr, "error", err)
		}
		db = cache.New(db, client, app.logger, opts...)
		app.logger.Info("redis revocation cache enabled", "addr", app.cfg.RedisAddr)
	}

	app.db = db
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	dir, err := members.LoadFile(app.cfg.MembersFile)
	if err != nil {
		return fmt.Errorf("failed to load members: %w", err)
	}
	app.members = dir
	app.logger.Info("member directory loaded", "members", dir.Len(), "file", app.cfg.MembersFile)

	key, err := app.cfg.LoadSigningKey()
	if err != nil {
		return err
	}
	if app.codec, err = jwtx.NewHS256Codec(key); err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}

	app.tokenService, err = service.NewTokenService(service.TokenServiceOptions{
		Signer:    app.codec,
		Issuer:    app.cfg.Issuer,
		Audience:  app.cfg.Audience,
		AccessTTL: app.cfg.AccessTokenTTL,
	})
	if err != nil {
		return err
	}

	app.tokenValidator, err = service.NewTokenValidator(service.TokenValidatorOptions{
		Codec:    app.codec,
		Store:    app.db,
		Issuer:   app.cfg.Issuer,
		Audience: app.cfg.Audience,
	})
	if err != nil {
		return err
	}

	app.authenticator = &service.Authenticator{
		Members:     dir,
		Hasher:      cryptox.PasswordHasher{Pepper: pepper},
		Store:       app.db,
		RoleOnLogin: app.cfg.RoleOnLogin,
	}

	// No mail or SMS gateway is wired in; codes go to the log.
	sender := members.LogSender{Logger: app.logger}
	verification := service.NewVerificationService(app.db,
		service.EmailStrategy{Sender: sender, TTL: app.cfg.VerifyEmailTTL},
		service.SMSStrategy{Sender: sender, TTL: app.cfg.VerifySMSTTL},
	)

	app.challengeService = &service.ChallengeService{
		Members:      dir,
		Roles:        service.DefaultRoleCalculator{},
		Tokens:       app.authenticator,
		Verification: verification,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	// Wire services to router
	router.Auth = app.authenticator
	router.Validator = app.tokenValidator
	router.Tokens = app.tokenService
	router.Challenges = app.challengeService
	router.InvalidateOnWrite = app.cfg.InvalidateOnWrite
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
