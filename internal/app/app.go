package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/nnamdiokafor/linkqr/internal/account"
	"github.com/nnamdiokafor/linkqr/internal/auth"
	"github.com/nnamdiokafor/linkqr/internal/config"
	"github.com/nnamdiokafor/linkqr/internal/errx"
	"github.com/nnamdiokafor/linkqr/internal/schema"
	"github.com/nnamdiokafor/linkqr/internal/server"
	"github.com/nnamdiokafor/linkqr/internal/shortlink"
)

// App holds the application dependencies and configuration.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	DBPool *pgxpool.Pool
	Server *server.Server
}

// New initializes and returns a new App instance with all dependencies wired up.
func New(ctx context.Context) (*App, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("starting application", "env", cfg.App.Environment)

	// Connect to database
	dbPool, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Bring the schema up to date before anything touches the tables
	logger.Info("running database migrations")
	if err := schema.Migrate(cfg.Database.URL()); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repository factories validate the record layouts once, up front
	accountFactory, err := account.NewRepoFactory()
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to build account repository: %w", err)
	}
	credentialFactory, err := auth.NewRepoFactory()
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to build credential repository: %w", err)
	}
	linkFactory, err := shortlink.NewRepoFactory()
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to build short link repository: %w", err)
	}

	tokens, err := auth.NewTokenCodec(auth.TokenCodecConfig{
		Secret:     cfg.Auth.SecretKey,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to build token codec: %w", err)
	}

	if cfg.Auth.SeedAdmin() {
		if err := seedAdmin(ctx, dbPool, accountFactory, credentialFactory, tokens, cfg, logger); err != nil {
			dbPool.Close()
			return nil, err
		}
	}

	handlers := server.Handlers{
		Auth: auth.NewHandler(auth.HandlerConfig{
			DB:          dbPool,
			Credentials: credentialFactory,
			Tokens:      tokens,
			Logger:      logger,
		}),
		Accounts: account.NewHandler(account.HandlerConfig{
			DB:          dbPool,
			Accounts:    accountFactory,
			Credentials: credentialFactory,
			Tokens:      tokens,
			Logger:      logger,
		}),
		Links: shortlink.NewHandler(shortlink.HandlerConfig{
			DB:      dbPool,
			Links:   linkFactory,
			Logger:  logger,
			BaseURL: cfg.Server.BaseURL,
		}),
	}

	// The route guard only decodes tokens, so it can live on the pool
	guard := auth.NewService(credentialFactory.Bind(dbPool), tokens, nil)

	srv := server.New(cfg, logger, handlers, guard)

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	return &App{
		Config: cfg,
		Logger: logger,
		DBPool: dbPool,
		Server: srv,
	}, nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("server starting",
		"port", a.Config.Server.Port,
		"base_url", a.Config.Server.BaseURL,
	)

	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}

	return nil
}

// seedAdmin ensures the configured admin credential exists, in its own
// transaction. A concurrent seed losing the create race rolls back and is
// treated as seeded.
func seedAdmin(ctx context.Context, pool *pgxpool.Pool, accounts *account.RepoFactory, credentials *auth.RepoFactory, tokens *auth.TokenCodec, cfg *config.Config, logger *slog.Logger) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	credentialRepo := credentials.Bind(tx)
	authService := auth.NewService(credentialRepo, tokens, nil)
	accountService := account.NewService(accounts.Bind(tx), credentialRepo, authService, nil)

	if err := accountService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		if errx.KindOf(err) == errx.AlreadyExists {
			logger.Info("admin credential already seeded", "username", cfg.Auth.AdminUsername)
			return nil
		}
		return fmt.Errorf("failed to seed admin credential: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	logger.Info("admin credential ensured", "username", cfg.Auth.AdminUsername)
	return nil
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("no .env file found.")
		}
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

// connectDatabase establishes a connection to the PostgreSQL database.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Set pool configuration
	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")

	return pool, nil
}
