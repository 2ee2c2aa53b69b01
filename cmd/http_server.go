package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/backoffice-access/internal"
	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/frahmantamala/backoffice-access/internal/auth"
	authPostgres "github.com/frahmantamala/backoffice-access/internal/auth/postgres"
	"github.com/frahmantamala/backoffice-access/internal/catalog"
	catalogPostgres "github.com/frahmantamala/backoffice-access/internal/catalog/postgres"
	"github.com/frahmantamala/backoffice-access/internal/core/events"
	"github.com/frahmantamala/backoffice-access/internal/grant"
	grantPostgres "github.com/frahmantamala/backoffice-access/internal/grant/postgres"
	"github.com/frahmantamala/backoffice-access/internal/metrics"
	"github.com/frahmantamala/backoffice-access/internal/override"
	overridePostgres "github.com/frahmantamala/backoffice-access/internal/override/postgres"
	"github.com/frahmantamala/backoffice-access/internal/transport"
	"github.com/frahmantamala/backoffice-access/internal/transport/rest"
	"github.com/frahmantamala/backoffice-access/internal/user"
	userPostgres "github.com/frahmantamala/backoffice-access/internal/user/postgres"
	"github.com/frahmantamala/backoffice-access/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// Dependencies are the long-lived resources shared by the server and the
// worker commands.
type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Redis    redis.UniversalClient
	Metrics  *metrics.Metrics
	Bus      *events.EventBus
	Compiler *access.Compiler
	Grants   *grant.Service
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	overrideService := override.NewService(
		overridePostgres.NewOverrideRepository(deps.Gorm),
		deps.Bus,
		deps.Logger,
		override.WithSweepRecorder(deps.Metrics),
	)
	sweeper, err := override.NewSweeper(overrideService, deps.Config.Access.SweepSchedule, deps.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create override sweeper: %v\n", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	setupRoutes(deps, router, overrideService)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sweeper.Start()

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		sweeper.Stop(ctx)
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies, router chi.Router, overrideService *override.Service) {
	base := transport.NewBaseHandler(deps.Logger)
	cfg := deps.Config

	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.JWTAccessSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(
		authPostgres.NewRepository(deps.Gorm),
		tokenGen,
		deps.Grants,
		deps.Compiler,
		deps.Logger,
		auth.WithBCryptCost(cfg.Security.BCryptCost),
		auth.WithPermissionLoadRecorder(deps.Metrics),
	)

	handlers := rest.Handlers{
		Auth:        auth.NewHandler(base, authService),
		Guard:       auth.NewGuard(base, deps.Metrics),
		User:        user.NewHandler(base, user.NewService(userPostgres.NewUserRepository(deps.Gorm), deps.Logger)),
		Grant:       grant.NewHandler(base, deps.Grants),
		Override:    override.NewHandler(base, overrideService),
		Catalog:     catalog.NewHandler(base, catalog.NewService(catalogPostgres.NewCatalogRepository(deps.Gorm), deps.Logger)),
		OpenAPIPath: "./api/openapi.yml",
	}
	if cfg.Observability.Metrics.Enabled {
		handlers.Metrics = deps.Metrics.Handler()
		handlers.MetricsPath = cfg.Observability.Metrics.Path
	}

	rest.RegisterAllRoutes(router, deps.DB.DB, deps.Redis, handlers, deps.Logger)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	redisClient, err := initRedis(config.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	m := metrics.NewMetrics(nil)
	compiler := access.NewCompiler(lg, access.WithRecorder(m))

	grantOpts := []grant.Option{grant.WithCacheRecorder(m)}
	if redisClient != nil {
		grantOpts = append(grantOpts, grant.WithCache(grant.NewRedisCache(redisClient), config.Access.GrantCacheTTL))
	}
	grants, err := grant.NewService(
		grantPostgres.NewGrantRepository(db),
		compiler,
		config.Access.PermissionCacheSize,
		lg,
		grantOpts...,
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create grant service: %w", err)
	}

	bus := events.NewEventBus(lg)
	grants.Subscribe(bus)

	return &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gormDB,
		Redis:    redisClient,
		Metrics:  m,
		Bus:      bus,
		Compiler: compiler,
		Grants:   grants,
		Logger:   lg,
	}, nil
}

func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx connection pool with gorm.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
}

// initRedis returns nil when no address is configured.
func initRedis(cfg internal.RedisConfig) (redis.UniversalClient, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := internal.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
