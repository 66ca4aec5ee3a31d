package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/lmittmann/tint"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printhubapp/printhub/internal/auth"
	"github.com/printhubapp/printhub/internal/cache"
	"github.com/printhubapp/printhub/internal/catalog"
	"github.com/printhubapp/printhub/internal/config"
	"github.com/printhubapp/printhub/internal/db"
	"github.com/printhubapp/printhub/internal/email"
	"github.com/printhubapp/printhub/internal/handlers"
	"github.com/printhubapp/printhub/internal/logging"
	"github.com/printhubapp/printhub/internal/services"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	productCatalog, err := catalog.NewParser().ParseFile(cfg.CatalogPath)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load product catalog: %w", err)
	}
	if err := catalog.NewValidator().Validate(productCatalog); err != nil {
		database.Close()
		return nil, fmt.Errorf("invalid product catalog: %w", err)
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	tokenManager, err := auth.NewTokenManager(cfg.JWTSecret, cfg.ServiceAPIToken)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize token manager: %w", err)
	}

	var emailProvider email.Provider
	if cfg.EmailEnabled() {
		emailProvider, err = email.NewProvider(email.Config{
			Provider: cfg.EmailProvider,
			APIKey:   cfg.ResendAPIKey,
			From:     cfg.EmailFrom,
		})
		if err != nil {
			closeCacheProvider(logger, cacheProvider)
			database.Close()
			return nil, fmt.Errorf("failed to initialize email provider: %w", err)
		}
	}

	orderStore := db.NewOrderStore(database)
	orderService := services.NewOrderService(
		orderStore,
		productCatalog,
		catalog.NewPricer(),
		logger.With("component", "order_service"),
	)
	reconciler := services.NewPaymentReconciler(
		orderStore,
		emailProvider,
		logger.With("component", "payment_reconciler"),
	)
	stripeRouter := handlers.NewStripeEventRouter(reconciler, logger.With("component", "stripe_router"))

	h, err := handlers.New(handlers.Dependencies{
		Config:        cfg,
		DB:            database,
		CacheProvider: cacheProvider,
		StripeRouter:  stripeRouter,
		OrderService:  orderService,
		TokenManager:  tokenManager,
		Logger:        logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Handlers:      h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Config != nil && a.Config.SentryDSN != "" {
		sentry.Flush(2 * time.Second)
	}
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var local slog.Handler
	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		local = slog.NewJSONHandler(os.Stdout, opts)
	default:
		local = tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel})
	}

	if cfg.SentryDSN == "" {
		return slog.New(local), nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		EnableLogs:       true,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelInfo},
	}.NewSentryHandler(context.Background())

	return slog.New(logging.MultiHandler(local, sentryHandler)), nil
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
