package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/draftforge/server/internal/module/billing"
	"github.com/draftforge/server/internal/module/generation"
	"github.com/draftforge/server/internal/module/history"
	"github.com/draftforge/server/internal/module/plan"
	"github.com/draftforge/server/internal/module/subscription"
	"github.com/draftforge/server/internal/module/usage"
	sharedcache "github.com/draftforge/server/internal/shared/cache"
	"github.com/draftforge/server/internal/shared/config"
	"github.com/draftforge/server/internal/shared/database"
	"github.com/draftforge/server/internal/shared/events"
	"github.com/draftforge/server/internal/shared/logger"
	"github.com/draftforge/server/internal/shared/metrics"
	"github.com/draftforge/server/internal/shared/middleware"
)

// App wires the service together: shared infrastructure, domain modules,
// event handlers and the HTTP router.
type App struct {
	config    *config.Config
	db        *gorm.DB
	redis     redis.UniversalClient
	router    *gin.Engine
	logger    *logger.Logger
	zapLogger *zap.Logger
	metrics   *metrics.Metrics

	eventBus *events.Bus
	catalog  *plan.Catalog

	subscriptionService *subscription.Service
	usageCounter        *usage.Counter
	historyService      *history.Service
	generationService   *generation.Service

	subscriptionHandler *subscription.Handler
	historyHandler      *history.Handler
	generationHandler   *generation.Handler
	webhookHandler      *billing.WebhookHandler
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}

	app := &App{
		config:    cfg,
		logger:    log,
		zapLogger: zapLog,
		metrics:   metrics.New("draftforge"),
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	if err := app.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// Redis is optional; the service degrades to uncached reads without it.
	if cfg.Redis.Address != "" {
		redisClient, err := sharedcache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed, continuing without cache", "error", err)
		} else {
			app.redis = redisClient
		}
	}

	if err := app.initModules(); err != nil {
		return nil, fmt.Errorf("init modules: %w", err)
	}

	app.router = app.setupRouter()

	return app, nil
}

// migrate creates or updates the persistent schema.
func (a *App) migrate() error {
	return a.db.AutoMigrate(
		&subscription.Subscription{},
		&usage.Period{},
		&history.Record{},
		&billing.WebhookEvent{},
	)
}

// initModules builds the domain modules and registers event handlers.
func (a *App) initModules() error {
	a.eventBus = events.NewBus(a.zapLogger)
	a.catalog = plan.NewCatalog()

	// Subscription store
	subRepo := subscription.NewRepository(a.db)
	subCache := subscription.NewNoopCache()
	if a.redis != nil {
		subCache = subscription.NewRedisCache(a.redis, a.config.Billing.SubscriptionCacheTTL)
	}
	a.subscriptionService = subscription.NewService(subRepo, a.catalog, subCache, a.zapLogger)
	a.subscriptionHandler = subscription.NewHandler(a.subscriptionService, a.catalog)

	// Usage counter
	usageRepo := usage.NewRepository(a.db)
	quotaCache := usage.NewNoopQuotaCache()
	if a.redis != nil {
		quotaCache = usage.NewRedisQuotaCache(a.redis)
	}
	a.usageCounter = usage.NewCounter(usageRepo, a.subscriptionService, a.catalog, quotaCache, a.metrics, a.zapLogger)

	// History log
	historyRepo := history.NewRepository(a.db)
	var exportStore history.ExportStore
	if a.config.Storage.Bucket != "" {
		store, err := history.NewS3ExportStore(&history.S3Config{
			Endpoint:        a.config.Storage.Endpoint,
			Region:          a.config.Storage.Region,
			AccessKeyID:     a.config.Storage.AccessKeyID,
			SecretAccessKey: a.config.Storage.SecretAccessKey,
			Bucket:          a.config.Storage.Bucket,
		})
		if err != nil {
			return fmt.Errorf("init export storage: %w", err)
		}
		exportStore = store
	}
	a.historyService = history.NewService(historyRepo, exportStore, a.zapLogger)
	a.historyHandler = history.NewHandler(a.historyService)

	// Generation orchestrator
	provider := generation.NewHTTPProvider(&a.config.Provider, a.zapLogger)
	a.generationService = generation.NewService(
		a.usageCounter,
		provider,
		a.historyService,
		a.metrics,
		a.zapLogger,
		a.config.Provider.Timeout,
	)
	a.generationHandler = generation.NewHandler(a.generationService)

	// Billing intake
	billingRepo := billing.NewRepository(a.db)
	a.webhookHandler = billing.NewWebhookHandler(billingRepo, a.eventBus, a.config.Billing.StripeWebhookSecret, a.zapLogger)

	// Event handlers
	a.eventBus.Register(subscription.NewEventHandler(a.subscriptionService, a.zapLogger))

	return nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Billing webhooks authenticate by signature, not bearer token.
	a.webhookHandler.RegisterRoutes(r.Group("/webhooks"))

	validator := middleware.NewJWTValidator(a.config.Auth.JWTSecret)
	api := r.Group("/api/v1")
	api.Use(middleware.Auth(validator))
	{
		a.generationHandler.RegisterRoutes(api)
		a.subscriptionHandler.RegisterRoutes(api)
		a.historyHandler.RegisterRoutes(api)
	}

	return r
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases the application's resources.
func (a *App) Stop() {
	if a.redis != nil {
		if err := sharedcache.Close(a.redis); err != nil {
			a.logger.Warn("failed to close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("failed to close database", "error", err)
		}
	}
	_ = a.zapLogger.Sync()
}
