package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	listingapp "github.com/crosslist/backend/internal/application/listing"
	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/infrastructure/auth"
	"github.com/crosslist/backend/internal/infrastructure/cache"
	catalogclient "github.com/crosslist/backend/internal/infrastructure/catalog"
	"github.com/crosslist/backend/internal/infrastructure/config"
	"github.com/crosslist/backend/internal/infrastructure/event"
	"github.com/crosslist/backend/internal/infrastructure/logger"
	"github.com/crosslist/backend/internal/infrastructure/marketplace"
	"github.com/crosslist/backend/internal/infrastructure/persistence"
	"github.com/crosslist/backend/internal/infrastructure/scheduler"
	"github.com/crosslist/backend/internal/infrastructure/telemetry"
	"github.com/crosslist/backend/internal/interfaces/http/handler"
	"github.com/crosslist/backend/internal/interfaces/http/middleware"
	"github.com/crosslist/backend/internal/interfaces/http/router"
)

// devCredentialSecret seals marketplace credentials when no secret is
// configured. Config validation rejects an empty secret in production.
const devCredentialSecret = "crosslist-dev-only-credential-secret"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Crosslist Sync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize telemetry providers (no-ops when disabled)
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Log export to the OTEL Collector, bridged from zap
	loggerProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	if loggerProvider.IsEnabled() {
		minLevel := zapcore.InfoLevel
		if lvl, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
			minLevel = lvl
		}
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: loggerProvider,
			Level:          minLevel,
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore,
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
		log.Info("Log export to OTEL Collector enabled")
	}

	// Continuous profiling (no-op when disabled)
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServerAddr,
		ApplicationName:   cfg.Telemetry.ServiceName,
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel,
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
	)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Database query tracing
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		tracingPlugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := tracingPlugin.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to install database tracing plugin", zap.Error(err))
		}
	}

	// Database query and pool metrics
	dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
	dbMetricsCfg.Enabled = cfg.Telemetry.Enabled
	dbMetricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, dbMetricsCfg, log)
	if err != nil {
		log.Warn("Failed to register database metrics", zap.Error(err))
	} else if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(context.Background())
		defer dbMetrics.Stop()
	}

	// Credential cipher for marketplace tokens at rest
	secret := cfg.Credentials.Secret
	if secret == "" {
		log.Warn("No credential secret configured, using built-in development secret")
		secret = devCredentialSecret
	}
	cipher, err := auth.NewCredentialCipher(secret)
	if err != nil {
		log.Fatal("Failed to initialize credential cipher", zap.Error(err))
	}

	// Initialize repositories
	listingRepo := persistence.NewGormListingRepository(db.DB)
	configRepo := persistence.NewGormPlatformConfigRepository(db.DB, cipher)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	notifRepo := persistence.NewGormNotificationRepository(db.DB)

	// Product catalog client
	products, err := catalogclient.NewClient(&catalogclient.Config{
		BaseURL:        cfg.Catalog.BaseURL,
		APIKey:         cfg.Catalog.APIKey,
		TimeoutSeconds: cfg.Catalog.TimeoutSeconds,
	})
	if err != nil {
		log.Fatal("Failed to initialize catalog client", zap.Error(err))
	}

	// Marketplace adapters share one credential source backed by the
	// platform config store
	credentials := marketplace.NewRepositoryCredentialSource(configRepo)

	ebayConfig := marketplace.NewEBayConfig()
	if cfg.Marketplace.EBaySandbox {
		ebayConfig = marketplace.NewSandboxEBayConfig()
	}
	ebayConfig.Currency = cfg.Marketplace.Currency
	ebayConfig.TimeoutSeconds = cfg.Marketplace.TimeoutSeconds
	ebayAdapter, err := marketplace.NewEBayAdapter(ebayConfig, credentials)
	if err != nil {
		log.Fatal("Failed to initialize eBay adapter", zap.Error(err))
	}

	facebookConfig := marketplace.NewFacebookConfig()
	facebookConfig.Currency = cfg.Marketplace.Currency
	facebookConfig.TimeoutSeconds = cfg.Marketplace.TimeoutSeconds
	facebookAdapter, err := marketplace.NewFacebookAdapter(facebookConfig, credentials)
	if err != nil {
		log.Fatal("Failed to initialize Facebook adapter", zap.Error(err))
	}

	depopConfig := marketplace.NewDepopConfig()
	depopConfig.Currency = cfg.Marketplace.Currency
	depopConfig.TimeoutSeconds = cfg.Marketplace.TimeoutSeconds
	depopAdapter, err := marketplace.NewDepopAdapter(depopConfig, credentials)
	if err != nil {
		log.Fatal("Failed to initialize Depop adapter", zap.Error(err))
	}

	craigslistAdapter, err := marketplace.NewCraigslistAdapter(&marketplace.CraigslistConfig{
		Site:      cfg.Marketplace.CraigslistSite,
		Category:  cfg.Marketplace.CraigslistCategory,
		RemoteURL: cfg.Marketplace.ChromeRemoteURL,
		Headless:  true,
		NoSandbox: cfg.Marketplace.ChromeNoSandbox,
		Logger:    log,
	}, credentials)
	if err != nil {
		log.Fatal("Failed to initialize Craigslist adapter", zap.Error(err))
	}

	registry, err := marketplace.NewRegistry(ebayAdapter, facebookAdapter, depopAdapter, craigslistAdapter)
	if err != nil {
		log.Fatal("Failed to build adapter registry", zap.Error(err))
	}

	// Idempotency store for webhook deduplication
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	var idempotencyStore = storeFactory.CreateInMemoryStore()
	if cfg.Idempotency.Backend == "redis" {
		idempotencyStore, err = storeFactory.CreateStore()
		if err != nil {
			log.Fatal("Failed to initialize idempotency store", zap.Error(err))
		}
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Audit trail for every engine event, deduplicated on event ID so
	// republished events are logged once
	auditor := event.NewIdempotentHandler(listingapp.NewEventAuditor(log), idempotencyStore, log)
	eventBus.Subscribe(auditor)

	// Initialize application services
	syncService := listingapp.NewSyncService(
		listingRepo, configRepo, syncLogRepo, notifRepo,
		registry, products, idempotencyStore, eventBus, log,
	)
	platformService := listingapp.NewPlatformConfigService(configRepo, eventBus, log)
	notificationService := listingapp.NewNotificationService(notifRepo, listingRepo, syncService, log)
	reconciliationService := listingapp.NewReconciliationService(
		listingRepo, notifRepo, registry, configRepo, eventBus, log,
	)

	// Domain-level sync gauges collected from the repositories
	syncMetrics, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
		Meter:  meterProvider.Meter("crosslist-sync"),
		Logger: log,
		ListingProvider: &repoMetricsProvider{
			listings:      listingRepo,
			notifications: notifRepo,
		},
	})
	if err != nil {
		log.Warn("Failed to initialize sync metrics", zap.Error(err))
	} else if cfg.Telemetry.Enabled {
		syncMetrics.StartPeriodicCollection(context.Background(), 0)
		defer syncMetrics.Stop()
	}

	// Background reconciliation loop
	schedConfig := scheduler.DefaultReconciliationSchedulerConfig()
	schedConfig.Enabled = cfg.Reconciliation.Enabled
	if cfg.Reconciliation.Interval > 0 {
		schedConfig.Interval = cfg.Reconciliation.Interval
	}
	reconciliationScheduler, err := scheduler.NewReconciliationScheduler(
		schedConfig,
		&reconcilerShim{svc: reconciliationService},
		notificationService,
		log,
	)
	if err != nil {
		log.Fatal("Failed to initialize reconciliation scheduler", zap.Error(err))
	}
	if cfg.Reconciliation.Enabled {
		if err := reconciliationScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start reconciliation scheduler", zap.Error(err))
		}
		defer reconciliationScheduler.Stop()
		log.Info("Reconciliation scheduler started",
			zap.Duration("interval", schedConfig.Interval),
		)
	}

	// Initialize HTTP handlers
	listingHandler := handler.NewListingHandler(syncService)
	platformHandler := handler.NewPlatformHandler(platformService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	webhookHandler := handler.NewWebhookHandler(syncService)
	reconciliationHandler := handler.NewReconciliationHandler(reconciliationScheduler)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Tracing - Start request spans, mark error responses
	// 4. Logger - Log requests
	// 5. Metrics - Record request metrics
	// 6. Security - Add security headers
	// 7. CORS - Handle cross-origin requests
	// 8. BodyLimit - Limit request body size
	// 9. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing())
		engine.Use(middleware.SpanErrorMarker())
	}
	if cfg.Telemetry.ProfilingEnabled {
		engine.Use(middleware.Profiling())
	}
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("crosslist-http"), cfg.Telemetry.Enabled))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(listingHandler).
		Register(platformHandler).
		Register(notificationHandler).
		Register(webhookHandler).
		Register(reconciliationHandler).
		Register(systemHandler)
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// reconcilerShim exposes the reconciliation service through the scheduler's
// count-oriented sweep interface
type reconcilerShim struct {
	svc *listingapp.ReconciliationService
}

func (a *reconcilerShim) ReconcileAll(ctx context.Context) (int, int, int, error) {
	stats, err := a.svc.ReconcileAll(ctx)
	if stats == nil {
		return 0, 0, 0, err
	}
	return stats.Checked, stats.Drifted, stats.Errors, err
}

// repoMetricsProvider feeds listing and notification gauges from the
// persistence layer
type repoMetricsProvider struct {
	listings      listing.ListingRepository
	notifications listing.NotificationRepository
}

func (p *repoMetricsProvider) CountActiveByPlatform(ctx context.Context) (map[string]int64, error) {
	stats, err := p.listings.StatsByPlatform(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(stats))
	for _, s := range stats {
		counts[s.Platform.String()] = s.ActiveListings
	}
	return counts, nil
}

func (p *repoMetricsProvider) CountPendingNotifications(ctx context.Context) (int64, error) {
	return p.notifications.CountUnread(ctx)
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		body := gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		}
		if stats, err := db.Stats(); err == nil {
			body["db_pool"] = gin.H{
				"open":    stats.OpenConnections,
				"in_use":  stats.InUse,
				"idle":    stats.Idle,
				"waiting": stats.WaitCount,
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
