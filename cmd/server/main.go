package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/bakery/orderdesk/docs"
	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/application/realtime"
	"github.com/bakery/orderdesk/internal/infrastructure/api"
	"github.com/bakery/orderdesk/internal/infrastructure/auth"
	"github.com/bakery/orderdesk/internal/infrastructure/broker"
	"github.com/bakery/orderdesk/internal/infrastructure/cache"
	"github.com/bakery/orderdesk/internal/infrastructure/config"
	"github.com/bakery/orderdesk/internal/infrastructure/export"
	"github.com/bakery/orderdesk/internal/infrastructure/logger"
	"github.com/bakery/orderdesk/internal/infrastructure/migration"
	"github.com/bakery/orderdesk/internal/infrastructure/persistence"
	"github.com/bakery/orderdesk/internal/infrastructure/scheduler"
	"github.com/bakery/orderdesk/internal/infrastructure/socket"
	"github.com/bakery/orderdesk/internal/infrastructure/storage"
	"github.com/bakery/orderdesk/internal/infrastructure/telemetry"
	"github.com/bakery/orderdesk/internal/interfaces/http/handler"
	"github.com/bakery/orderdesk/internal/interfaces/http/middleware"
	"github.com/bakery/orderdesk/internal/interfaces/http/router"
	"github.com/bakery/orderdesk/migrations"
)

const (
	snapshotRetention  = 30 * 24 * time.Hour
	snapshotPruneEvery = time.Hour
	shutdownTimeout    = 30 * time.Second
)

//	@title			Order Desk API
//	@version		1.0
//	@description	Live order dashboard for bakery production, branches and chefs.

//	@contact.name	API Support

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token issued by the order service. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log, cfg.App.Env)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	providers, err := telemetry.Setup(rootCtx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	otlpCore := providers.LogCore(logger.ParseLevel(cfg.Log.Level))
	log = log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, otlpCore)
	}))
	defer func() { _ = log.Sync() }()

	log.Info("Starting order desk",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("transport", cfg.Realtime.Transport),
	)

	metrics, err := telemetry.NewDashboardMetrics(providers.Meter(cfg.Telemetry.ServiceName))
	if err != nil {
		log.Fatal("Failed to register dashboard metrics", zap.Error(err))
	}

	// Redis is optional: every store falls back to memory on a single replica.
	caches := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	redisClient, err := caches.Connect(rootCtx)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	dedupe, err := caches.IdempotencyStore(rootCtx)
	if err != nil {
		log.Fatal("Failed to create dedupe store", zap.Error(err))
	}

	var revocations auth.RevocationList = auth.NewMemoryRevocationList()
	if redisClient != nil {
		revocations = auth.NewRedisRevocationList(redisClient)
	}

	orderAPI := api.NewClient(cfg.API, metrics, log)
	reference, err := caches.ReferenceCache(rootCtx, orderAPI)
	if err != nil {
		log.Fatal("Failed to create reference cache", zap.Error(err))
	}
	if inv := caches.Invalidator(); inv != nil {
		go func() {
			if err := inv.Subscribe(rootCtx, reference.DropLocal); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Reference invalidation subscription ended", zap.Error(err))
			}
		}()
	}

	feed := realtime.NewFeed(newEventSource(cfg.Realtime, log), log,
		realtime.WithDedupe(dedupe, cfg.Redis.DedupeTTL),
		realtime.WithFeedMetrics(metrics),
		realtime.WithReloadTimeout(cfg.API.Timeout),
	)

	sessionOpts := []dashboard.SessionOption{
		dashboard.WithFeed(feed),
		dashboard.WithSessionMetrics(metrics),
		dashboard.WithIdleTimeout(cfg.Session.IdleTimeout),
		dashboard.WithHubBuffer(cfg.Session.HubBuffer),
	}
	actionOpts := []dashboard.ActionServiceOption{
		dashboard.WithActionMetrics(metrics),
		dashboard.WithActionTimeout(cfg.Session.ActionTimeout),
	}

	jobs := scheduler.NewScheduler(scheduler.DefaultSchedulerConfig(), log)

	var (
		db       *persistence.Database
		auditLog *persistence.ActionLogRepository
	)
	if cfg.Database.Enabled {
		db = openDatabase(cfg, providers, log)
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()

		snapshots := persistence.NewSnapshotRepository(db.DB)
		auditLog = persistence.NewActionLogRepository(db.DB)
		sessionOpts = append(sessionOpts, dashboard.WithSnapshotStore(snapshots))
		actionOpts = append(actionOpts, dashboard.WithActionLog(auditLog))
		if err := jobs.Register(scheduler.SnapshotPruneTask(snapshots, snapshotRetention, snapshotPruneEvery, nil, log)); err != nil {
			log.Fatal("Failed to register snapshot pruning", zap.Error(err))
		}
	}

	if err := jobs.Start(rootCtx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}
	if db != nil {
		// prune once at boot; the ticker waits a full interval
		if err := jobs.RunNow(scheduler.SnapshotPruneTaskName); err != nil {
			log.Warn("Initial snapshot prune not queued", zap.Error(err))
		}
	}

	sessions := dashboard.NewSessionManager(orderAPI, log, sessionOpts...)
	go sessions.Run(rootCtx)
	actions := dashboard.NewActionService(log, actionOpts...)

	renderer := export.NewChromedpRenderer(export.ChromedpConfig{
		RemoteURL: cfg.Export.ChromeRemoteURL,
		Timeout:   cfg.Export.Timeout,
		NoSandbox: cfg.Export.NoSandbox,
		Logger:    log,
	})
	exportOpts := []dashboard.ExportOption{
		dashboard.WithExportWriter(export.FormatExcel, export.NewExcelWriter()),
		dashboard.WithExportWriter(export.FormatPDF, export.NewPDFWriter(renderer)),
		dashboard.WithExportTimeout(cfg.Export.Timeout),
	}
	if cfg.Storage.Enabled {
		archive, err := storage.NewS3Archive(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
		)
		if err != nil {
			log.Fatal("Failed to create export archive", zap.Error(err))
		}
		if err := archive.EnsureBucket(rootCtx); err != nil {
			log.Fatal("Failed to prepare export bucket", zap.Error(err))
		}
		exportOpts = append(exportOpts, dashboard.WithExportArchive(archive))
	}
	exports := dashboard.NewExportService(log, exportOpts...)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	skipPaths := []string{"/health"}
	engine.Use(
		logger.GinMiddleware(log, skipPaths...),
		logger.Recovery(log),
		middleware.Tracing(cfg.Telemetry.ServiceName, skipPaths...),
		middleware.Secure(),
		middleware.CORS(cfg.HTTP),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.HTTPMetrics(providers.Meter(cfg.Telemetry.ServiceName)),
	)

	profiling := middleware.DefaultProfilingConfig()
	profiling.Enabled = cfg.Telemetry.ProfilerServer != ""
	profiling.SkipPathPrefixes = append(profiling.SkipPathPrefixes, "/api/v1/stream")
	engine.Use(middleware.Profiling(profiling))

	stream := handler.NewStreamHandler(sessions,
		handler.WithStreamLogger(log),
		handler.WithStreamHeartbeat(cfg.HTTP.HeartbeatInterval),
	)
	handlers := router.Handlers{
		Session:   handler.NewSessionHandler(sessions, revocations),
		Orders:    handler.NewOrderHandler(sessions),
		Actions:   handler.NewActionHandler(sessions, actions, reference),
		Reference: handler.NewReferenceHandler(reference),
		Export:    handler.NewExportHandler(sessions, exports),
		Stream:    stream,
	}
	if auditLog != nil {
		handlers.Audit = handler.NewAuditHandler(sessions, auditLog)
	}

	r := router.NewRouter(engine, router.WithGroupMiddleware(
		middleware.JWTAuth(middleware.JWTConfig{
			JWTService:      auth.NewJWTService(cfg.JWT),
			Revocations:     revocations,
			QueryTokenPaths: []string{"/api/v1/stream"},
			Logger:          log,
		}),
		middleware.SpanEnricher(),
	))
	router.Dashboard(r, handlers).Setup()

	system := handler.NewSystemHandler(telemetry.Version, sessions)
	system.AddCheck("order_api", func(context.Context) error {
		if orderAPI.BreakerState() == "open" {
			return errors.New("circuit breaker open")
		}
		return nil
	})
	if redisClient != nil {
		system.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if db != nil {
		system.AddCheck("database", func(context.Context) error {
			return db.Ping()
		})
		system.AddCheck(scheduler.SnapshotPruneTaskName, jobs.Check(scheduler.SnapshotPruneTaskName))
	}
	engine.GET("/health", system.Health)

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    cfg.HTTP.SwaggerEnabled,
			AllowedIPs: cfg.HTTP.SwaggerAllowedIPs,
		}),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Streams never finish on their own, close them before draining.
	stream.Stop()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	sessions.Shutdown(ctx)
	if err := jobs.Stop(ctx); err != nil {
		log.Warn("Scheduler did not stop in time", zap.Error(err))
	}
	stop()

	if err := renderer.Close(); err != nil {
		log.Warn("Error closing browser", zap.Error(err))
	}
	if err := caches.Close(); err != nil {
		log.Warn("Error closing caches", zap.Error(err))
	}
	if err := providers.Shutdown(ctx); err != nil {
		log.Warn("Error flushing telemetry", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func newEventSource(cfg config.RealtimeConfig, log *zap.Logger) realtime.Source {
	if cfg.Transport == config.TransportAMQP {
		return broker.NewSource(cfg, nil, log)
	}
	return socket.NewSource(cfg, log)
}

func openDatabase(cfg *config.Config, providers *telemetry.Providers, log *zap.Logger) *persistence.Database {
	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		sqlDB, err := db.DB.DB()
		if err != nil {
			log.Fatal("Failed to get underlying sql.DB", zap.Error(err))
		}
		m, err := migration.New(sqlDB, migrations.FS, log)
		if err != nil {
			log.Fatal("Failed to create migrator", zap.Error(err))
		}
		if err := m.Up(); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	if err := telemetry.InstrumentDB(db.DB, providers.Meter(cfg.Telemetry.ServiceName), cfg.Database.DBName); err != nil {
		log.Warn("Failed to instrument database", zap.Error(err))
	}
	log.Info("Database connected successfully")
	return db
}
