// Package main provides the main entry point for the Kusanagi short link service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/amirphl/Kusanagi/app/handlers"
	"github.com/amirphl/Kusanagi/app/middleware"
	"github.com/amirphl/Kusanagi/app/router"
	"github.com/amirphl/Kusanagi/app/scheduler"
	"github.com/amirphl/Kusanagi/app/services"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/config"
	"github.com/amirphl/Kusanagi/migrations"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	server    *fiber.App
	logger    *zap.Logger
	tracker   businessflow.ClickTracker
	stopFuncs []func()
	closers   []func() error
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := utils.NewLogger(utils.LoggerOptions{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		Output:           cfg.Logging.Output,
		FilePath:         cfg.Logging.FilePath,
		MaxSize:          cfg.Logging.MaxSize,
		MaxBackups:       cfg.Logging.MaxBackups,
		MaxAge:           cfg.Logging.MaxAge,
		Compress:         cfg.Logging.Compress,
		EnableCaller:     cfg.Logging.EnableCaller,
		EnableStacktrace: cfg.Logging.EnableStacktrace,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting Kusanagi application...",
		zap.String("environment", cfg.Deployment.Environment),
		zap.String("version", cfg.Deployment.Version),
	)

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}

	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		serverErr <- app.router.Start(address)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Shutting down gracefully...", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server stopped unexpectedly", zap.Error(err))
		}
	}

	app.shutdown()
	logger.Info("Server stopped")
}

// shutdown stops background workers, drains the server and in-flight click writes, then releases handles
func (a *Application) shutdown() {
	for _, fn := range a.stopFuncs {
		fn()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.server.ShutdownWithContext(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}

	a.tracker.Wait()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to release resource", zap.Error(err))
		}
	}
}

// initializeDatabase opens the configured store, applies the schema and configures pooling
func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(cfg, logger),
	}

	if cfg.Driver == "sqlite" {
		return initializeSQLite(cfg, gormCfg, logger)
	}

	var db *gorm.DB
	attempts := uint(max(cfg.ConnectRetries, 1))
	err := retry.Do(
		func() error {
			var err error
			db, err = gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		},
		retry.Attempts(attempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("Database not ready, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if cfg.AutoMigrate {
		m, err := migrations.New(cfg.URL(), logger.Named("migrations"))
		if err != nil {
			return nil, err
		}
		upErr := m.Up()
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("Failed to close migrator", zap.Error(closeErr))
		}
		if upErr != nil {
			return nil, upErr
		}
	}

	logger.Info("Database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)
	return db, nil
}

// initializeSQLite opens a single-writer local database file
func initializeSQLite(cfg config.DatabaseConfig, gormCfg *gorm.Config, logger *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", cfg.SQLitePath)
	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&models.ShortLink{}, &models.ShortLinkClick{}); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
		}
	}

	logger.Info("SQLite database opened", zap.String("path", cfg.SQLitePath))
	return db, nil
}

func newGormLogger(cfg config.DatabaseConfig, logger *zap.Logger) gormlogger.Interface {
	level := gormlogger.Error
	if cfg.SlowQueryLog {
		level = gormlogger.Warn
	}
	return gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
		SlowThreshold:             cfg.SlowQueryTime,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// initializeCache builds the Redis client and checks connectivity. An unreachable
// server is only logged: lookups fall through to the store until it comes back.
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable; server will start with caching degraded",
			zap.String("addr", opt.Addr),
			zap.Error(err),
		)
		return rc, nil
	}

	logger.Info("Redis connection established", zap.String("addr", opt.Addr), zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("Redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

func initializeApplication(cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	app := &Application{config: cfg, logger: logger}

	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	app.closers = append(app.closers, sqlDB.Close)

	dependencies := map[string]router.Dependency{
		"database": {Probe: sqlDB.PingContext},
	}

	var (
		linkCache services.LinkCache
		purger    scheduler.CachePurger
	)
	if cfg.Cache.Enabled {
		switch cfg.Cache.Provider {
		case "memory":
			mc, err := services.NewMemoryLinkCache(cfg.Cache.MemorySize)
			if err != nil {
				return nil, fmt.Errorf("failed to create memory cache: %w", err)
			}
			linkCache, purger = mc, mc
			logger.Info("In-process link cache enabled", zap.Int("size", cfg.Cache.MemorySize))
		default:
			rc, err := initializeCache(cfg.Cache, logger)
			if err != nil {
				return nil, err
			}
			app.closers = append(app.closers, rc.Close)
			app.stopFuncs = append(app.stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval, logger))
			rlc := services.NewRedisLinkCache(rc, cfg.Cache.RedisPrefix, cfg.Cache.OpTimeout)
			linkCache = rlc
			dependencies["cache"] = router.Dependency{Probe: rlc.Ping, Optional: true}
		}
	} else {
		logger.Warn("Link cache disabled; every resolution reads the store")
	}

	geo, err := services.NewGeoLocator(cfg.Geo.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open geo database: %w", err)
	}
	app.closers = append(app.closers, geo.Close)

	validate := validator.New()
	classifier := services.NewUserAgentClassifier()
	metrics := middleware.NewDomainMetrics(prometheus.DefaultRegisterer)

	linkRepo := repository.NewShortLinkRepository(db)
	clickRepo := repository.NewShortLinkClickRepository(db)

	production := cfg.Deployment.IsProduction()
	shortLinkFlow := businessflow.NewShortLinkFlow(
		linkRepo,
		linkCache,
		businessflow.NewCodeGenerator(linkRepo),
		businessflow.NewLinkValidator(validate, production),
		metrics,
		logger.Named("short_link"),
		cfg.Shortener.BaseURL,
		cfg.Cache.URLTTL,
	)
	tracker := businessflow.NewClickTracker(
		linkRepo,
		classifier,
		geo,
		metrics,
		logger.Named("click_tracker"),
		cfg.Shortener.HistoryLimit,
		cfg.Shortener.ClickTimeout,
	)
	app.tracker = tracker
	analyticsFlow := businessflow.NewAnalyticsFlow(linkRepo, clickRepo, classifier, logger.Named("analytics"), cfg.Shortener.BaseURL)
	exportFlow := businessflow.NewClickExportFlow(linkRepo, clickRepo, logger.Named("export"))
	expiryFlow := businessflow.NewExpiryFlow(linkRepo, linkCache, metrics, logger.Named("expiry"), cfg.Shortener.SweepBatch)

	exposeErrors := cfg.Deployment.IsDevelopment()
	shortLinkHandler := handlers.NewShortLinkHandler(shortLinkFlow, tracker, validate, logger.Named("http"), exposeErrors)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsFlow, exportFlow, validate, logger.Named("http"), exposeErrors)

	app.router = router.NewFiberRouter(cfg, logger.Named("router"), shortLinkHandler, analyticsHandler, dependencies)
	app.server = app.router.GetApp()

	sweeper := scheduler.NewExpirySweeper(expiryFlow, purger, logger, cfg.Shortener.SweepInterval)
	app.stopFuncs = append(app.stopFuncs, sweeper.Start(context.Background()))

	return app, nil
}
