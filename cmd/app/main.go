package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	rbac "github.com/bohemiyan/tenant-rbac"
	"github.com/bohemiyan/tenant-rbac/internal/auth"
	"github.com/bohemiyan/tenant-rbac/internal/config"
	"github.com/bohemiyan/tenant-rbac/internal/db"
	"github.com/bohemiyan/tenant-rbac/internal/routes"
	"github.com/bohemiyan/tenant-rbac/internal/tenant"
	"github.com/bohemiyan/tenant-rbac/zapLogger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize zapLogger
	logFile, err := zapLogger.Init(zapLogger.Options{File: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger := zapLogger.Log
	defer logger.Sync()

	ctx := context.Background()

	pgDB, err := db.NewPostgresDB(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize PostgreSQL: %v", err)
	}
	logger.Info("Successfully connected to PostgreSQL database")
	defer pgDB.Close()

	redisDB, err := db.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize Redis: %v", err)
	}
	if redisDB != nil {
		logger.Info("Successfully connected to Redis")
		defer redisDB.Close()
	} else {
		logger.Warn("REDIS_HOST not set, using in-process permission cache and token denylist")
	}

	hasher := auth.NewBcryptHasher()

	// Configure RBAC
	rbacService, err := rbac.NewRBACService(ctx, rbac.Config{
		DB:                 pgDB.GormDB,
		RedisClient:        redisDB,
		CacheTTL:           cfg.CacheTTL,
		CachePrefix:        cfg.CachePrefix,
		QueryTimeout:       cfg.QueryTimeout,
		AutoMigrate:        cfg.AutoMigrate,
		Seed:               cfg.Seed,
		Hasher:             hasher,
		EnableAuditLogging: cfg.AuditLog,
		Logger:             logger,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize RBAC service: %v", err)
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL, "tenant-rbac")
	if err != nil {
		logger.Fatalf("Failed to initialize token issuer: %v", err)
	}
	var denylist auth.Denylist
	if redisDB != nil {
		denylist = auth.NewRedisDenylist(redisDB, cfg.CachePrefix)
	}

	store := rbacService.Store()
	provisioner := tenant.NewProvisioner(store, hasher, rbacService.Cache(), logger)

	// Set up Fiber app
	app := routes.NewApp(routes.Deps{
		RBAC:      rbacService,
		Auth:      auth.NewService(store, hasher, tokens, denylist, logger),
		Companies: tenant.NewCompanyService(store, rbacService, provisioner),
		Managers:  tenant.NewManagerService(store, rbacService, rbacService.Cache(), logger),
		Employees: tenant.NewEmployeeService(store, rbacService),
		Logger:    logger,
	}, zapLogger.FiberLoggingMiddleware(logFile))

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%d", cfg.AppPort)
	logger.Infof("Server started on port %d", cfg.AppPort)
	if err := app.Listen(addr); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
}
