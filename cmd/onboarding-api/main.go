package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/opsai/onboarding-backend/internal/analysis"
	"github.com/opsai/onboarding-backend/internal/apps"
	"github.com/opsai/onboarding-backend/internal/auth"
	"github.com/opsai/onboarding-backend/internal/broker"
	"github.com/opsai/onboarding-backend/internal/config"
	"github.com/opsai/onboarding-backend/internal/connect"
	"github.com/opsai/onboarding-backend/internal/deploy"
	"github.com/opsai/onboarding-backend/internal/events"
	"github.com/opsai/onboarding-backend/internal/onboarding"
	"github.com/opsai/onboarding-backend/internal/syncsetup"
	"github.com/opsai/onboarding-backend/pkg/storage"
)

func main() {
	// Environment overrides come from .env in development
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	// Connect to database
	dbURL := cfg.Database.GetDatabaseURL()
	gormDB, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(&auth.User{}, &connect.Credential{}, &onboarding.SessionArchive{}); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	sqlxDB, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer sqlxDB.Close()
	sqlxDB.SetMaxOpenConns(cfg.Database.MaxConnections)
	sqlxDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	// Configuration snapshots go to S3 when a bucket is configured
	var snapshots storage.SnapshotStore
	if cfg.Deploy.SnapshotBucket != "" {
		s3Snapshots, err := storage.NewS3Snapshots(context.Background(), cfg.Deploy.SnapshotBucket)
		if err != nil {
			logger.Fatal("Failed to initialize snapshot storage", zap.Error(err))
		}
		snapshots = s3Snapshots
	} else {
		logger.Warn("No snapshot bucket configured, snapshots are kept in memory")
		snapshots = storage.NewMemorySnapshots()
	}

	// Collaborator clients
	analyzer := analysis.NewClient(cfg.Analysis, logger)
	brokerClient := broker.NewClient(cfg.OAuth, logger)
	syncClient := syncsetup.NewClient(cfg.Sync, logger)
	deployer := deploy.NewClient(cfg.Deploy, logger)

	// Progress events hub
	hub := events.NewHub(cfg.OAuth.AllowedOrigins, logger)

	// Services
	store := onboarding.NewStore(cfg.Session.TTL)
	authService := auth.NewService(gormDB, cfg.Security, logger)
	appsService := apps.NewService(apps.NewPostgresRepository(sqlxDB), snapshots, logger)
	archiver := onboarding.NewArchiveRepository(gormDB)
	onboardingService := onboarding.NewService(
		store, analyzer, deployer, appsService, archiver, snapshots, hub, cfg.Deploy.Target, logger)
	connectService := connect.NewService(
		store, brokerClient, connect.NewGormTokenStore(gormDB), syncClient, hub, cfg.OAuth, logger)

	sweeper := onboarding.NewSweeper(store, logger)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start session sweeper", zap.Error(err))
	}
	connectSweeper := connect.NewSweeper(connectService, logger)
	if err := connectSweeper.Start(); err != nil {
		logger.Fatal("Failed to start connection sweeper", zap.Error(err))
	}

	// Setup Router
	router := gin.Default()
	router.Use(corsMiddleware())

	auth.NewHandler(authService).RegisterRoutes(router)
	onboarding.NewHandler(onboardingService).RegisterRoutes(router, authService)
	connect.NewHandler(connectService).RegisterRoutes(router)
	apps.NewHandler(appsService).RegisterRoutes(router, authService)

	router.GET("/ws/:sessionId", func(c *gin.Context) {
		if err := hub.Subscribe(c.Writer, c.Request, c.Param("sessionId")); err != nil {
			logger.Warn("WebSocket subscribe failed", zap.Error(err))
		}
	})

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	sweeper.Stop()
	connectSweeper.Stop()
	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func newLogger(level string) *zap.Logger {
	if level == "debug" {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
