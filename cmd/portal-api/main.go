package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"docflow/review-portal/review-portal-backend/internal/auth"
	"docflow/review-portal/review-portal-backend/internal/config"
	"docflow/review-portal/review-portal-backend/internal/documents"
	"docflow/review-portal/review-portal-backend/internal/notifications"
	nws "docflow/review-portal/review-portal-backend/internal/notifications/websocket"
	"docflow/review-portal/review-portal-backend/internal/reports"
	"docflow/review-portal/review-portal-backend/internal/settings"
	"docflow/review-portal/review-portal-backend/internal/workflow"
	"docflow/review-portal/review-portal-backend/internal/workflow/definitions"
)

// defaultActivations maps document types to the workflow that governs
// them out of the box. Admins can re-point these at runtime via the
// activation endpoints.
var defaultActivations = map[string]string{
	"policy":      "af-8-stage-review",
	"directive":   "af-8-stage-review",
	"instruction": "af-8-stage-review",
	"manual":      "af-12-stage-review",
	"corporate":   "corporate-review",
	"memo":        "simple-approval",
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.Security.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be configured")
	}

	// Connect to database
	dbURL := cfg.Database.GetDatabaseURL()
	logger.Info("Connecting to database", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if cfg.Database.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxConnections)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}

	// The notification tables are managed through gorm on the same
	// database.
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm connection", zap.Error(err))
	}

	// Notifications
	hub := nws.NewHub(logger)
	notifier, err := notifications.NewService(gormDB, hub, notifications.Config{
		EmailProvider: cfg.Notifications.EmailProvider,
		EmailFrom:     cfg.Notifications.EmailFrom,
		WebhookURL:    cfg.Notifications.WebhookURL,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notifications", zap.Error(err))
	}
	defer notifier.Close()

	// Workflow registry with the built-in definitions
	registry := workflow.NewRegistry(workflow.NewPostgresRegistryStore(db), logger)
	ctx := context.Background()
	for _, def := range definitions.All() {
		if err := registry.Register(ctx, def); err != nil {
			logger.Fatal("Failed to register workflow", zap.String("workflow_id", def.ID), zap.Error(err))
		}
	}
	if err := registry.RestoreActivations(ctx); err != nil {
		logger.Warn("Failed to restore workflow activations", zap.Error(err))
	}
	for docType, workflowID := range defaultActivations {
		if _, active := registry.ListActive()[docType]; active {
			continue
		}
		if err := registry.ActivateForDocumentType(ctx, workflowID, docType); err != nil {
			logger.Fatal("Failed to activate workflow", zap.String("document_type", docType), zap.Error(err))
		}
	}

	// Workflow state store, with an optional Redis read-through cache
	var store workflow.StateStore = workflow.NewPostgresStateStore(db)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable, running without state cache", zap.Error(err))
		} else {
			store = workflow.NewCachedStateStore(store, client, cfg.Redis.TTL, logger)
			defer client.Close()
		}
	}

	events := workflow.NewEventBus()
	engine := workflow.NewEngine(registry, store, events, notifier, logger)

	// Deadline sweep
	scheduler := workflow.NewDeadlineScheduler(registry, store, events, notifier, logger)
	if err := scheduler.Start(cfg.Workflow.DeadlineSweepSchedule); err != nil {
		logger.Fatal("Failed to start deadline scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	// Auth
	authService := auth.NewService(auth.NewPostgresRepository(db), cfg.Security.JWTSecret, logger)
	authHandler := auth.NewHandler(authService, logger)

	// Documents
	documentService := documents.NewService(documents.NewRepository(db), engine, store, logger)
	documentHandler := documents.NewHandler(documentService)

	// Workflow API
	workflowHandler := workflow.NewHandler(registry, engine, store, documentService, logger)

	// Reports
	reportService := reports.NewService(registry, store, logger)
	reportHandler := reports.NewHandler(reportService, documentService, logger)

	// Notifications API
	notificationHandler := notifications.NewHandler(notifier, hub, logger)

	// User settings
	settingsHandler := settings.NewHandler(settings.NewService(settings.NewRepository(db), logger), logger)

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1")
	authHandler.RegisterPublicRoutes(api)

	protected := api.Group("", auth.Middleware(authService))
	{
		authHandler.RegisterRoutes(protected)
		documentHandler.RegisterRoutes(protected)
		workflowHandler.RegisterRoutes(protected)
		reportHandler.RegisterRoutes(protected)
		notificationHandler.RegisterRoutes(protected)
		settingsHandler.RegisterRoutes(protected)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen: %s\n", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.Int("port", cfg.Server.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown:", zap.Error(err))
	}

	logger.Info("Server exiting")
}
