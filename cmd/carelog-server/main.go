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

	"github.com/randyrahmani/CareLogG8/internal/chat"
	"github.com/randyrahmani/CareLogG8/internal/feedback"
	"github.com/randyrahmani/CareLogG8/internal/identity"
	"github.com/randyrahmani/CareLogG8/internal/notes"
	"github.com/randyrahmani/CareLogG8/internal/store"
	"github.com/randyrahmani/CareLogG8/pkg/config"
	"github.com/randyrahmani/CareLogG8/pkg/encryption"
	"github.com/randyrahmani/CareLogG8/pkg/logger"
	"github.com/randyrahmani/CareLogG8/pkg/monitoring"
	"github.com/randyrahmani/CareLogG8/pkg/types"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)
	log.Info("Starting CareLog Server", "version", "1.0.0")

	// Initialize metrics
	metrics := monitoring.NewMetricsCollector()

	// Initialize encryption key and document store
	keyStore := encryption.NewFileKeyStore(cfg.Storage.KeyFile, log)
	key, err := keyStore.LoadOrGenerate()
	if err != nil {
		log.Error("Failed to load encryption key", "error", err)
		os.Exit(1)
	}

	crypto, err := encryption.NewCryptoStore(key)
	if err != nil {
		log.Error("Failed to initialize encryption", "error", err)
		os.Exit(1)
	}

	docStore := store.New(cfg.Storage.DataFile, crypto, log, metrics)
	if err := docStore.Load(); err != nil {
		log.Error("Failed to load document store", "error", err)
		os.Exit(1)
	}

	// Initialize services
	tokens := identity.NewTokenManager(&cfg.JWT)
	identityService := identity.NewService(docStore, log, metrics)
	notesService := notes.NewService(docStore, log)
	chatService := chat.NewService(docStore, log)
	generator := feedback.NewHTTPGenerator(&cfg.Feedback, log)
	feedbackService := feedback.NewService(docStore, generator, log, metrics)

	// Initialize HTTP handlers
	identityHandlers := identity.NewHandlers(identityService, tokens, docStore, log)
	authMiddleware := identityHandlers.AuthMiddleware()
	notesHandlers := notes.NewHandlers(notesService, authMiddleware, log)
	chatHandlers := chat.NewHandlers(chatService, authMiddleware, log)
	feedbackHandlers := feedback.NewHandlers(feedbackService, authMiddleware, log)

	// Setup Gin router
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Record request metrics
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	})

	// Health and metrics endpoints
	healthManager := monitoring.NewHealthManager("carelog-server", "1.0.0")
	healthManager.RegisterChecker("store", monitoring.HealthCheckerFunc(func(ctx context.Context) monitoring.HealthCheck {
		check := monitoring.HealthCheck{Name: "store", Status: monitoring.HealthStatusHealthy}
		if err := docStore.View(func(doc *types.Document) error { return nil }); err != nil {
			check.Status = monitoring.HealthStatusUnhealthy
			check.Message = err.Error()
		}
		return check
	}))

	router.GET(cfg.Monitoring.HealthPath, func(c *gin.Context) {
		report := healthManager.CheckHealth(c.Request.Context())
		status := http.StatusOK
		if report.Status == monitoring.HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	})

	if cfg.Monitoring.Enabled {
		router.GET(cfg.Monitoring.MetricsPath, gin.WrapH(metrics.Handler()))
	}

	// Register routes
	identityHandlers.RegisterRoutes(router)
	notesHandlers.RegisterRoutes(router)
	chatHandlers.RegisterRoutes(router)
	feedbackHandlers.RegisterRoutes(router)

	// Setup HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Failed to start HTTP server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down CareLog Server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("CareLog Server stopped")
}
