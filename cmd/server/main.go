package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/esilogis/backend/internal/config"
	"github.com/esilogis/backend/internal/db"
	"github.com/esilogis/backend/internal/logger"
	"github.com/esilogis/backend/internal/routes"
	"github.com/esilogis/backend/internal/seed"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	// Load environment variables
	if err := config.LoadDotEnv(); err != nil {
		logger.Warn("Failed to read .env file, using environment variables", map[string]interface{}{
			"error": err.Error(),
		})
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logger.Initialize(cfg.LogLevel, cfg.LogDir)

	// Connect to database
	conn, err := db.Connect(cfg.DSN())
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := db.AutoMigrate(conn); err != nil {
		logger.Fatal("Failed to migrate database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Seed database with initial data if in development
	if cfg.IsDevelopment() {
		seedDatabase(conn)
	}

	// Set Gin mode
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := routes.NewRouter(conn, cfg)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting ESILOGIS backend server", map[string]interface{}{
		"addr":     cfg.Addr(),
		"env":      cfg.Env,
		"gin_mode": gin.Mode(),
		"version":  config.Version,
	})

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	logger.Info("Shutting down server gracefully...", map[string]interface{}{
		"signal": sig.String(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		logger.Info("Server exited gracefully", nil)
	}
}

func seedDatabase(conn *gorm.DB) {
	path := os.Getenv("SEED_FILE")
	if path == "" {
		path = "data/seed.json"
	}

	f, err := seed.Load(path)
	if err != nil {
		logger.Warn("Skipping database seeding", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	summary, err := seed.Apply(context.Background(), conn, f, func(e seed.Event) {
		if e.Err != nil {
			logger.Warn("Failed to seed record", map[string]interface{}{
				"kind":  e.Kind,
				"name":  e.Name,
				"error": e.Err.Error(),
			})
		}
	})
	if err != nil {
		logger.Warn("Database seeding interrupted", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	logger.Info("Database seeding completed", map[string]interface{}{
		"created": summary.Created,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	})
}
