package main

import (
	"log"

	"github.com/esilogis/backend/internal/config"
	"github.com/esilogis/backend/internal/db"
	"github.com/esilogis/backend/internal/logger"
)

func main() {
	// Load environment variables
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Failed to read .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.Initialize(cfg.LogLevel, "")

	// Connect to database
	conn, err := db.Connect(cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	log.Println("Running database migrations...")
	if err := db.AutoMigrate(conn); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("✅ Database migrations completed successfully!")
}
