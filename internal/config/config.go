// Package config loads the server configuration from the environment.
// A .env file in the working directory is read first if present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags.
var Version = "1.0.0"

type Config struct {
	Port       int
	Env        string
	GinMode    string
	CORSOrigin string

	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	JWTSecret    string
	JWTExpiresIn time.Duration

	LogLevel string
	LogDir   string
}

// LoadDotEnv reads .env into the process environment. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load builds a Config from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Env:         getEnv("ENV", "local"),
		GinMode:     os.Getenv("GIN_MODE"),
		CORSOrigin:  getEnv("CORS_ORIGIN", "http://localhost:3000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBName:      getEnv("DB_NAME", "esilogis"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		LogLevel:    strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		LogDir:      getEnvAllowEmpty("LOG_DIR", "logs"),
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", os.Getenv("PORT"))
	}
	cfg.Port = port

	expiresIn, err := time.ParseDuration(getEnv("JWT_EXPIRES_IN", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRES_IN: %w", err)
	}
	if expiresIn <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRES_IN must be positive")
	}
	cfg.JWTExpiresIn = expiresIn

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	switch cfg.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL %q", cfg.LogLevel)
	}

	return cfg, nil
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from DB_* variables.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAllowEmpty(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
