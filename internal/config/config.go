package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerPort        string
	DatabaseURL       string
	RedisURL          string
	JWTSecret         string
	JWTExpiry         time.Duration
	SyncRetention     time.Duration
	SyncPageSize      int64
	BcryptCost        int
	PasswordMinLength int
}

func LoadConfig() (*Config, error) {
	expiry, err := time.ParseDuration(getEnv("JWT_EXPIRY", "24h"))
	if err != nil {
		return nil, errors.New("invalid JWT_EXPIRY format")
	}

	// Entries older than the retention window are pruned and clients
	// behind it fall back to a full sync.
	retention, err := time.ParseDuration(getEnv("SYNC_RETENTION", "720h"))
	if err != nil {
		return nil, errors.New("invalid SYNC_RETENTION format")
	}

	pageSize, err := strconv.ParseInt(getEnv("SYNC_PAGE_SIZE", "100"), 10, 64)
	if err != nil || pageSize <= 0 {
		return nil, errors.New("invalid SYNC_PAGE_SIZE")
	}

	bcryptCost, err := strconv.Atoi(getEnv("BCRYPT_COST", "12"))
	if err != nil || bcryptCost < 4 || bcryptCost > 31 {
		return nil, errors.New("invalid BCRYPT_COST")
	}

	passwordMinLength, err := strconv.Atoi(getEnv("PASSWORD_MIN_LENGTH", "10"))
	if err != nil || passwordMinLength < 1 {
		return nil, errors.New("invalid PASSWORD_MIN_LENGTH")
	}

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTExpiry:         expiry,
		SyncRetention:     retention,
		SyncPageSize:      pageSize,
		BcryptCost:        bcryptCost,
		PasswordMinLength: passwordMinLength,
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
