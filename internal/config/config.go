package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port        int
	LogLevel    string
	LogFormat   string
	ServiceName string
	Version     string
	Environment string
	APIKey      string // API key for authentication

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// Settlement scheduler
	SettlementTick time.Duration
	WorkerCount    int
	WorkerQueue    int

	// Bounded lock acquisition (see internal/concurrency)
	LockRetryAttempts int
	LockRetryDelay    time.Duration

	// Static game configuration
	RecipeConfigPath string
	LandCatalogPath  string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists, but don't fail if it doesn't (could be real env vars)
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
		ServiceName:      getEnv("SERVICE_NAME", "production-core"),
		Version:          getEnv("VERSION", "dev"),
		Environment:      getEnv("ENVIRONMENT", "dev"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "postgres"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBName:           getEnv("DB_NAME", "production_core"),
		APIKey:           getEnv("API_KEY", ""),
		RecipeConfigPath: getEnv("RECIPE_CONFIG_PATH", ConfigPathRecipes),
		LandCatalogPath:  getEnv("LAND_CATALOG_PATH", ConfigPathLands),
	}

	var err error
	if cfg.Port, err = getEnvInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.WorkerCount, err = getEnvInt("WORKER_COUNT", DefaultWorkerCount); err != nil {
		return nil, err
	}
	if cfg.WorkerQueue, err = getEnvInt("WORKER_QUEUE_SIZE", DefaultWorkerQueueSize); err != nil {
		return nil, err
	}
	if cfg.LockRetryAttempts, err = getEnvInt("LOCK_RETRY_ATTEMPTS", DefaultLockRetryAttempts); err != nil {
		return nil, err
	}

	tickSec, err := getEnvInt("SETTLEMENT_TICK_SECONDS", DefaultSettlementTickSeconds)
	if err != nil {
		return nil, err
	}
	cfg.SettlementTick = time.Duration(tickSec) * time.Second

	delayMs, err := getEnvInt("LOCK_RETRY_DELAY_MS", DefaultLockRetryDelayMs)
	if err != nil {
		return nil, err
	}
	cfg.LockRetryDelay = time.Duration(delayMs) * time.Millisecond

	// Validate API key is set
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY environment variable must be set for security")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return n, nil
}

// GetDBConnString returns the PostgreSQL connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}
