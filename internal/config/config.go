package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig is the Postgres connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// GetDSN returns the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig is the Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config is the alert service configuration.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig

	// Vital-sign reading ingestion via Redis Streams.
	Engine struct {
		Stream        string // stream carrying newly recorded readings
		ConsumerGroup string
		ConsumerName  string
		BatchSize     int64 // readings fetched per XREADGROUP call
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "carewatch")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Engine.Stream = getEnv("VITALS_STREAM", "vitals:readings")
	cfg.Engine.ConsumerGroup = getEnv("VITALS_CONSUMER_GROUP", "carewatch-alert")
	cfg.Engine.ConsumerName = getEnv("VITALS_CONSUMER_NAME", defaultConsumerName())
	cfg.Engine.BatchSize = int64(getEnvInt("VITALS_BATCH_SIZE", 10))

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func defaultConsumerName() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return "carewatch-alert-" + hostname
	}
	return "carewatch-alert-1"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
