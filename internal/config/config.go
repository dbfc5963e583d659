package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the textsync worker. Only the local
// database and engine defaults come from the environment; remote source
// credentials live in database_connection rows.
type Config struct {
	Database DatabaseConfig
	Engine   EngineConfig
	AI       AIConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type EngineConfig struct {
	BatchSize      int
	MaxItems       int
	SourceTimeout  time.Duration
	ConnectRetries int
}

type AIConfig struct {
	RequestTimeout time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

type LogConfig struct {
	Level string
	File  string
}

// Load reads configuration from the environment (after loading an optional
// .env file) and returns a validated Config.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Engine: EngineConfig{
			BatchSize:      envInt("BATCH_SIZE", 500),
			MaxItems:       envInt("MAX_ITEMS", 20),
			SourceTimeout:  envDuration("SOURCE_TIMEOUT", 30*time.Second),
			ConnectRetries: envInt("SOURCE_CONNECT_RETRIES", 3),
		},
		AI: AIConfig{
			RequestTimeout: envDurationSecs("AI_REQUEST_TIMEOUT_SECS", 60*time.Second),
			MaxAttempts:    envInt("AI_MAX_ATTEMPTS", 3),
			InitialBackoff: envDuration("AI_INITIAL_BACKOFF", 2*time.Second),
		},
		Log: LogConfig{
			Level: envString("LOG_LEVEL", "info"),
			File:  envString("LOG_FILE", "logs/textsync.log"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Engine.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.Engine.BatchSize)
	}
	if c.Engine.MaxItems <= 0 {
		return fmt.Errorf("MAX_ITEMS must be positive, got %d", c.Engine.MaxItems)
	}
	// The retry bound is converted to uint64 for backoff; a negative value
	// must not wrap into an effectively unbounded retry budget.
	if c.Engine.ConnectRetries < 0 {
		return fmt.Errorf("SOURCE_CONNECT_RETRIES must not be negative, got %d", c.Engine.ConnectRetries)
	}
	if c.AI.MaxAttempts <= 0 {
		return fmt.Errorf("AI_MAX_ATTEMPTS must be positive, got %d", c.AI.MaxAttempts)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
