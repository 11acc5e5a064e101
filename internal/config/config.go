// Package config reads the strix command configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	OpenAIAPIKey string

	AssistantName string
	Instructions  string
	Model         string

	Store         string
	SQLitePath    string
	MongoURL      string
	MongoDatabase string

	// NATSURL enables event fan-out over NATS when set.
	NATSURL string

	LogLevel slog.Level
	LogFile  string

	PollInterval  time.Duration
	CancelTimeout time.Duration
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{
		OpenAIAPIKey:  envStrOrDefault("OPENAI_API_KEY", ""),
		AssistantName: envStrOrDefault("STRIX_ASSISTANT_NAME", "strix"),
		Instructions:  envStrOrDefault("STRIX_INSTRUCTIONS", "You are a helpful assistant."),
		Model:         envStrOrDefault("STRIX_MODEL", "gpt-4o-mini"),
		Store:         strings.ToLower(envStrOrDefault("STRIX_STORE", StoreSQLite)),
		SQLitePath:    envStrOrDefault("STRIX_SQLITE_PATH", "strix.db"),
		MongoURL:      envStrOrDefault("STRIX_MONGO_URL", "mongodb://localhost:27017"),
		MongoDatabase: envStrOrDefault("STRIX_MONGO_DATABASE", "strix"),
		NATSURL:       envStrOrDefault("NATS_URL", ""),
		LogLevel:      parseLogLevel(envStrOrDefault("STRIX_LOG_LEVEL", "WARN")),
		LogFile:       envStrOrDefault("STRIX_LOG_FILE", ""),
	}

	var err error
	if cfg.PollInterval, err = envDurationOrDefault("STRIX_POLL_INTERVAL", 100*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.CancelTimeout, err = envDurationOrDefault("STRIX_CANCEL_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}

	switch cfg.Store {
	case StoreSQLite, StoreMongo, StoreMemory:
	default:
		return Config{}, fmt.Errorf("unknown store %q, expected one of %s, %s or %s", cfg.Store, StoreSQLite, StoreMongo, StoreMemory)
	}
	return cfg, nil
}

func envStrOrDefault(key string, def string) string {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	return s
}

func envDurationOrDefault(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
