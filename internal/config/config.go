package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL   string
	MigrationsDir string
	AutoMigrate   bool
	LogLevel      string
	BatchSize     int
	DBPingTimeout time.Duration
}

// Load reads configuration from the environment. A missing DATABASE_URL is
// not an error here: dry runs never touch the database, so commands that do
// call RequireDatabase themselves.
func Load() Config {
	cfg := Config{
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		AutoMigrate:   getBoolEnv("AUTO_MIGRATE", true),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		BatchSize:     getIntEnv("BATCH_SIZE", 500),
		DBPingTimeout: getDurationEnv("DB_PING_TIMEOUT", 5*time.Second),
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.DBPingTimeout <= 0 {
		cfg.DBPingTimeout = 5 * time.Second
	}

	return cfg
}

func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getBoolEnv(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getIntEnv(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}
