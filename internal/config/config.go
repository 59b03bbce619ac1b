package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers understood by the storage layer.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	StorageDriver       string
	StorageNamespace    string
	StorageQuotaBytes   int64
	SQLitePath          string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	EventsSubject       string
	MigrationVersion    string
	MigrationKeep       int
	AnalyticsCacheTTL   time.Duration
	DraftAutosavePeriod time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("COURSEKEEP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CourseKeep API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.namespace", "default")
	v.SetDefault("storage.quota_bytes", 5*1024*1024)
	v.SetDefault("storage.sqlite_path", "coursekeep.db")
	v.SetDefault("events.subject", "coursekeep.activity")
	v.SetDefault("migration.version", "2.0.0")
	v.SetDefault("migration.keep_backups", 3)
	v.SetDefault("analytics.cache_ttl", "2m")
	v.SetDefault("drafts.autosave_interval", "30s")

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cacheTTL, err := parseDuration(v.GetString("analytics.cache_ttl"), 2*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid analytics cache ttl: %w", err)
	}

	autosave, err := parseDuration(v.GetString("drafts.autosave_interval"), 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid draft autosave interval: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		StorageDriver:       strings.ToLower(strings.TrimSpace(v.GetString("storage.driver"))),
		StorageNamespace:    strings.TrimSpace(v.GetString("storage.namespace")),
		StorageQuotaBytes:   v.GetInt64("storage.quota_bytes"),
		SQLitePath:          v.GetString("storage.sqlite_path"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		EventsSubject:       v.GetString("events.subject"),
		MigrationVersion:    strings.TrimSpace(v.GetString("migration.version")),
		MigrationKeep:       v.GetInt("migration.keep_backups"),
		AnalyticsCacheTTL:   cacheTTL,
		DraftAutosavePeriod: autosave,
	}

	switch cfg.StorageDriver {
	case DriverMemory:
	case DriverRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("redis url must be provided for the redis storage driver")
		}
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return Config{}, fmt.Errorf("sqlite path must be provided for the sqlite storage driver")
		}
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("database url must be provided for the postgres storage driver")
		}
	default:
		return Config{}, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	if cfg.StorageNamespace == "" {
		cfg.StorageNamespace = "default"
	}

	if cfg.StorageQuotaBytes < 0 {
		cfg.StorageQuotaBytes = 0
	}

	if cfg.MigrationVersion == "" {
		cfg.MigrationVersion = "2.0.0"
	}

	if cfg.MigrationKeep <= 0 {
		cfg.MigrationKeep = 3
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return fallback, nil
	}
	return parsed, nil
}
