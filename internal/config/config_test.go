package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("COURSEKEEP_STORAGE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "CourseKeep API", cfg.AppName)
	require.Equal(t, DriverMemory, cfg.StorageDriver)
	require.Equal(t, "default", cfg.StorageNamespace)
	require.Equal(t, int64(5*1024*1024), cfg.StorageQuotaBytes)
	require.Equal(t, "2.0.0", cfg.MigrationVersion)
	require.Equal(t, 3, cfg.MigrationKeep)
	require.Equal(t, 2*time.Minute, cfg.AnalyticsCacheTTL)
	require.Equal(t, 30*time.Second, cfg.DraftAutosavePeriod)
	require.Equal(t, ":8080", cfg.HTTPAddress())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("COURSEKEEP_STORAGE_DRIVER", "floppy")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresDriverConnection(t *testing.T) {
	t.Setenv("COURSEKEEP_STORAGE_DRIVER", "redis")
	t.Setenv("COURSEKEEP_REDIS_URL", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("COURSEKEEP_REDIS_URL", "redis://localhost:6379/0")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DriverRedis, cfg.StorageDriver)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("COURSEKEEP_STORAGE_DRIVER", "memory")
	t.Setenv("COURSEKEEP_ANALYTICS_CACHE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestHTTPAddressKeepsColonPrefix(t *testing.T) {
	cfg := Config{AppPort: ":9090"}
	require.Equal(t, ":9090", cfg.HTTPAddress())
}
