package storage

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func exerciseSubstrate(t *testing.T, substrate Substrate) {
	t.Helper()
	ctx := context.Background()

	_, err := substrate.Get(ctx, "courses")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, substrate.Set(ctx, "courses", `[]`))
	require.NoError(t, substrate.Set(ctx, "courses", `[{"id":"c1"}]`))
	require.NoError(t, substrate.Set(ctx, "courses_backup_2", `[]`))
	require.NoError(t, substrate.Set(ctx, "courses_backup_1", `[]`))
	require.NoError(t, substrate.Set(ctx, "course_progress", `{}`))

	value, err := substrate.Get(ctx, "courses")
	require.NoError(t, err)
	require.Equal(t, `[{"id":"c1"}]`, value)

	keys, err := substrate.Keys(ctx, "courses_backup_")
	require.NoError(t, err)
	require.Equal(t, []string{"courses_backup_1", "courses_backup_2"}, keys)

	usage, err := substrate.Usage(ctx)
	require.NoError(t, err)
	expected := len("courses") + len(`[{"id":"c1"}]`) +
		2*(len("courses_backup_1")+len(`[]`)) +
		len("course_progress") + len(`{}`)
	require.Equal(t, int64(expected), usage)

	require.NoError(t, substrate.Remove(ctx, "courses_backup_1"))
	require.NoError(t, substrate.Remove(ctx, "never-existed"))
	keys, err = substrate.Keys(ctx, "courses_backup_")
	require.NoError(t, err)
	require.Equal(t, []string{"courses_backup_2"}, keys)
}

func TestMemorySubstrate(t *testing.T) {
	exerciseSubstrate(t, NewMemory())
}

func TestRedisSubstrate(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	defer client.Close()

	exerciseSubstrate(t, NewRedis(client, "alice"))

	other := NewRedis(client, "bob")
	keys, err := other.Keys(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, keys, "namespaces are isolated")
	require.True(t, mini.Exists("coursekeep:alice:courses"))
}

func TestRedisSubstrateUnavailable(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr(), MaxRetries: -1})
	defer client.Close()
	mini.Close()

	substrate := NewRedis(client, "default")
	err = substrate.Set(context.Background(), "courses", "[]")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestGormSubstrate(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	substrate, err := NewGorm(db, "alice")
	require.NoError(t, err)
	exerciseSubstrate(t, substrate)

	other, err := NewGorm(db, "bob")
	require.NoError(t, err)
	keys, err := other.Keys(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestNewGormRejectsNilHandle(t *testing.T) {
	_, err := NewGorm(nil, "default")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestClassify(t *testing.T) {
	require.Equal(t, KindNone, Classify(nil))
	require.Equal(t, KindNotFound, Classify(ErrNotFound))
	require.Equal(t, KindQuota, Classify(fmt.Errorf("%w: full", ErrQuotaExceeded)))
	require.Equal(t, KindUnavailable, Classify(fmt.Errorf("%w: down", ErrUnavailable)))
	require.Equal(t, KindUnknown, Classify(fmt.Errorf("boom")))
	require.True(t, isOutOfMemory(fmt.Errorf("OOM command not allowed when used memory > 'maxmemory'")))
}
