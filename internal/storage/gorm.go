package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/coursekeep-go/internal/models"
)

type gormSubstrate struct {
	db        *gorm.DB
	namespace string
	now       func() time.Time
}

// NewGorm stores keys as rows of kv_entries, one namespace per profile. The table is migrated on construction.
func NewGorm(db *gorm.DB, namespace string) (Substrate, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil database handle", ErrUnavailable)
	}
	if namespace == "" {
		namespace = "default"
	}
	if err := db.AutoMigrate(&models.KVEntry{}); err != nil {
		return nil, fmt.Errorf("%w: migrate kv_entries: %v", ErrUnavailable, err)
	}
	return &gormSubstrate{db: db, namespace: namespace, now: time.Now}, nil
}

func (g *gormSubstrate) Get(ctx context.Context, key string) (string, error) {
	var entry models.KVEntry
	err := g.db.WithContext(ctx).
		Where("namespace = ? AND key = ?", g.namespace, key).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", g.wrap(err)
	}
	return entry.Value, nil
}

func (g *gormSubstrate) Set(ctx context.Context, key, value string) error {
	entry := models.KVEntry{Namespace: g.namespace, Key: key, Value: value, UpdatedAt: g.now().UTC()}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return g.wrap(err)
	}
	return nil
}

func (g *gormSubstrate) Remove(ctx context.Context, key string) error {
	err := g.db.WithContext(ctx).
		Where("namespace = ? AND key = ?", g.namespace, key).
		Delete(&models.KVEntry{}).Error
	if err != nil {
		return g.wrap(err)
	}
	return nil
}

func (g *gormSubstrate) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := g.db.WithContext(ctx).Model(&models.KVEntry{}).
		Where("namespace = ?", g.namespace).
		Pluck("key", &keys).Error
	if err != nil {
		return nil, g.wrap(err)
	}

	result := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasPrefix(key, prefix) {
			result = append(result, key)
		}
	}
	sort.Strings(result)
	return result, nil
}

func (g *gormSubstrate) Usage(ctx context.Context) (int64, error) {
	var entries []models.KVEntry
	err := g.db.WithContext(ctx).
		Select("key", "value").
		Where("namespace = ?", g.namespace).
		Find(&entries).Error
	if err != nil {
		return 0, g.wrap(err)
	}

	var total int64
	for _, entry := range entries {
		total += int64(len(entry.Key) + len(entry.Value))
	}
	return total, nil
}

func (g *gormSubstrate) wrap(err error) error {
	if isOutOfMemory(err) || strings.Contains(strings.ToLower(err.Error()), "disk is full") {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
