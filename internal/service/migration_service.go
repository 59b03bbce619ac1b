package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/coursekeep-go/internal/dto"
	"github.com/noah-isme/coursekeep-go/internal/models"
	"github.com/noah-isme/coursekeep-go/internal/observability"
	"github.com/noah-isme/coursekeep-go/internal/sanitizer"
	"github.com/noah-isme/coursekeep-go/internal/storage"
)

// DefaultKeepBackups is the number of backups kept by RunAutoMigration.
const DefaultKeepBackups = 3

// MigrationService upgrades stored courses to the current sanitisation policy and manages backups.
type MigrationService interface {
	IsMigrationNeeded(ctx context.Context) bool
	MigrateExistingData(ctx context.Context, createBackup bool) dto.MigrationResult
	RestoreFromBackup(ctx context.Context, key string) error
	ListBackups(ctx context.Context) ([]models.BackupInfo, error)
	CleanupOldBackups(ctx context.Context, keep int) (int, error)
	RunAutoMigration(ctx context.Context) dto.MigrationResult
	Status(ctx context.Context) dto.MigrationStatus
}

type migrationService struct {
	store         *storage.Store
	targetVersion string
	keepBackups   int
	tracer        trace.Tracer
	logger        zerolog.Logger
	now           func() time.Time
}

// NewMigrationService constructs the migration engine for targetVersion.
func NewMigrationService(store *storage.Store, targetVersion string, keepBackups int, logger zerolog.Logger) MigrationService {
	if strings.TrimSpace(targetVersion) == "" {
		targetVersion = "2.0.0"
	}
	if keepBackups <= 0 {
		keepBackups = DefaultKeepBackups
	}
	return &migrationService{
		store:         store,
		targetVersion: targetVersion,
		keepBackups:   keepBackups,
		tracer:        observability.Tracer("service/migration"),
		logger:        logger.With().Str("component", "migration_service").Logger(),
		now:           time.Now,
	}
}

func (s *migrationService) IsMigrationNeeded(ctx context.Context) bool {
	version, err := s.currentVersion(ctx)
	if err != nil {
		return true
	}
	return version != s.targetVersion
}

func (s *migrationService) MigrateExistingData(ctx context.Context, createBackup bool) dto.MigrationResult {
	ctx, span := s.tracer.Start(ctx, "migration.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("migration.target_version", s.targetVersion),
		attribute.Bool("migration.backup", createBackup),
	)

	result := dto.MigrationResult{Version: s.targetVersion}
	fail := func(message string, err error) dto.MigrationResult {
		span.RecordError(err)
		span.SetStatus(codes.Error, message)
		observability.Migrations().WithLabelValues("failed").Inc()
		s.logger.Error().Err(err).Str("backup_key", result.BackupKey).Msg(message)
		result.Success = false
		result.Message = fmt.Sprintf("%s: %v", message, err)
		result.CompletedAt = s.now().UTC()
		return result
	}

	raw, err := s.store.LoadRaw(ctx, storage.KeyCourses)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && strings.TrimSpace(raw) == "") {
		if err := s.markComplete(ctx); err != nil {
			return fail("could not write migration version", err)
		}
		observability.Migrations().WithLabelValues("empty").Inc()
		result.Success = true
		result.Message = "no course data to migrate"
		result.CompletedAt = s.now().UTC()
		return result
	}
	if err != nil {
		return fail("could not read courses", err)
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return fail("stored courses are not valid JSON", fmt.Errorf("%w: %v", storage.ErrCorruptPayload, err))
	}
	collection, ok := decoded.([]interface{})
	if !ok {
		return fail("stored courses are not a collection", storage.ErrInvalidInput)
	}

	if createBackup {
		key := storage.BackupKey(s.now())
		if err := s.store.SaveRaw(ctx, key, raw); err != nil {
			return fail("could not write backup", err)
		}
		result.BackupKey = key
	}

	cleaned := sanitizer.SanitizeCollection(collection)
	payload, err := json.Marshal(cleaned)
	if err != nil {
		return fail("could not encode sanitised courses", err)
	}
	if err := s.store.SaveRaw(ctx, storage.KeyCourses, string(payload)); err != nil {
		return fail("could not save sanitised courses", err)
	}
	if err := s.markComplete(ctx); err != nil {
		return fail("could not write migration version", err)
	}

	result.Success = true
	result.RecordCount = len(cleaned)
	result.BytesBefore = len(raw)
	result.BytesAfter = len(payload)
	result.BytesSaved = result.BytesBefore - result.BytesAfter
	if result.BytesBefore > 0 {
		result.PercentSaved = roundOneDecimal(100 * float64(result.BytesSaved) / float64(result.BytesBefore))
	}
	result.Message = fmt.Sprintf("migrated %d courses to version %s", result.RecordCount, s.targetVersion)
	result.CompletedAt = s.now().UTC()

	span.SetAttributes(
		attribute.Int("migration.record_count", result.RecordCount),
		attribute.Int("migration.bytes_saved", result.BytesSaved),
	)
	observability.Migrations().WithLabelValues("success").Inc()
	s.logger.Info().
		Int("records", result.RecordCount).
		Int("bytes_before", result.BytesBefore).
		Int("bytes_after", result.BytesAfter).
		Float64("percent_saved", result.PercentSaved).
		Str("backup_key", result.BackupKey).
		Msg("course data migrated")
	return result
}

func (s *migrationService) RestoreFromBackup(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if _, ok := storage.BackupTimestamp(key); !ok {
		return ErrInvalidBackupKey
	}

	payload, err := s.store.LoadRaw(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrBackupNotFound
		}
		return err
	}

	if err := s.store.SaveRaw(ctx, storage.KeyCourses, payload); err != nil {
		return err
	}
	if err := s.store.Remove(ctx, storage.KeyMigrationVersion); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	s.logger.Info().Str("backup_key", key).Msg("courses restored from backup")
	return nil
}

func (s *migrationService) ListBackups(ctx context.Context) ([]models.BackupInfo, error) {
	keys, err := s.store.Keys(ctx, storage.PrefixBackup)
	backups := make([]models.BackupInfo, 0, len(keys))
	for _, key := range keys {
		timestamp, ok := storage.BackupTimestamp(key)
		if !ok {
			continue
		}
		payload, loadErr := s.store.LoadRaw(ctx, key)
		if loadErr != nil {
			s.logger.Warn().Err(loadErr).Str("key", key).Msg("skipping unreadable backup")
			continue
		}

		info := models.BackupInfo{
			Key:       key,
			Timestamp: timestamp,
			SizeBytes: len(payload),
		}
		var records []json.RawMessage
		if json.Unmarshal([]byte(payload), &records) == nil {
			info.RecordCount = len(records)
		}
		backups = append(backups, info)
	}

	sort.SliceStable(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, err
}

func (s *migrationService) CleanupOldBackups(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for i := keep; i < len(backups); i++ {
		if err := s.store.Remove(ctx, backups[i].Key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Int("kept", keep).Msg("old backups removed")
	}
	return removed, nil
}

func (s *migrationService) RunAutoMigration(ctx context.Context) dto.MigrationResult {
	if !s.IsMigrationNeeded(ctx) {
		observability.Migrations().WithLabelValues("skipped").Inc()
		s.logger.Debug().Str("version", s.targetVersion).Msg("course data already migrated")
		return dto.MigrationResult{
			Success:     true,
			Skipped:     true,
			Version:     s.targetVersion,
			Message:     fmt.Sprintf("data already at version %s", s.targetVersion),
			CompletedAt: s.now().UTC(),
		}
	}

	result := s.MigrateExistingData(ctx, true)

	// Rotate even when the run failed.
	removed, err := s.CleanupOldBackups(ctx, s.keepBackups)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to rotate backups")
	}
	result.RemovedCount = removed
	return result
}

func (s *migrationService) Status(ctx context.Context) dto.MigrationStatus {
	version, err := s.currentVersion(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn().Err(err).Msg("failed to read migration version")
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to list backups")
	}

	return dto.MigrationStatus{
		CurrentVersion: version,
		TargetVersion:  s.targetVersion,
		Needed:         version != s.targetVersion,
		Backups:        backups,
	}
}

// currentVersion accepts both a JSON string and a bare version token.
func (s *migrationService) currentVersion(ctx context.Context) (string, error) {
	raw, err := s.store.LoadRaw(ctx, storage.KeyMigrationVersion)
	if err != nil {
		return "", err
	}
	var version string
	if json.Unmarshal([]byte(raw), &version) == nil {
		return version, nil
	}
	return strings.TrimSpace(raw), nil
}

func (s *migrationService) markComplete(ctx context.Context) error {
	return storage.Save(ctx, s.store, storage.KeyMigrationVersion, s.targetVersion)
}
