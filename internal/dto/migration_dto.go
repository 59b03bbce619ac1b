package dto

import (
	"time"

	"github.com/noah-isme/coursekeep-go/internal/models"
)

// MigrationResult reports the outcome of one migration attempt.
type MigrationResult struct {
	Success      bool      `json:"success"`
	Skipped      bool      `json:"skipped"`
	Message      string    `json:"message"`
	Version      string    `json:"version"`
	BackupKey    string    `json:"backupKey,omitempty"`
	RecordCount  int       `json:"recordCount"`
	BytesBefore  int       `json:"bytesBefore"`
	BytesAfter   int       `json:"bytesAfter"`
	BytesSaved   int       `json:"bytesSaved"`
	PercentSaved float64   `json:"percentSaved"`
	RemovedCount int       `json:"removedBackups"`
	CompletedAt  time.Time `json:"completedAt"`
}

// MigrationStatus summarises the stored data version and backups.
type MigrationStatus struct {
	CurrentVersion string              `json:"currentVersion"`
	TargetVersion  string              `json:"targetVersion"`
	Needed         bool                `json:"needed"`
	Backups        []models.BackupInfo `json:"backups"`
}

// BackupCleanupResponse reports a backup rotation.
type BackupCleanupResponse struct {
	Removed int `json:"removed"`
	Kept    int `json:"kept"`
}
