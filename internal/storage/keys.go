package storage

import (
	"strconv"
	"strings"
	"time"
)

// Logical keys, one JSON document each.
const (
	KeyCourses          = "courses"
	KeyProgress         = "course_progress"
	KeyBookmarks        = "course_bookmarks"
	KeyStreak           = "learning_streak"
	KeyMigrationVersion = "course_data_migration_version"

	PrefixBackup = "courses_backup_"
	PrefixDraft  = "course_draft_"

	// NewDraftID is the draft slot used while authoring a course that has no id yet.
	NewDraftID = "new"
)

// BackupKey returns the backup key for a snapshot taken at t.
func BackupKey(t time.Time) string {
	return PrefixBackup + strconv.FormatInt(t.UnixMilli(), 10)
}

// BackupTimestamp extracts the snapshot time from a backup key.
func BackupTimestamp(key string) (time.Time, bool) {
	if !strings.HasPrefix(key, PrefixBackup) {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(strings.TrimPrefix(key, PrefixBackup), 10, 64)
	if err != nil || millis < 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(millis).UTC(), true
}

// DraftKey returns the draft key for courseID, using the "new" slot for unsaved courses.
func DraftKey(courseID string) string {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		courseID = NewDraftID
	}
	return PrefixDraft + courseID
}
