package models

import "time"

// KVEntry is one logical key of the SQL storage substrate.
type KVEntry struct {
	Namespace string    `gorm:"primaryKey;size:128"`
	Key       string    `gorm:"primaryKey;size:255"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName pins the table used by the SQL substrate.
func (KVEntry) TableName() string {
	return "kv_entries"
}

// BackupInfo describes one pre-migration snapshot.
type BackupInfo struct {
	Key         string    `json:"key"`
	Timestamp   time.Time `json:"timestamp"`
	RecordCount int       `json:"recordCount"`
	SizeBytes   int       `json:"sizeBytes"`
}

// Draft is an in-progress authoring snapshot saved by the autosaver.
type Draft struct {
	Key     string    `json:"key"`
	Course  Course    `json:"course"`
	SavedAt time.Time `json:"savedAt"`
}
