package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// DateLayout is the calendar-day format used for streak activity dates.
const DateLayout = "2006-01-02"

// LessonCompletion is the record kept for a completed lesson. Incomplete lessons have no record.
// Metadata supplied by the caller is flattened next to the reserved fields on the wire.
type LessonCompletion struct {
	Completed   bool
	CompletedAt time.Time
	Metadata    datatypes.JSONMap
}

// MarshalJSON flattens metadata into the record object.
func (l LessonCompletion) MarshalJSON() ([]byte, error) {
	payload := make(map[string]interface{}, len(l.Metadata)+2)
	for key, value := range l.Metadata {
		payload[key] = value
	}
	payload["completed"] = l.Completed
	payload["completedAt"] = l.CompletedAt
	return json.Marshal(payload)
}

// UnmarshalJSON splits reserved fields from caller metadata.
func (l *LessonCompletion) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*l = LessonCompletion{}
	if completed, ok := raw["completed"].(bool); ok {
		l.Completed = completed
	}
	switch at := raw["completedAt"].(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, at); err == nil {
			l.CompletedAt = parsed
		}
	case float64:
		l.CompletedAt = time.UnixMilli(int64(at)).UTC()
	}

	delete(raw, "completed")
	delete(raw, "completedAt")
	if len(raw) > 0 {
		l.Metadata = datatypes.JSONMap(raw)
	}
	return nil
}

// ProgressRecord maps lesson ids to completion records.
type ProgressRecord map[string]LessonCompletion

// StreakRecord tracks consecutive calendar days with learning activity.
type StreakRecord struct {
	CurrentStreak int      `json:"currentStreak"`
	LongestStreak int      `json:"longestStreak"`
	LastActivity  *string  `json:"lastActivity"`
	ActivityDates []string `json:"activityDates"`
}

// CourseProgress is the derived completion summary for one course.
type CourseProgress struct {
	TotalLessons         int `json:"totalLessons"`
	CompletedLessons     int `json:"completedLessons"`
	CompletionPercentage int `json:"completionPercentage"`
	CompletedSections    int `json:"completedSections"`
	TotalSections        int `json:"totalSections"`
}

// ProgressBundle is the export/import unit for the progress ledger. Nil fields are left untouched on import.
type ProgressBundle struct {
	Progress   *ProgressRecord `json:"progress,omitempty"`
	Bookmarks  *[]string       `json:"bookmarks,omitempty"`
	Streak     *StreakRecord   `json:"streak,omitempty"`
	ExportedAt time.Time       `json:"exportedAt"`
	Version    string          `json:"version,omitempty"`
}
