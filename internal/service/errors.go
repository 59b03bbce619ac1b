package service

import "errors"

var (
	// ErrCourseNotFound indicates the course id is not in the catalog.
	ErrCourseNotFound = errors.New("course not found")
	// ErrSectionNotFound indicates the section id is not part of the course.
	ErrSectionNotFound = errors.New("section not found")
	// ErrLessonNotFound indicates the lesson id is not part of the section.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrInvalidOrder indicates a reorder request that is not a permutation of the current ids.
	ErrInvalidOrder = errors.New("order must list every existing id exactly once")
	// ErrInvalidThumbnail indicates a thumbnail that is neither an http(s) url nor an image data uri.
	ErrInvalidThumbnail = errors.New("thumbnail must be an http(s) url or an image data uri")
	// ErrBackupNotFound indicates the backup key does not exist.
	ErrBackupNotFound = errors.New("backup not found")
	// ErrInvalidBackupKey indicates a key outside the backup namespace.
	ErrInvalidBackupKey = errors.New("invalid backup key")
	// ErrInvalidProgressBundle indicates an import payload without any recognised section.
	ErrInvalidProgressBundle = errors.New("progress bundle must contain progress, bookmarks or streak")
	// ErrDraftNotFound indicates no draft is stored under the key.
	ErrDraftNotFound = errors.New("draft not found")
)
