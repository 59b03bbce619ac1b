package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/coursekeep-go/internal/models"
	"github.com/noah-isme/coursekeep-go/internal/observability"
	"github.com/noah-isme/coursekeep-go/internal/storage"
)

// ProgressBundleVersion labels exported progress bundles.
const ProgressBundleVersion = "1.0"

// ProgressService is the ledger of lesson completions, bookmarks and the learning streak.
type ProgressService interface {
	ToggleLessonCompletion(ctx context.Context, lessonID string, metadata map[string]interface{}) (bool, error)
	IsLessonCompleted(ctx context.Context, lessonID string) bool
	CompletedLessonIDs(ctx context.Context) []string
	CalculateCourseProgress(ctx context.Context, course models.Course) models.CourseProgress
	GetAllCoursesProgress(ctx context.Context, courses []models.Course) map[string]models.CourseProgress
	ToggleCourseBookmark(ctx context.Context, courseID string) (bool, error)
	IsCourseBookmarked(ctx context.Context, courseID string) bool
	Bookmarks(ctx context.Context) []string
	UpdateLearningStreak(ctx context.Context) (models.StreakRecord, error)
	Streak(ctx context.Context) models.StreakRecord
	ExportProgressData(ctx context.Context) models.ProgressBundle
	ImportProgressData(ctx context.Context, bundle models.ProgressBundle) error
	ResetProgress(ctx context.Context) error
}

type progressService struct {
	store     *storage.Store
	publisher ActivityPublisher
	logger    zerolog.Logger
	now       func() time.Time

	mu        sync.Mutex
	loaded    bool
	progress  models.ProgressRecord
	bookmarks []string
	streak    models.StreakRecord
}

// NewProgressService constructs the progress ledger. publisher may be nil.
func NewProgressService(store *storage.Store, publisher ActivityPublisher, logger zerolog.Logger) ProgressService {
	return &progressService{
		store:     store,
		publisher: publisher,
		logger:    logger.With().Str("component", "progress_service").Logger(),
		now:       time.Now,
	}
}

func (s *progressService) ToggleLessonCompletion(ctx context.Context, lessonID string, metadata map[string]interface{}) (bool, error) {
	lessonID = strings.TrimSpace(lessonID)
	if lessonID == "" {
		return false, fmt.Errorf("%w: lesson id is required", storage.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)

	if record, ok := s.progress[lessonID]; ok && record.Completed {
		delete(s.progress, lessonID)
		err := storage.Save(ctx, s.store, storage.KeyProgress, s.progress)
		observability.LessonCompletions().WithLabelValues("uncompleted").Inc()
		publishActivity(ctx, s.publisher, s.logger, ActivityEvent{
			Type:       EventLessonUncompleted,
			LessonID:   lessonID,
			OccurredAt: s.now().UTC(),
		})
		return false, err
	}

	record := models.LessonCompletion{
		Completed:   true,
		CompletedAt: s.now().UTC(),
	}
	if extra := completionMetadata(metadata); len(extra) > 0 {
		record.Metadata = extra
	}
	s.progress[lessonID] = record

	err := storage.Save(ctx, s.store, storage.KeyProgress, s.progress)
	observability.LessonCompletions().WithLabelValues("completed").Inc()
	publishActivity(ctx, s.publisher, s.logger, ActivityEvent{
		Type:       EventLessonCompleted,
		LessonID:   lessonID,
		State:      true,
		OccurredAt: record.CompletedAt,
	})

	if _, streakErr := s.updateStreakLocked(ctx); streakErr != nil && err == nil {
		err = streakErr
	}
	return true, err
}

func (s *progressService) IsLessonCompleted(ctx context.Context, lessonID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)

	return s.completedLocked(lessonID)
}

func (s *progressService) CompletedLessonIDs(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)

	ids := make([]string, 0, len(s.progress))
	for id, record := range s.progress {
		if record.Completed {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *progressService) CalculateCourseProgress(ctx context.Context, course models.Course) models.CourseProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)

	return s.courseProgressLocked(course)
}

func (s *progressService) GetAllCoursesProgress(ctx context.Context, courses []models.Course) map[string]models.CourseProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)

	result := make(map[string]models.CourseProgress, len(courses))
	for _, course := range courses {
		result[course.ID] = s.courseProgressLocked(course)
	}
	return result
}

func (s *progressService) ToggleCourseBookmark(ctx context.Context, courseID string) (bool, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return false, fmt.Errorf("%w: course id is required", storage.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)

	bookmarked := true
	for i, id := range s.bookmarks {
		if id == courseID {
			s.bookmarks = append(s.bookmarks[:i], s.bookmarks[i+1:]...)
			bookmarked = false
			break
		}
	}
	if bookmarked {
		s.bookmarks = append(s.bookmarks, courseID)
	}

	err := storage.Save(ctx, s.store, storage.KeyBookmarks, s.bookmarks)
	publishActivity(ctx, s.publisher, s.logger, ActivityEvent{
		Type:       EventBookmarkToggled,
		CourseID:   courseID,
		State:      bookmarked,
		OccurredAt: s.now().UTC(),
	})
	return bookmarked, err
}

func (s *progressService) IsCourseBookmarked(ctx context.Context, courseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)

	for _, id := range s.bookmarks {
		if id == courseID {
			return true
		}
	}
	return false
}

func (s *progressService) Bookmarks(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)

	return append([]string{}, s.bookmarks...)
}

func (s *progressService) UpdateLearningStreak(ctx context.Context) (models.StreakRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)

	return s.updateStreakLocked(ctx)
}

func (s *progressService) Streak(ctx context.Context) models.StreakRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)

	return copyStreak(s.streak)
}

func (s *progressService) ExportProgressData(ctx context.Context) models.ProgressBundle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)

	progress := make(models.ProgressRecord, len(s.progress))
	for id, record := range s.progress {
		progress[id] = record
	}
	bookmarks := append([]string{}, s.bookmarks...)
	streak := copyStreak(s.streak)

	return models.ProgressBundle{
		Progress:   &progress,
		Bookmarks:  &bookmarks,
		Streak:     &streak,
		ExportedAt: s.now().UTC(),
		Version:    ProgressBundleVersion,
	}
}

func (s *progressService) ImportProgressData(ctx context.Context, bundle models.ProgressBundle) error {
	if bundle.Progress == nil && bundle.Bookmarks == nil && bundle.Streak == nil {
		return ErrInvalidProgressBundle
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)

	var errs []error
	if bundle.Progress != nil {
		progress := make(models.ProgressRecord, len(*bundle.Progress))
		for id, record := range *bundle.Progress {
			if strings.TrimSpace(id) == "" || !record.Completed {
				continue
			}
			progress[id] = record
		}
		s.progress = progress
		errs = append(errs, storage.Save(ctx, s.store, storage.KeyProgress, s.progress))
	}
	if bundle.Bookmarks != nil {
		s.bookmarks = uniqueStrings(*bundle.Bookmarks)
		errs = append(errs, storage.Save(ctx, s.store, storage.KeyBookmarks, s.bookmarks))
	}
	if bundle.Streak != nil {
		s.streak = normalizeStreak(*bundle.Streak)
		errs = append(errs, storage.Save(ctx, s.store, storage.KeyStreak, s.streak))
	}

	s.logger.Info().
		Bool("progress", bundle.Progress != nil).
		Bool("bookmarks", bundle.Bookmarks != nil).
		Bool("streak", bundle.Streak != nil).
		Msg("progress bundle imported")
	return errors.Join(errs...)
}

func (s *progressService) ResetProgress(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.progress = models.ProgressRecord{}
	s.bookmarks = []string{}
	s.streak = emptyStreak()

	var errs []error
	for _, key := range []string{storage.KeyProgress, storage.KeyBookmarks, storage.KeyStreak} {
		if err := s.store.Remove(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// updateStreakLocked records today as an activity day. A second call on the same day changes nothing.
func (s *progressService) updateStreakLocked(ctx context.Context) (models.StreakRecord, error) {
	today := s.now().Format(models.DateLayout)
	for _, date := range s.streak.ActivityDates {
		if date == today {
			return copyStreak(s.streak), nil
		}
	}

	s.streak.ActivityDates = append(s.streak.ActivityDates, today)
	s.streak = normalizeStreak(s.streak)
	s.streak.CurrentStreak = consecutiveDays(s.streak.ActivityDates, today)
	if s.streak.CurrentStreak > s.streak.LongestStreak {
		s.streak.LongestStreak = s.streak.CurrentStreak
	}
	last := today
	s.streak.LastActivity = &last

	err := storage.Save(ctx, s.store, storage.KeyStreak, s.streak)
	snapshot := copyStreak(s.streak)
	publishActivity(ctx, s.publisher, s.logger, ActivityEvent{
		Type:       EventStreakUpdated,
		State:      true,
		Streak:     &snapshot,
		OccurredAt: s.now().UTC(),
	})
	return copyStreak(s.streak), err
}

func (s *progressService) ensureLoadedLocked(ctx context.Context) {
	if s.loaded {
		return
	}

	var err error
	s.progress, err = storage.Load(ctx, s.store, storage.KeyProgress, models.ProgressRecord{})
	s.logLoad(storage.KeyProgress, err)
	if s.progress == nil {
		s.progress = models.ProgressRecord{}
	}

	s.bookmarks, err = storage.Load(ctx, s.store, storage.KeyBookmarks, []string{})
	s.logLoad(storage.KeyBookmarks, err)
	s.bookmarks = uniqueStrings(s.bookmarks)

	s.streak, err = storage.Load(ctx, s.store, storage.KeyStreak, emptyStreak())
	s.logLoad(storage.KeyStreak, err)
	s.streak = normalizeStreak(s.streak)

	s.loaded = true
}

func (s *progressService) logLoad(key string, err error) {
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		return
	}
	s.logger.Warn().Err(err).Str("key", key).Msg("progress state loaded with fallback")
}

func (s *progressService) completedLocked(lessonID string) bool {
	record, ok := s.progress[lessonID]
	return ok && record.Completed
}

func (s *progressService) courseProgressLocked(course models.Course) models.CourseProgress {
	result := models.CourseProgress{TotalSections: len(course.Sections)}
	for _, section := range course.Sections {
		done := 0
		for _, lesson := range section.Lessons {
			if s.completedLocked(lesson.ID) {
				done++
			}
		}
		result.TotalLessons += len(section.Lessons)
		result.CompletedLessons += done
		if len(section.Lessons) > 0 && done == len(section.Lessons) {
			result.CompletedSections++
		}
	}
	if result.TotalLessons > 0 {
		result.CompletionPercentage = int(math.Round(100 * float64(result.CompletedLessons) / float64(result.TotalLessons)))
	}
	return result
}

// consecutiveDays counts days ending at today that appear in dates without a gap.
func consecutiveDays(dates []string, today string) int {
	present := make(map[string]struct{}, len(dates))
	for _, date := range dates {
		present[date] = struct{}{}
	}

	day, err := time.Parse(models.DateLayout, today)
	if err != nil {
		return 0
	}
	count := 0
	for {
		if _, ok := present[day.Format(models.DateLayout)]; !ok {
			return count
		}
		count++
		day = day.AddDate(0, 0, -1)
	}
}

func completionMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if len(metadata) == 0 {
		return nil
	}
	extra := make(datatypes.JSONMap, len(metadata))
	for key, value := range metadata {
		if key == "completed" || key == "completedAt" {
			continue
		}
		extra[key] = value
	}
	return extra
}

// normalizeStreak drops malformed dates, sorts and de-duplicates the rest, and clamps counters.
func normalizeStreak(streak models.StreakRecord) models.StreakRecord {
	dates := make([]string, 0, len(streak.ActivityDates))
	for _, date := range streak.ActivityDates {
		if _, err := time.Parse(models.DateLayout, date); err == nil {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	streak.ActivityDates = uniqueStrings(dates)

	if streak.CurrentStreak < 0 {
		streak.CurrentStreak = 0
	}
	if streak.LongestStreak < streak.CurrentStreak {
		streak.LongestStreak = streak.CurrentStreak
	}
	return streak
}

func emptyStreak() models.StreakRecord {
	return models.StreakRecord{ActivityDates: []string{}}
}

func copyStreak(streak models.StreakRecord) models.StreakRecord {
	clone := streak
	clone.ActivityDates = append([]string{}, streak.ActivityDates...)
	if streak.LastActivity != nil {
		last := *streak.LastActivity
		clone.LastActivity = &last
	}
	return clone
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}
