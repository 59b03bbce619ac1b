package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/coursekeep-go/internal/models"
	"github.com/noah-isme/coursekeep-go/internal/observability"
	"github.com/noah-isme/coursekeep-go/internal/sanitizer"
	"github.com/noah-isme/coursekeep-go/internal/storage"
)

// DraftService stores in-progress authoring snapshots under course_draft_<id|new>.
type DraftService interface {
	SaveDraft(ctx context.Context, courseID string, course models.Course) (models.Draft, error)
	LoadDraft(ctx context.Context, courseID string) (models.Draft, error)
	DiscardDraft(ctx context.Context, courseID string) error
	ListDrafts(ctx context.Context) ([]models.Draft, error)
}

type draftService struct {
	store  *storage.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewDraftService constructs the draft service.
func NewDraftService(store *storage.Store, logger zerolog.Logger) DraftService {
	return &draftService{
		store:  store,
		logger: logger.With().Str("component", "draft_service").Logger(),
		now:    time.Now,
	}
}

// SaveDraft overwrites the draft slot, so repeated saves of the same snapshot are harmless.
func (s *draftService) SaveDraft(ctx context.Context, courseID string, course models.Course) (models.Draft, error) {
	key := storage.DraftKey(courseID)
	draft := models.Draft{
		Key:     key,
		Course:  sanitizer.SanitizeCourse(course),
		SavedAt: s.now().UTC(),
	}
	draft.Course.Renumber()

	if err := storage.Save(ctx, s.store, key, draft); err != nil {
		return draft, err
	}
	return draft, nil
}

func (s *draftService) LoadDraft(ctx context.Context, courseID string) (models.Draft, error) {
	key := storage.DraftKey(courseID)
	draft, err := storage.Load(ctx, s.store, key, models.Draft{})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrCorruptPayload) {
			return models.Draft{}, ErrDraftNotFound
		}
		return models.Draft{}, err
	}
	draft.Key = key
	return draft, nil
}

func (s *draftService) DiscardDraft(ctx context.Context, courseID string) error {
	err := s.store.Remove(ctx, storage.DraftKey(courseID))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

func (s *draftService) ListDrafts(ctx context.Context) ([]models.Draft, error) {
	keys, err := s.store.Keys(ctx, storage.PrefixDraft)
	drafts := make([]models.Draft, 0, len(keys))
	for _, key := range keys {
		draft, loadErr := storage.Load(ctx, s.store, key, models.Draft{})
		if loadErr != nil {
			s.logger.Warn().Err(loadErr).Str("key", key).Msg("skipping unreadable draft")
			continue
		}
		draft.Key = key
		drafts = append(drafts, draft)
	}
	return drafts, err
}

// Autosaver periodically saves the current authoring draft.
type Autosaver struct {
	drafts   DraftService
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	current *models.Course
	id      string
}

// NewAutosaver constructs an autosaver firing every interval.
func NewAutosaver(drafts DraftService, interval time.Duration, logger zerolog.Logger) *Autosaver {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Autosaver{
		drafts:   drafts,
		interval: interval,
		logger:   logger.With().Str("component", "draft_autosaver").Logger(),
	}
}

// Track replaces the snapshot that the next tick will save.
func (a *Autosaver) Track(courseID string, course models.Course) {
	a.mu.Lock()
	defer a.mu.Unlock()

	clone := course.Clone()
	a.current = &clone
	a.id = strings.TrimSpace(courseID)
}

// Forget stops saving the tracked snapshot for courseID.
func (a *Autosaver) Forget(courseID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != nil && storage.DraftKey(a.id) == storage.DraftKey(courseID) {
		a.current = nil
		a.id = ""
	}
}

// Run saves the tracked snapshot on every tick until ctx is cancelled.
func (a *Autosaver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Flush(ctx)
		}
	}
}

// Flush saves the tracked snapshot now. Empty snapshots are skipped.
func (a *Autosaver) Flush(ctx context.Context) bool {
	a.mu.Lock()
	var course models.Course
	tracked := a.current != nil
	if tracked {
		course = a.current.Clone()
	}
	id := a.id
	a.mu.Unlock()

	if !tracked || draftIsEmpty(course) {
		observability.DraftAutosaves().WithLabelValues("skipped").Inc()
		return false
	}

	if _, err := a.drafts.SaveDraft(ctx, id, course); err != nil {
		observability.DraftAutosaves().WithLabelValues("error").Inc()
		a.logger.Warn().Err(err).Str("course_id", id).Msg("draft autosave failed")
		return false
	}
	observability.DraftAutosaves().WithLabelValues("saved").Inc()
	return true
}

func draftIsEmpty(course models.Course) bool {
	return strings.TrimSpace(course.Title) == "" &&
		strings.TrimSpace(course.Description) == "" &&
		len(course.Sections) == 0
}
