package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/noah-isme/coursekeep-go/internal/models"
	"github.com/noah-isme/coursekeep-go/internal/observability"
)

// Store is the typed adapter over a Substrate. It is constructed once per process and shared.
//
// Reads never fail loudly: corrupt values are discarded and callers get their fallback.
// When the substrate is unavailable, writes land in an in-memory shadow that later reads prefer.
type Store struct {
	substrate Substrate
	validator *RecordValidator
	logger    zerolog.Logger

	mu       sync.RWMutex
	shadow   map[string]string
	degraded atomic.Bool
}

// NewStore wraps substrate. A nil substrate yields a store that runs entirely in memory and reports degraded.
func NewStore(substrate Substrate, logger zerolog.Logger) (*Store, error) {
	validator, err := NewRecordValidator()
	if err != nil {
		return nil, err
	}

	store := &Store{
		substrate: substrate,
		validator: validator,
		logger:    logger.With().Str("component", "storage").Logger(),
		shadow:    make(map[string]string),
	}
	if substrate == nil {
		store.degraded.Store(true)
		store.logger.Warn().Msg("no storage substrate configured; running in memory only")
	}
	return store, nil
}

// Degraded reports whether the substrate has failed and writes are only held in memory.
func (s *Store) Degraded() bool {
	return s.degraded.Load()
}

// LoadRaw returns the stored string for key.
func (s *Store) LoadRaw(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	shadowed, ok := s.shadow[key]
	s.mu.RUnlock()
	if ok {
		return shadowed, nil
	}

	if s.substrate == nil {
		return "", ErrNotFound
	}

	value, err := s.substrate.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.markDegraded(err)
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read from storage")
		}
		s.record("load", err)
		return "", err
	}

	s.record("load", nil)
	return value, nil
}

// SaveRaw writes value under key. Quota failures are returned as-is; nothing is evicted.
func (s *Store) SaveRaw(ctx context.Context, key, value string) error {
	if s.substrate == nil {
		s.keepInShadow(key, value)
		return fmt.Errorf("%w: no substrate", ErrUnavailable)
	}

	err := s.substrate.Set(ctx, key, value)
	s.record("save", err)
	switch {
	case err == nil:
		s.mu.Lock()
		delete(s.shadow, key)
		s.mu.Unlock()
		return nil
	case errors.Is(err, ErrQuotaExceeded):
		s.logger.Warn().Err(err).Str("key", key).Int("bytes", len(value)).Msg("storage quota exceeded")
		return err
	default:
		if !errors.Is(err, ErrUnavailable) {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		s.markDegraded(err)
		s.keepInShadow(key, value)
		s.logger.Warn().Err(err).Str("key", key).Msg("storage unavailable; keeping value in memory")
		return err
	}
}

// Remove deletes key from the shadow and the substrate.
func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.shadow, key)
	s.mu.Unlock()

	if s.substrate == nil {
		return nil
	}

	err := s.substrate.Remove(ctx, key)
	s.record("remove", err)
	if err != nil {
		s.markDegraded(err)
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to remove key")
	}
	return err
}

// Keys enumerates keys with prefix, merged with any shadowed keys.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	seen := map[string]struct{}{}

	var err error
	if s.substrate != nil {
		var keys []string
		keys, err = s.substrate.Keys(ctx, prefix)
		s.record("keys", err)
		if err != nil {
			s.markDegraded(err)
			s.logger.Warn().Err(err).Str("prefix", prefix).Msg("failed to enumerate keys")
		}
		for _, key := range keys {
			seen[key] = struct{}{}
		}
	}

	s.mu.RLock()
	for key := range s.shadow {
		if strings.HasPrefix(key, prefix) {
			seen[key] = struct{}{}
		}
	}
	s.mu.RUnlock()

	result := make([]string, 0, len(seen))
	for key := range seen {
		result = append(result, key)
	}
	sort.Strings(result)
	return result, err
}

// Usage reports bytes held by the substrate.
func (s *Store) Usage(ctx context.Context) (int64, error) {
	if s.substrate == nil {
		return 0, ErrUnavailable
	}
	return s.substrate.Usage(ctx)
}

// Load decodes the JSON value under key into T. It always returns a usable value: fallback on a
// missing key, a read failure, or a corrupt payload. Corrupt payloads are deleted.
func Load[T any](ctx context.Context, s *Store, key string, fallback T) (T, error) {
	raw, err := s.LoadRaw(ctx, key)
	if err != nil {
		return fallback, err
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding corrupt payload")
		s.record("decode", ErrCorruptPayload)
		_ = s.Remove(ctx, key)
		return fallback, fmt.Errorf("%w: %s: %v", ErrCorruptPayload, key, err)
	}
	return value, nil
}

// Save encodes value as JSON under key.
func Save[T any](ctx context.Context, s *Store, key string, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrInvalidInput, key, err)
	}
	return s.SaveRaw(ctx, key, string(payload))
}

// LoadCourses reads the course collection, keeping only records that pass validation.
// A missing, corrupt or non-array payload yields an empty collection.
func (s *Store) LoadCourses(ctx context.Context) ([]models.Course, error) {
	courses := []models.Course{}

	raw, err := s.LoadRaw(ctx, KeyCourses)
	if errors.Is(err, ErrNotFound) {
		return courses, nil
	}
	if err != nil {
		return courses, err
	}

	if !json.Valid([]byte(raw)) {
		s.logger.Warn().Str("key", KeyCourses).Msg("discarding corrupt course payload")
		_ = s.Remove(ctx, KeyCourses)
		return courses, fmt.Errorf("%w: %s", ErrCorruptPayload, KeyCourses)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		s.logger.Warn().Str("key", KeyCourses).Msg("stored courses are not a collection; treating as empty")
		return courses, fmt.Errorf("%w: %s is not an array", ErrInvalidInput, KeyCourses)
	}

	for index, element := range elements {
		course, result := s.decodeCourse(element)
		if !result.Valid {
			s.logger.Warn().Int("index", index).Str("reason", result.Reason).Msg("skipping invalid stored course")
			continue
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// SaveCourses writes the course collection.
func (s *Store) SaveCourses(ctx context.Context, courses []models.Course) error {
	if courses == nil {
		courses = []models.Course{}
	}
	return Save(ctx, s, KeyCourses, courses)
}

func (s *Store) decodeCourse(element json.RawMessage) (models.Course, Validation) {
	var doc interface{}
	if err := json.Unmarshal(element, &doc); err != nil {
		return models.Course{}, Validation{Reason: err.Error()}
	}

	result := s.validator.Validate(doc)
	if !result.Valid {
		return models.Course{}, result
	}

	course, err := decodeLenient(doc)
	if err != nil {
		return models.Course{}, Validation{Reason: err.Error()}
	}
	return course, result
}

func (s *Store) keepInShadow(key, value string) {
	s.mu.Lock()
	s.shadow[key] = value
	s.mu.Unlock()
}

func (s *Store) markDegraded(err error) {
	if errors.Is(err, ErrUnavailable) && !s.degraded.Swap(true) {
		s.logger.Error().Err(err).Msg("storage substrate unavailable; degrading to memory")
	}
}

func (s *Store) record(op string, err error) {
	observability.StorageOperations().WithLabelValues(op, string(Classify(err))).Inc()
}
