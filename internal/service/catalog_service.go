package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursekeep-go/internal/dto"
	"github.com/noah-isme/coursekeep-go/internal/models"
	"github.com/noah-isme/coursekeep-go/internal/sanitizer"
	"github.com/noah-isme/coursekeep-go/internal/storage"
)

// Catalog sort orders.
const (
	SortRecent  = "recent"
	SortTitle   = "title"
	SortRating  = "rating"
	SortPopular = "popular"
	SortPrice   = "price"
)

// BookmarkLookup answers whether a course is bookmarked.
type BookmarkLookup interface {
	IsCourseBookmarked(ctx context.Context, courseID string) bool
}

// CatalogService owns the in-memory course collection and mirrors every mutation to storage.
type CatalogService interface {
	Reload(ctx context.Context) error
	All(ctx context.Context) []models.Course
	List(ctx context.Context, req dto.CourseListRequest) (dto.CourseListResult, error)
	Get(ctx context.Context, id string) (models.Course, error)
	Create(ctx context.Context, req dto.CourseRequest) (models.Course, error)
	Update(ctx context.Context, id string, req dto.CourseRequest) (models.Course, error)
	Delete(ctx context.Context, id string) error
	Replace(ctx context.Context, courses []models.Course) ([]models.Course, error)
	Clear(ctx context.Context) error

	AddSection(ctx context.Context, courseID string, req dto.SectionRequest) (models.Course, error)
	UpdateSection(ctx context.Context, courseID, sectionID string, req dto.SectionRequest) (models.Course, error)
	DeleteSection(ctx context.Context, courseID, sectionID string) (models.Course, error)
	ReorderSections(ctx context.Context, courseID string, ids []string) (models.Course, error)

	AddLesson(ctx context.Context, courseID, sectionID string, req dto.LessonRequest) (models.Course, error)
	UpdateLesson(ctx context.Context, courseID, sectionID, lessonID string, req dto.LessonRequest) (models.Course, error)
	DeleteLesson(ctx context.Context, courseID, sectionID, lessonID string) (models.Course, error)
	ReorderLessons(ctx context.Context, courseID, sectionID string, ids []string) (models.Course, error)
}

type catalogService struct {
	store     *storage.Store
	bookmarks BookmarkLookup
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	loaded  bool
	courses []models.Course
}

// NewCatalogService constructs the catalog service. bookmarks may be nil, in which case the
// bookmarked-only filter matches nothing.
func NewCatalogService(store *storage.Store, bookmarks BookmarkLookup, validate *validator.Validate, logger zerolog.Logger) CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	return &catalogService{
		store:     store,
		bookmarks: bookmarks,
		validator: validate,
		logger:    logger.With().Str("component", "catalog_service").Logger(),
		now:       time.Now,
	}
}

func (s *catalogService) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	courses, err := s.store.LoadCourses(ctx)
	s.courses = courses
	s.loaded = true
	if err != nil {
		s.logger.Warn().Err(err).Msg("course collection loaded with errors")
	}
	return err
}

func (s *catalogService) All(ctx context.Context) []models.Course {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)
	return cloneCourses(s.courses)
}

func (s *catalogService) List(ctx context.Context, req dto.CourseListRequest) (dto.CourseListResult, error) {
	courses := s.All(ctx)

	filters := dto.CourseListFilters{
		Search:         strings.TrimSpace(req.Search),
		Category:       strings.TrimSpace(req.Category),
		Difficulty:     strings.TrimSpace(req.Difficulty),
		Status:         strings.TrimSpace(req.Status),
		Sort:           normalizeCourseSort(req.Sort),
		BookmarkedOnly: req.BookmarkedOnly,
	}
	page := normalizePage(req.Page)
	pageSize := clampPageSize(req.PageSize)

	search := strings.ToLower(filters.Search)
	matched := make([]models.Course, 0, len(courses))
	for _, course := range courses {
		if filters.Category != "" && !strings.EqualFold(course.Category, filters.Category) {
			continue
		}
		if filters.Difficulty != "" && !strings.EqualFold(course.Difficulty, filters.Difficulty) {
			continue
		}
		if filters.Status != "" && !strings.EqualFold(course.Status, filters.Status) {
			continue
		}
		if search != "" && !courseMatches(course, search) {
			continue
		}
		if filters.BookmarkedOnly && (s.bookmarks == nil || !s.bookmarks.IsCourseBookmarked(ctx, course.ID)) {
			continue
		}
		matched = append(matched, course)
	}

	sortCourses(matched, filters.Sort)

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	return dto.CourseListResult{
		Items: matched[start:end],
		Pagination: dto.PaginationMeta{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: calculateTotalPages(total, pageSize),
		},
		Filters: filters,
	}, nil
}

func (s *catalogService) Get(ctx context.Context, id string) (models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)
	index := s.indexLocked(id)
	if index < 0 {
		return models.Course{}, ErrCourseNotFound
	}
	return s.courses[index].Clone(), nil
}

func (s *catalogService) Create(ctx context.Context, req dto.CourseRequest) (models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Course{}, err
	}
	if err := validateThumbnail(req.Thumbnail); err != nil {
		return models.Course{}, err
	}

	now := s.now().UTC()
	course := models.Course{
		ID:        strings.TrimSpace(req.ID),
		CreatedAt: now,
	}
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	applyCourseRequest(&course, req, now)
	if course.Sections == nil {
		course.Sections = []models.Section{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)
	clean := sanitizer.SanitizeCourse(course)
	s.courses = append(s.courses, clean)
	return clean.Clone(), s.persistLocked(ctx)
}

func (s *catalogService) Update(ctx context.Context, id string, req dto.CourseRequest) (models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Course{}, err
	}
	if err := validateThumbnail(req.Thumbnail); err != nil {
		return models.Course{}, err
	}

	return s.mutate(ctx, id, func(course *models.Course) error {
		applyCourseRequest(course, req, s.now().UTC())
		return nil
	})
}

func (s *catalogService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)
	index := s.indexLocked(id)
	if index < 0 {
		return ErrCourseNotFound
	}
	s.courses = append(s.courses[:index], s.courses[index+1:]...)
	return s.persistLocked(ctx)
}

func (s *catalogService) Replace(ctx context.Context, courses []models.Course) ([]models.Course, error) {
	now := s.now().UTC()
	replaced := make([]models.Course, 0, len(courses))
	for _, course := range courses {
		if err := validateThumbnail(course.Thumbnail); err != nil {
			return nil, fmt.Errorf("course %q: %w", course.ID, err)
		}
		if strings.TrimSpace(course.ID) == "" {
			course.ID = uuid.NewString()
		}
		if course.CreatedAt.IsZero() {
			course.CreatedAt = now
		}
		if course.UpdatedAt.IsZero() {
			course.UpdatedAt = course.CreatedAt
		}
		clean := sanitizer.SanitizeCourse(course)
		clean.Renumber()
		replaced = append(replaced, clean)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.courses = replaced
	return cloneCourses(replaced), s.persistLocked(ctx)
}

func (s *catalogService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.courses = []models.Course{}
	return s.persistLocked(ctx)
}

func (s *catalogService) AddSection(ctx context.Context, courseID string, req dto.SectionRequest) (models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Course{}, err
	}
	return s.mutate(ctx, courseID, func(course *models.Course) error {
		course.Sections = append(course.Sections, buildSection(req))
		return nil
	})
}

func (s *catalogService) UpdateSection(ctx context.Context, courseID, sectionID string, req dto.SectionRequest) (models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Course{}, err
	}
	return s.mutate(ctx, courseID, func(course *models.Course) error {
		section, err := findSection(course, sectionID)
		if err != nil {
			return err
		}
		section.Title = strings.TrimSpace(req.Title)
		section.Description = req.Description
		if req.Lessons != nil {
			section.Lessons = buildLessons(req.Lessons)
		}
		return nil
	})
}

func (s *catalogService) DeleteSection(ctx context.Context, courseID, sectionID string) (models.Course, error) {
	return s.mutate(ctx, courseID, func(course *models.Course) error {
		for i := range course.Sections {
			if course.Sections[i].ID == sectionID {
				course.Sections = append(course.Sections[:i], course.Sections[i+1:]...)
				return nil
			}
		}
		return ErrSectionNotFound
	})
}

func (s *catalogService) ReorderSections(ctx context.Context, courseID string, ids []string) (models.Course, error) {
	return s.mutate(ctx, courseID, func(course *models.Course) error {
		positions := make(map[string]int, len(course.Sections))
		for i, section := range course.Sections {
			positions[section.ID] = i
		}
		order, err := permutation(positions, ids)
		if err != nil {
			return err
		}
		reordered := make([]models.Section, 0, len(order))
		for _, index := range order {
			reordered = append(reordered, course.Sections[index])
		}
		course.Sections = reordered
		return nil
	})
}

func (s *catalogService) AddLesson(ctx context.Context, courseID, sectionID string, req dto.LessonRequest) (models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Course{}, err
	}
	return s.mutate(ctx, courseID, func(course *models.Course) error {
		section, err := findSection(course, sectionID)
		if err != nil {
			return err
		}
		section.Lessons = append(section.Lessons, buildLesson(req))
		return nil
	})
}

func (s *catalogService) UpdateLesson(ctx context.Context, courseID, sectionID, lessonID string, req dto.LessonRequest) (models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Course{}, err
	}
	return s.mutate(ctx, courseID, func(course *models.Course) error {
		section, err := findSection(course, sectionID)
		if err != nil {
			return err
		}
		for i := range section.Lessons {
			if section.Lessons[i].ID != lessonID {
				continue
			}
			updated := buildLesson(req)
			updated.ID = lessonID
			section.Lessons[i] = updated
			return nil
		}
		return ErrLessonNotFound
	})
}

func (s *catalogService) DeleteLesson(ctx context.Context, courseID, sectionID, lessonID string) (models.Course, error) {
	return s.mutate(ctx, courseID, func(course *models.Course) error {
		section, err := findSection(course, sectionID)
		if err != nil {
			return err
		}
		for i := range section.Lessons {
			if section.Lessons[i].ID == lessonID {
				section.Lessons = append(section.Lessons[:i], section.Lessons[i+1:]...)
				return nil
			}
		}
		return ErrLessonNotFound
	})
}

func (s *catalogService) ReorderLessons(ctx context.Context, courseID, sectionID string, ids []string) (models.Course, error) {
	return s.mutate(ctx, courseID, func(course *models.Course) error {
		section, err := findSection(course, sectionID)
		if err != nil {
			return err
		}
		positions := make(map[string]int, len(section.Lessons))
		for i, lesson := range section.Lessons {
			positions[lesson.ID] = i
		}
		order, err := permutation(positions, ids)
		if err != nil {
			return err
		}
		reordered := make([]models.Lesson, 0, len(order))
		for _, index := range order {
			reordered = append(reordered, section.Lessons[index])
		}
		section.Lessons = reordered
		return nil
	})
}

// mutate applies fn to a copy of the course, then renumbers, sanitises and persists it.
// The in-memory collection is only touched when fn succeeds.
func (s *catalogService) mutate(ctx context.Context, id string, fn func(course *models.Course) error) (models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)
	index := s.indexLocked(id)
	if index < 0 {
		return models.Course{}, ErrCourseNotFound
	}

	working := s.courses[index].Clone()
	if err := fn(&working); err != nil {
		return models.Course{}, err
	}
	working.Renumber()
	working.UpdatedAt = s.now().UTC()

	clean := sanitizer.SanitizeCourse(working)
	s.courses[index] = clean
	return clean.Clone(), s.persistLocked(ctx)
}

func (s *catalogService) ensureLoadedLocked(ctx context.Context) {
	if s.loaded {
		return
	}
	courses, err := s.store.LoadCourses(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("course collection loaded with errors")
	}
	s.courses = courses
	s.loaded = true
}

func (s *catalogService) indexLocked(id string) int {
	for i := range s.courses {
		if s.courses[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *catalogService) persistLocked(ctx context.Context) error {
	if err := s.store.SaveCourses(ctx, s.courses); err != nil {
		s.logger.Warn().Err(err).Int("courses", len(s.courses)).Msg("could not save courses")
		return err
	}
	return nil
}

func applyCourseRequest(course *models.Course, req dto.CourseRequest, now time.Time) {
	course.Title = strings.TrimSpace(req.Title)
	course.Description = req.Description
	course.Thumbnail = strings.TrimSpace(req.Thumbnail)
	course.Category = defaultString(req.Category, "other")
	course.Difficulty = defaultString(req.Difficulty, models.DifficultyBeginner)
	course.Status = defaultString(req.Status, models.CourseStatusDraft)
	course.Instructor = strings.TrimSpace(req.Instructor)
	course.Duration = strings.TrimSpace(req.Duration)
	course.Price = req.Price
	course.EnrolledStudents = req.EnrolledStudents
	course.Rating = req.Rating
	course.UpdatedAt = now
	if req.Sections != nil {
		sections := make([]models.Section, 0, len(req.Sections))
		for _, section := range req.Sections {
			sections = append(sections, buildSection(section))
		}
		course.Sections = sections
	}
	course.Renumber()
}

func buildSection(req dto.SectionRequest) models.Section {
	section := models.Section{
		ID:          defaultString(req.ID, uuid.NewString()),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Lessons:     buildLessons(req.Lessons),
	}
	section.Renumber()
	return section
}

func buildLessons(reqs []dto.LessonRequest) []models.Lesson {
	lessons := make([]models.Lesson, 0, len(reqs))
	for _, req := range reqs {
		lessons = append(lessons, buildLesson(req))
	}
	return lessons
}

func buildLesson(req dto.LessonRequest) models.Lesson {
	return models.Lesson{
		ID:          defaultString(req.ID, uuid.NewString()),
		Title:       strings.TrimSpace(req.Title),
		Content:     req.Content,
		Description: req.Description,
		Type:        defaultString(req.Type, "text"),
		Duration:    strings.TrimSpace(req.Duration),
	}
}

func findSection(course *models.Course, sectionID string) (*models.Section, error) {
	for i := range course.Sections {
		if course.Sections[i].ID == sectionID {
			return &course.Sections[i], nil
		}
	}
	return nil, ErrSectionNotFound
}

// permutation maps ids onto current positions, requiring every existing id exactly once.
func permutation(positions map[string]int, ids []string) ([]int, error) {
	if len(ids) != len(positions) {
		return nil, ErrInvalidOrder
	}
	seen := make(map[string]struct{}, len(ids))
	order := make([]int, 0, len(ids))
	for _, id := range ids {
		index, ok := positions[id]
		if !ok {
			return nil, ErrInvalidOrder
		}
		if _, dup := seen[id]; dup {
			return nil, ErrInvalidOrder
		}
		seen[id] = struct{}{}
		order = append(order, index)
	}
	return order, nil
}

func courseMatches(course models.Course, search string) bool {
	return strings.Contains(strings.ToLower(course.Title), search) ||
		strings.Contains(strings.ToLower(course.Description), search) ||
		strings.Contains(strings.ToLower(course.Instructor), search)
}

func normalizeCourseSort(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case SortTitle, "title.asc":
		return SortTitle
	case SortRating, "rating.desc":
		return SortRating
	case SortPopular, "enrolled", "enrolledstudents":
		return SortPopular
	case SortPrice, "price.asc":
		return SortPrice
	default:
		return SortRecent
	}
}

func sortCourses(courses []models.Course, order string) {
	sort.SliceStable(courses, func(i, j int) bool {
		a, b := courses[i], courses[j]
		switch order {
		case SortTitle:
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		case SortRating:
			return a.Rating > b.Rating
		case SortPopular:
			return a.EnrolledStudents > b.EnrolledStudents
		case SortPrice:
			return a.Price < b.Price
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
}

// validateThumbnail accepts an empty value, an http(s) url, or a data uri holding an image.
func validateThumbnail(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	lower := strings.ToLower(value)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		parsed, err := url.Parse(value)
		if err != nil || parsed.Host == "" {
			return ErrInvalidThumbnail
		}
		return nil
	case strings.HasPrefix(lower, "data:"):
		data, err := decodeDataURI(value)
		if err != nil || len(data) == 0 {
			return ErrInvalidThumbnail
		}
		if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
			return ErrInvalidThumbnail
		}
		return nil
	default:
		return ErrInvalidThumbnail
	}
}

func decodeDataURI(value string) ([]byte, error) {
	comma := strings.IndexByte(value, ',')
	if comma < 0 {
		return nil, ErrInvalidThumbnail
	}
	header := strings.ToLower(value[len("data:"):comma])
	payload := value[comma+1:]
	if strings.HasSuffix(header, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(unescaped), nil
}

func cloneCourses(courses []models.Course) []models.Course {
	cloned := make([]models.Course, 0, len(courses))
	for _, course := range courses {
		cloned = append(cloned, course.Clone())
	}
	return cloned
}

func defaultString(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
