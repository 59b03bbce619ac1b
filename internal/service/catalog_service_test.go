package service

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursekeep-go/internal/dto"
	"github.com/noah-isme/coursekeep-go/internal/models"
	"github.com/noah-isme/coursekeep-go/internal/storage"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newTestStore(t *testing.T, substrate storage.Substrate) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(substrate, zerolog.Nop())
	require.NoError(t, err)
	return store
}

type staticBookmarks map[string]bool

func (b staticBookmarks) IsCourseBookmarked(_ context.Context, courseID string) bool {
	return b[courseID]
}

func setupCatalog(t *testing.T, substrate storage.Substrate, bookmarks BookmarkLookup) (CatalogService, *storage.Store) {
	t.Helper()
	store := newTestStore(t, substrate)
	validate := validator.New(validator.WithRequiredStructEnabled())
	catalog := NewCatalogService(store, bookmarks, validate, zerolog.Nop())
	if concrete, ok := catalog.(*catalogService); ok {
		concrete.now = func() time.Time { return time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC) }
	}
	return catalog, store
}

func TestCatalogCreateSanitisesAndPersists(t *testing.T) {
	ctx := context.Background()
	catalog, store := setupCatalog(t, storage.NewMemory(), nil)

	course, err := catalog.Create(ctx, dto.CourseRequest{
		Title:       "Go Basics",
		Description: `<p class="lead">Learn <b>Go</b></p>`,
		Category:    "programming",
		Sections: []dto.SectionRequest{{
			Title:       "Intro",
			Description: "<div>Start here</div>",
			Lessons: []dto.LessonRequest{
				{Title: "Hello", Content: "<p>Hello <i>world</i></p>"},
				{Title: "Types", Content: "plain"},
			},
		}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, course.ID)
	require.Equal(t, "Learn Go", course.Description)
	require.Equal(t, models.CourseStatusDraft, course.Status)
	require.Equal(t, models.DifficultyBeginner, course.Difficulty)
	require.Equal(t, "Start here", course.Sections[0].Description)
	require.Equal(t, "Hello world", course.Sections[0].Lessons[0].Content)
	require.Equal(t, 1, course.Sections[0].Lessons[1].Order)
	require.Equal(t, "text", course.Sections[0].Lessons[0].Type)

	stored, err := store.LoadCourses(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, course.ID, stored[0].ID)
	require.Equal(t, "Learn Go", stored[0].Description)
}

func TestCatalogCreateRejectsInvalidPayload(t *testing.T) {
	ctx := context.Background()
	catalog, _ := setupCatalog(t, storage.NewMemory(), nil)

	_, err := catalog.Create(ctx, dto.CourseRequest{Title: ""})
	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)

	_, err = catalog.Create(ctx, dto.CourseRequest{Title: "Rated", Rating: 7})
	require.ErrorAs(t, err, &validationErrors)

	_, err = catalog.Create(ctx, dto.CourseRequest{Title: "Bad category", Category: "cooking"})
	require.ErrorAs(t, err, &validationErrors)
}

func TestCatalogThumbnailValidation(t *testing.T) {
	ctx := context.Background()
	catalog, _ := setupCatalog(t, storage.NewMemory(), nil)

	image := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)
	_, err := catalog.Create(ctx, dto.CourseRequest{Title: "Image", Thumbnail: image})
	require.NoError(t, err)

	_, err = catalog.Create(ctx, dto.CourseRequest{Title: "Remote", Thumbnail: "https://cdn.example.com/cover.jpg"})
	require.NoError(t, err)

	text := "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("just words"))
	_, err = catalog.Create(ctx, dto.CourseRequest{Title: "Text", Thumbnail: text})
	require.ErrorIs(t, err, ErrInvalidThumbnail)

	_, err = catalog.Create(ctx, dto.CourseRequest{Title: "Relative", Thumbnail: "/img/cover.png"})
	require.ErrorIs(t, err, ErrInvalidThumbnail)
}

func TestCatalogListFiltersSortsAndPaginates(t *testing.T) {
	ctx := context.Background()
	catalog, _ := setupCatalog(t, storage.NewMemory(), staticBookmarks{"c2": true})

	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, err := catalog.Replace(ctx, []models.Course{
		{ID: "c1", Title: "Go Basics", Category: "programming", Difficulty: models.DifficultyBeginner, Status: models.CourseStatusPublished, Rating: 4.1, EnrolledStudents: 10, Price: 20, CreatedAt: base},
		{ID: "c2", Title: "Advanced Go", Category: "programming", Difficulty: models.DifficultyAdvanced, Status: models.CourseStatusPublished, Rating: 4.9, EnrolledStudents: 50, Price: 10, CreatedAt: base.Add(48 * time.Hour)},
		{ID: "c3", Title: "Logo Design", Category: "design", Difficulty: models.DifficultyBeginner, Status: models.CourseStatusDraft, Instructor: "Ana Go", CreatedAt: base.Add(24 * time.Hour)},
	})
	require.NoError(t, err)

	result, err := catalog.List(ctx, dto.CourseListRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(3), result.Pagination.TotalItems)
	require.Equal(t, []string{"c2", "c3", "c1"}, courseIDs(result.Items))
	require.Equal(t, SortRecent, result.Filters.Sort)

	result, err = catalog.List(ctx, dto.CourseListRequest{Category: "programming", Sort: "rating"})
	require.NoError(t, err)
	require.Equal(t, []string{"c2", "c1"}, courseIDs(result.Items))

	result, err = catalog.List(ctx, dto.CourseListRequest{Search: "go", Sort: "title"})
	require.NoError(t, err)
	require.Equal(t, []string{"c2", "c1", "c3"}, courseIDs(result.Items))

	result, err = catalog.List(ctx, dto.CourseListRequest{BookmarkedOnly: true})
	require.NoError(t, err)
	require.Equal(t, []string{"c2"}, courseIDs(result.Items))

	result, err = catalog.List(ctx, dto.CourseListRequest{Sort: "price", Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 2, result.Pagination.TotalPages)
	require.Len(t, result.Items, 1)
}

func TestCatalogSectionAndLessonLifecycle(t *testing.T) {
	ctx := context.Background()
	catalog, store := setupCatalog(t, storage.NewMemory(), nil)

	course, err := catalog.Create(ctx, dto.CourseRequest{ID: "c1", Title: "Course"})
	require.NoError(t, err)
	require.Empty(t, course.Sections)

	for _, title := range []string{"One", "Two", "Three"} {
		course, err = catalog.AddSection(ctx, "c1", dto.SectionRequest{ID: strings.ToLower(title), Title: title})
		require.NoError(t, err)
	}
	require.Len(t, course.Sections, 3)

	course, err = catalog.ReorderSections(ctx, "c1", []string{"three", "one", "two"})
	require.NoError(t, err)
	require.Equal(t, "three", course.Sections[0].ID)
	require.Equal(t, []int{0, 1, 2}, []int{course.Sections[0].Order, course.Sections[1].Order, course.Sections[2].Order})

	_, err = catalog.ReorderSections(ctx, "c1", []string{"three", "one"})
	require.ErrorIs(t, err, ErrInvalidOrder)
	_, err = catalog.ReorderSections(ctx, "c1", []string{"three", "one", "one"})
	require.ErrorIs(t, err, ErrInvalidOrder)

	course, err = catalog.DeleteSection(ctx, "c1", "one")
	require.NoError(t, err)
	require.Equal(t, 1, course.Sections[1].Order)
	require.Equal(t, "two", course.Sections[1].ID)

	course, err = catalog.AddLesson(ctx, "c1", "two", dto.LessonRequest{ID: "L1", Title: "First", Content: "<b>a</b>"})
	require.NoError(t, err)
	course, err = catalog.AddLesson(ctx, "c1", "two", dto.LessonRequest{ID: "L2", Title: "Second", Type: "video"})
	require.NoError(t, err)
	require.Equal(t, "a", course.Sections[1].Lessons[0].Content)

	course, err = catalog.ReorderLessons(ctx, "c1", "two", []string{"L2", "L1"})
	require.NoError(t, err)
	require.Equal(t, "L2", course.Sections[1].Lessons[0].ID)
	require.Equal(t, 1, course.Sections[1].Lessons[1].Order)

	course, err = catalog.UpdateLesson(ctx, "c1", "two", "L1", dto.LessonRequest{Title: "Renamed", Content: "<p>new</p>"})
	require.NoError(t, err)
	require.Equal(t, "Renamed", course.Sections[1].Lessons[1].Title)
	require.Equal(t, "new", course.Sections[1].Lessons[1].Content)
	require.Equal(t, "L1", course.Sections[1].Lessons[1].ID)

	course, err = catalog.DeleteLesson(ctx, "c1", "two", "L2")
	require.NoError(t, err)
	require.Len(t, course.Sections[1].Lessons, 1)
	require.Equal(t, 0, course.Sections[1].Lessons[0].Order)

	_, err = catalog.DeleteLesson(ctx, "c1", "two", "missing")
	require.ErrorIs(t, err, ErrLessonNotFound)
	_, err = catalog.AddLesson(ctx, "c1", "missing", dto.LessonRequest{Title: "x"})
	require.ErrorIs(t, err, ErrSectionNotFound)
	_, err = catalog.AddSection(ctx, "missing", dto.SectionRequest{Title: "x"})
	require.ErrorIs(t, err, ErrCourseNotFound)

	stored, err := store.LoadCourses(ctx)
	require.NoError(t, err)
	require.Len(t, stored[0].Sections, 2)
	require.Equal(t, "Renamed", stored[0].Sections[1].Lessons[0].Title)
}

func TestCatalogUpdateKeepsSectionsWhenOmitted(t *testing.T) {
	ctx := context.Background()
	catalog, _ := setupCatalog(t, storage.NewMemory(), nil)

	_, err := catalog.Create(ctx, dto.CourseRequest{ID: "c1", Title: "Course", Sections: []dto.SectionRequest{{ID: "s1", Title: "S"}}})
	require.NoError(t, err)

	updated, err := catalog.Update(ctx, "c1", dto.CourseRequest{Title: "Renamed", Status: models.CourseStatusPublished, Description: "<h1>Now</h1>"})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Title)
	require.Equal(t, "Now", updated.Description)
	require.Equal(t, "s1", updated.Sections[0].ID)

	_, err = catalog.Update(ctx, "missing", dto.CourseRequest{Title: "x"})
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCatalogDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	catalog, store := setupCatalog(t, storage.NewMemory(), nil)

	_, err := catalog.Create(ctx, dto.CourseRequest{ID: "c1", Title: "One"})
	require.NoError(t, err)
	_, err = catalog.Create(ctx, dto.CourseRequest{ID: "c2", Title: "Two"})
	require.NoError(t, err)

	require.NoError(t, catalog.Delete(ctx, "c1"))
	require.ErrorIs(t, catalog.Delete(ctx, "c1"), ErrCourseNotFound)
	_, err = catalog.Get(ctx, "c2")
	require.NoError(t, err)

	require.NoError(t, catalog.Clear(ctx))
	require.Empty(t, catalog.All(ctx))
	raw, err := store.LoadRaw(ctx, storage.KeyCourses)
	require.NoError(t, err)
	require.Equal(t, "[]", raw)
}

func TestCatalogReturnsStorageErrorButKeepsChange(t *testing.T) {
	ctx := context.Background()
	catalog, _ := setupCatalog(t, storage.WithQuota(storage.NewMemory(), 40), nil)

	_, err := catalog.Create(ctx, dto.CourseRequest{ID: "c1", Title: "A course whose payload does not fit"})
	require.ErrorIs(t, err, storage.ErrQuotaExceeded)

	course, err := catalog.Get(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "c1", course.ID)
}

func TestCatalogLoadsStoredCoursesLazily(t *testing.T) {
	ctx := context.Background()
	substrate := storage.NewMemory()
	require.NoError(t, substrate.Set(ctx, storage.KeyCourses, `[{"id":"c1","title":"Stored"},{"title":"no id"}]`))

	catalog, _ := setupCatalog(t, substrate, nil)
	courses := catalog.All(ctx)
	require.Len(t, courses, 1)
	require.Equal(t, "Stored", courses[0].Title)

	require.NoError(t, substrate.Set(ctx, storage.KeyCourses, `[]`))
	require.Len(t, catalog.All(ctx), 1, "in-memory state is kept until reload")
	require.NoError(t, catalog.Reload(ctx))
	require.Empty(t, catalog.All(ctx))
}

func TestCatalogCreateKeepsMistypedStoredCourses(t *testing.T) {
	ctx := context.Background()
	substrate := storage.NewMemory()
	require.NoError(t, substrate.Set(ctx, storage.KeyCourses, `[{"id":"c1","title":"Legacy","price":"49.99","createdAt":1700000000000}]`))

	catalog, store := setupCatalog(t, substrate, nil)
	created, err := catalog.Create(ctx, dto.CourseRequest{Title: "Fresh", Category: "programming"})
	require.NoError(t, err)

	stored, err := store.LoadCourses(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"c1", created.ID}, courseIDs(stored))
	for _, course := range stored {
		if course.ID == "c1" {
			require.Equal(t, 49.99, course.Price)
			require.Equal(t, time.UnixMilli(1700000000000).UTC(), course.CreatedAt)
		}
	}
}

func courseIDs(courses []models.Course) []string {
	ids := make([]string, 0, len(courses))
	for _, course := range courses {
		ids = append(ids, course.ID)
	}
	return ids
}
