package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursekeep-go/internal/dto"
	"github.com/noah-isme/coursekeep-go/internal/models"
	"github.com/noah-isme/coursekeep-go/internal/storage"
)

var analyticsNow = time.Date(2024, time.June, 30, 12, 0, 0, 0, time.UTC)

func analyticsFixture() []models.Course {
	lessons := func(ids ...string) []models.Lesson {
		result := make([]models.Lesson, 0, len(ids))
		for _, id := range ids {
			result = append(result, models.Lesson{ID: id})
		}
		return result
	}
	return []models.Course{
		{ID: "c1", Title: "Go", Category: "programming", Difficulty: models.DifficultyBeginner, Status: models.CourseStatusPublished, EnrolledStudents: 120, Rating: 4.5, CreatedAt: analyticsNow.AddDate(0, 0, -2),
			Sections: []models.Section{{ID: "s1", Lessons: lessons("L1", "L2")}, {ID: "s2", Lessons: lessons("L3")}}},
		{ID: "c2", Title: "Figma", Category: "design", Difficulty: models.DifficultyIntermediate, Status: models.CourseStatusDraft, Rating: 0, CreatedAt: analyticsNow.AddDate(0, 0, -40),
			Sections: []models.Section{{ID: "s3", Lessons: lessons("L4")}}},
		{ID: "c3", Title: "Rust", Category: "programming", Difficulty: models.DifficultyAdvanced, Status: models.CourseStatusArchived, EnrolledStudents: 30, Rating: 4.0, CreatedAt: analyticsNow.AddDate(0, 0, -10)},
	}
}

func TestCalculateCourseAnalyticsEmptyCatalog(t *testing.T) {
	analytics := CalculateCourseAnalytics(nil, nil, analyticsNow)

	require.Equal(t, 0, analytics.TotalCourses)
	require.Equal(t, 0.0, analytics.AverageRating)
	require.NotNil(t, analytics.RecentCourses)
	require.NotNil(t, analytics.TopRatedCourses)
	require.NotNil(t, analytics.MostPopularCourses)
	require.Len(t, analytics.CategoryDistribution, len(models.Categories))
	require.Equal(t, 0, analytics.CategoryDistribution["programming"])
	require.Len(t, analytics.DifficultyDistribution, len(models.Difficulties))
	require.Equal(t, 0.0, analytics.CompletionStats.AverageCompletion)

	view := FormatAnalyticsForDisplay(analytics)
	require.Len(t, view.StatCards, 5)
	require.Empty(t, view.CategoryChart)
	for _, point := range view.StatusChart {
		require.Equal(t, 0.0, point.Percentage)
	}
}

func TestCalculateCourseAnalytics(t *testing.T) {
	progress := map[string]models.CourseProgress{
		"c1": {CompletionPercentage: 100},
		"c2": {CompletionPercentage: 50},
	}
	analytics := CalculateCourseAnalytics(analyticsFixture(), progress, analyticsNow)

	require.Equal(t, 3, analytics.TotalCourses)
	require.Equal(t, 1, analytics.PublishedCourses)
	require.Equal(t, 1, analytics.DraftCourses)
	require.Equal(t, 1, analytics.ArchivedCourses)
	require.Equal(t, 150, analytics.TotalEnrolledStudents)
	require.Equal(t, 2.8, analytics.AverageRating)
	require.Equal(t, 3, analytics.TotalSections)
	require.Equal(t, 4, analytics.TotalLessons)
	require.Equal(t, 2, analytics.CategoryDistribution["programming"])
	require.Equal(t, 1, analytics.DifficultyDistribution[models.DifficultyAdvanced])

	require.Equal(t, []string{"c1", "c3"}, summaryIDs(analytics.RecentCourses))
	require.Equal(t, []string{"c1", "c3"}, summaryIDs(analytics.TopRatedCourses))
	require.Equal(t, []string{"c1", "c3"}, summaryIDs(analytics.MostPopularCourses))

	require.Equal(t, 50.0, analytics.CompletionStats.AverageCompletion)
	require.Equal(t, 1, analytics.CompletionStats.CompletedCourses)
	require.Equal(t, 1, analytics.CompletionStats.InProgressCourses)
	require.Equal(t, 1, analytics.CompletionStats.NotStartedCourses)
}

func TestCalculateCourseAnalyticsCapsTopLists(t *testing.T) {
	courses := make([]models.Course, 0, 8)
	for i := 0; i < 8; i++ {
		courses = append(courses, models.Course{
			ID:               string(rune('a' + i)),
			Rating:           float64(i%5) + 0.5,
			EnrolledStudents: i + 1,
			CreatedAt:        analyticsNow.Add(-time.Duration(i) * time.Hour),
		})
	}

	analytics := CalculateCourseAnalytics(courses, nil, analyticsNow)
	require.Len(t, analytics.RecentCourses, 5)
	require.Equal(t, "a", analytics.RecentCourses[0].ID)
	require.Len(t, analytics.TopRatedCourses, 5)
	require.Len(t, analytics.MostPopularCourses, 5)
	require.Equal(t, "h", analytics.MostPopularCourses[0].ID)
}

func TestFormatAnalyticsForDisplay(t *testing.T) {
	analytics := CalculateCourseAnalytics(analyticsFixture(), nil, analyticsNow)
	view := FormatAnalyticsForDisplay(analytics)

	require.Equal(t, "3", view.StatCards[0].Value)
	require.Equal(t, "2.8", view.StatCards[2].Value)

	require.Len(t, view.CategoryChart, 2)
	require.Equal(t, "Programming", view.CategoryChart[0].Name)
	require.Equal(t, 2, view.CategoryChart[0].Value)
	require.Equal(t, 66.7, view.CategoryChart[0].Percentage)
	require.Equal(t, "Design", view.CategoryChart[1].Name)

	require.Equal(t, "Published", view.StatusChart[0].Name)
	require.Equal(t, 33.3, view.StatusChart[0].Percentage)
	require.Equal(t, 3, view.CompletionChart[2].Value)
}

func TestAnalyticsServiceCachesSummary(t *testing.T) {
	ctx := context.Background()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	defer client.Close()

	catalog, store := setupCatalog(t, storage.NewMemory(), nil)
	_, err = catalog.Replace(ctx, analyticsFixture())
	require.NoError(t, err)
	progress := NewProgressService(store, nil, zerolog.Nop())

	service := NewAnalyticsService(catalog, progress, client, time.Minute, zerolog.Nop())
	clock := &fakeClock{current: analyticsNow}
	if concrete, ok := service.(*analyticsService); ok {
		concrete.now = clock.now
	}

	first, err := service.GetSummary(ctx)
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.Equal(t, 3, first.TotalCourses)
	require.Equal(t, analyticsNow, first.GeneratedAt)

	clock.current = analyticsNow.Add(30 * time.Second)
	second, err := service.GetSummary(ctx)
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, first.TotalLessons, second.TotalLessons)
	require.Equal(t, clock.current, second.GeneratedAt, "cached summaries report when they were served")

	_, err = progress.ToggleLessonCompletion(ctx, "L4", nil)
	require.NoError(t, err)
	third, err := service.GetSummary(ctx)
	require.NoError(t, err)
	require.False(t, third.CacheHit, "progress changes the fingerprint")
	require.Equal(t, 1, third.CompletionStats.CompletedCourses)

	view, err := service.GetDisplay(ctx)
	require.NoError(t, err)
	require.Len(t, view.StatCards, 5)
}

func TestAnalyticsServiceWithoutCache(t *testing.T) {
	ctx := context.Background()
	catalog, store := setupCatalog(t, storage.NewMemory(), nil)
	progress := NewProgressService(store, nil, zerolog.Nop())

	service := NewAnalyticsService(catalog, progress, nil, 0, zerolog.Nop())
	summary, err := service.GetSummary(ctx)
	require.NoError(t, err)
	require.False(t, summary.CacheHit)
	require.Equal(t, 0, summary.TotalCourses)
}

func summaryIDs(summaries []dto.CourseSummary) []string {
	ids := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		ids = append(ids, summary.ID)
	}
	return ids
}
