package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/coursekeep-go/internal/dto"
	"github.com/noah-isme/coursekeep-go/internal/models"
)

const (
	recentWindow = 30 * 24 * time.Hour
	topListLimit = 5
)

// CalculateCourseAnalytics aggregates catalog metrics. progress holds per-course completion keyed by
// course id; courses missing from it count as not started. Every field of the result is populated,
// so an empty catalog yields zero counts, zeroed histograms and empty lists.
func CalculateCourseAnalytics(courses []models.Course, progress map[string]models.CourseProgress, now time.Time) dto.CourseAnalytics {
	analytics := dto.CourseAnalytics{
		TotalCourses:           len(courses),
		CategoryDistribution:   make(map[string]int, len(models.Categories)),
		DifficultyDistribution: make(map[string]int, len(models.Difficulties)),
		RecentCourses:          []dto.CourseSummary{},
		TopRatedCourses:        []dto.CourseSummary{},
		MostPopularCourses:     []dto.CourseSummary{},
		GeneratedAt:            now.UTC(),
	}
	for _, category := range models.Categories {
		analytics.CategoryDistribution[category] = 0
	}
	for _, difficulty := range models.Difficulties {
		analytics.DifficultyDistribution[difficulty] = 0
	}

	if len(courses) == 0 {
		return analytics
	}

	ratingSum := 0.0
	completionSum := 0
	var recent, rated, popular []models.Course
	cutoff := now.Add(-recentWindow)

	for _, course := range courses {
		switch course.Status {
		case models.CourseStatusPublished:
			analytics.PublishedCourses++
		case models.CourseStatusDraft:
			analytics.DraftCourses++
		case models.CourseStatusArchived:
			analytics.ArchivedCourses++
		}

		analytics.TotalEnrolledStudents += course.EnrolledStudents
		ratingSum += course.Rating
		analytics.TotalSections += len(course.Sections)
		analytics.TotalLessons += course.LessonCount()

		if course.Category != "" {
			analytics.CategoryDistribution[course.Category]++
		}
		if course.Difficulty != "" {
			analytics.DifficultyDistribution[course.Difficulty]++
		}

		if !course.CreatedAt.IsZero() && course.CreatedAt.After(cutoff) {
			recent = append(recent, course)
		}
		if course.Rating > 0 {
			rated = append(rated, course)
		}
		if course.EnrolledStudents > 0 {
			popular = append(popular, course)
		}

		percentage := progress[course.ID].CompletionPercentage
		completionSum += percentage
		switch {
		case percentage >= 100:
			analytics.CompletionStats.CompletedCourses++
		case percentage > 0:
			analytics.CompletionStats.InProgressCourses++
		default:
			analytics.CompletionStats.NotStartedCourses++
		}
	}

	analytics.AverageRating = roundOneDecimal(ratingSum / float64(len(courses)))
	analytics.CompletionStats.AverageCompletion = roundOneDecimal(float64(completionSum) / float64(len(courses)))

	sort.SliceStable(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
	sort.SliceStable(rated, func(i, j int) bool { return rated[i].Rating > rated[j].Rating })
	sort.SliceStable(popular, func(i, j int) bool { return popular[i].EnrolledStudents > popular[j].EnrolledStudents })

	analytics.RecentCourses = summarize(recent, topListLimit)
	analytics.TopRatedCourses = summarize(rated, topListLimit)
	analytics.MostPopularCourses = summarize(popular, topListLimit)
	return analytics
}

// FormatAnalyticsForDisplay reshapes analytics into chart series and stat cards.
func FormatAnalyticsForDisplay(analytics dto.CourseAnalytics) dto.AnalyticsView {
	total := analytics.TotalCourses
	stats := analytics.CompletionStats

	view := dto.AnalyticsView{
		StatCards: []dto.StatCard{
			{
				Title:       "Total Courses",
				Value:       fmt.Sprintf("%d", total),
				Description: fmt.Sprintf("%d published", analytics.PublishedCourses),
				Icon:        "book",
			},
			{
				Title:       "Total Students",
				Value:       fmt.Sprintf("%d", analytics.TotalEnrolledStudents),
				Description: "across all courses",
				Icon:        "users",
			},
			{
				Title:       "Average Rating",
				Value:       fmt.Sprintf("%.1f", analytics.AverageRating),
				Description: "out of 5",
				Icon:        "star",
			},
			{
				Title:       "Total Lessons",
				Value:       fmt.Sprintf("%d", analytics.TotalLessons),
				Description: fmt.Sprintf("in %d sections", analytics.TotalSections),
				Icon:        "layers",
			},
			{
				Title:       "Average Completion",
				Value:       fmt.Sprintf("%.1f%%", stats.AverageCompletion),
				Description: fmt.Sprintf("%d courses completed", stats.CompletedCourses),
				Icon:        "check-circle",
			},
		},
		StatusChart: []dto.ChartPoint{
			chartPoint("Published", analytics.PublishedCourses, total),
			chartPoint("Draft", analytics.DraftCourses, total),
			chartPoint("Archived", analytics.ArchivedCourses, total),
		},
		CategoryChart:   distributionSeries(analytics.CategoryDistribution, models.Categories, models.CategoryLabels, total),
		DifficultyChart: distributionSeries(analytics.DifficultyDistribution, models.Difficulties, nil, total),
		CompletionChart: []dto.ChartPoint{
			chartPoint("Completed", stats.CompletedCourses, total),
			chartPoint("In Progress", stats.InProgressCourses, total),
			chartPoint("Not Started", stats.NotStartedCourses, total),
		},
		RecentCourses:      nonNilSummaries(analytics.RecentCourses),
		TopRatedCourses:    nonNilSummaries(analytics.TopRatedCourses),
		MostPopularCourses: nonNilSummaries(analytics.MostPopularCourses),
	}
	return view
}

// distributionSeries lists known ids in display order, then any unknown ids alphabetically. Empty buckets are omitted.
func distributionSeries(counts map[string]int, order []string, labels map[string]string, total int) []dto.ChartPoint {
	series := []dto.ChartPoint{}
	known := make(map[string]struct{}, len(order))
	for _, id := range order {
		known[id] = struct{}{}
		if counts[id] > 0 {
			series = append(series, chartPoint(labelFor(id, labels), counts[id], total))
		}
	}

	extra := make([]string, 0)
	for id, count := range counts {
		if _, ok := known[id]; !ok && count > 0 {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		series = append(series, chartPoint(labelFor(id, labels), counts[id], total))
	}
	return series
}

func labelFor(id string, labels map[string]string) string {
	if label, ok := labels[id]; ok {
		return label
	}
	if id == "" {
		return "Unknown"
	}
	return strings.ToUpper(id[:1]) + id[1:]
}

func chartPoint(name string, value, total int) dto.ChartPoint {
	point := dto.ChartPoint{Name: name, Value: value}
	if total > 0 {
		point.Percentage = roundOneDecimal(100 * float64(value) / float64(total))
	}
	return point
}

func summarize(courses []models.Course, limit int) []dto.CourseSummary {
	if len(courses) > limit {
		courses = courses[:limit]
	}
	summaries := make([]dto.CourseSummary, 0, len(courses))
	for _, course := range courses {
		summaries = append(summaries, dto.CourseSummary{
			ID:               course.ID,
			Title:            course.Title,
			Category:         course.Category,
			Difficulty:       course.Difficulty,
			Status:           course.Status,
			Rating:           course.Rating,
			EnrolledStudents: course.EnrolledStudents,
			CreatedAt:        course.CreatedAt,
		})
	}
	return summaries
}

func nonNilSummaries(summaries []dto.CourseSummary) []dto.CourseSummary {
	if summaries == nil {
		return []dto.CourseSummary{}
	}
	return summaries
}

func roundOneDecimal(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return math.Round(value*10) / 10
}
