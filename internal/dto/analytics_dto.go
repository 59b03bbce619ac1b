package dto

import "time"

// CourseSummary is the compact course shape used in analytics top lists.
type CourseSummary struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Category         string    `json:"category"`
	Difficulty       string    `json:"difficulty"`
	Status           string    `json:"status"`
	Rating           float64   `json:"rating"`
	EnrolledStudents int       `json:"enrolledStudents"`
	CreatedAt        time.Time `json:"createdAt"`
}

// CompletionStats aggregates per-course completion percentages.
type CompletionStats struct {
	AverageCompletion float64 `json:"averageCompletion"`
	CompletedCourses  int     `json:"completedCourses"`
	InProgressCourses int     `json:"inProgressCourses"`
	NotStartedCourses int     `json:"notStartedCourses"`
}

// CourseAnalytics is the catalog-wide metrics block. Every field is populated, even for an empty catalog.
type CourseAnalytics struct {
	TotalCourses           int             `json:"totalCourses"`
	PublishedCourses       int             `json:"publishedCourses"`
	DraftCourses           int             `json:"draftCourses"`
	ArchivedCourses        int             `json:"archivedCourses"`
	TotalEnrolledStudents  int             `json:"totalEnrolledStudents"`
	AverageRating          float64         `json:"averageRating"`
	TotalSections          int             `json:"totalSections"`
	TotalLessons           int             `json:"totalLessons"`
	CategoryDistribution   map[string]int  `json:"categoryDistribution"`
	DifficultyDistribution map[string]int  `json:"difficultyDistribution"`
	RecentCourses          []CourseSummary `json:"recentCourses"`
	TopRatedCourses        []CourseSummary `json:"topRatedCourses"`
	MostPopularCourses     []CourseSummary `json:"mostPopularCourses"`
	CompletionStats        CompletionStats `json:"completionStats"`
	GeneratedAt            time.Time       `json:"generatedAt"`
	CacheHit               bool            `json:"cacheHit"`
}

// ChartPoint is one slice or bar of a chart series.
type ChartPoint struct {
	Name       string  `json:"name"`
	Value      int     `json:"value"`
	Percentage float64 `json:"percentage"`
}

// StatCard describes one headline figure.
type StatCard struct {
	Title       string `json:"title"`
	Value       string `json:"value"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// AnalyticsView is CourseAnalytics reshaped for charts and stat cards.
type AnalyticsView struct {
	StatCards          []StatCard      `json:"statCards"`
	StatusChart        []ChartPoint    `json:"statusChart"`
	CategoryChart      []ChartPoint    `json:"categoryChart"`
	DifficultyChart    []ChartPoint    `json:"difficultyChart"`
	CompletionChart    []ChartPoint    `json:"completionChart"`
	RecentCourses      []CourseSummary `json:"recentCourses"`
	TopRatedCourses    []CourseSummary `json:"topRatedCourses"`
	MostPopularCourses []CourseSummary `json:"mostPopularCourses"`
}
