package models

import "time"

// Course statuses.
const (
	CourseStatusDraft     = "draft"
	CourseStatusPublished = "published"
	CourseStatusArchived  = "archived"
)

// Difficulty levels.
const (
	DifficultyBeginner     = "Beginner"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
)

// CourseStatuses lists statuses in display order.
var CourseStatuses = []string{CourseStatusDraft, CourseStatusPublished, CourseStatusArchived}

// Difficulties lists difficulty levels in display order.
var Difficulties = []string{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

// Categories lists the catalog categories in display order.
var Categories = []string{
	"programming",
	"design",
	"business",
	"marketing",
	"data-science",
	"language",
	"music",
	"photography",
	"health",
	"other",
}

// CategoryLabels maps category ids to display names.
var CategoryLabels = map[string]string{
	"programming":  "Programming",
	"design":       "Design",
	"business":     "Business",
	"marketing":    "Marketing",
	"data-science": "Data Science",
	"language":     "Language",
	"music":        "Music",
	"photography":  "Photography",
	"health":       "Health & Fitness",
	"other":        "Other",
}

// Course is a catalog entry together with its ordered sections.
type Course struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Thumbnail        string    `json:"thumbnail"`
	Category         string    `json:"category"`
	Difficulty       string    `json:"difficulty"`
	Status           string    `json:"status"`
	Instructor       string    `json:"instructor"`
	Duration         string    `json:"duration"`
	Price            float64   `json:"price"`
	EnrolledStudents int       `json:"enrolledStudents"`
	Rating           float64   `json:"rating"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	Sections         []Section `json:"sections"`
}

// Section groups lessons inside a course. Order is contiguous from zero.
type Section struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Order       int      `json:"order"`
	Lessons     []Lesson `json:"lessons"`
}

// Lesson is a single unit of content. Order is contiguous from zero within its section.
type Lesson struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Duration    string `json:"duration,omitempty"`
	Order       int    `json:"order"`
}

// LessonCount returns the number of lessons across all sections.
func (c Course) LessonCount() int {
	total := 0
	for _, section := range c.Sections {
		total += len(section.Lessons)
	}
	return total
}

// Clone returns a deep copy of the course.
func (c Course) Clone() Course {
	clone := c
	if c.Sections == nil {
		return clone
	}
	clone.Sections = make([]Section, len(c.Sections))
	for i, section := range c.Sections {
		clone.Sections[i] = section.Clone()
	}
	return clone
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	clone := s
	if s.Lessons != nil {
		clone.Lessons = append([]Lesson(nil), s.Lessons...)
	}
	return clone
}

// Renumber rewrites section and lesson order fields to 0..n-1 following slice order.
func (c *Course) Renumber() {
	for i := range c.Sections {
		c.Sections[i].Order = i
		c.Sections[i].Renumber()
	}
}

// Renumber rewrites lesson order fields to 0..n-1 following slice order.
func (s *Section) Renumber() {
	for i := range s.Lessons {
		s.Lessons[i].Order = i
	}
}
