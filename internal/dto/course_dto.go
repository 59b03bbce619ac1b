package dto

import (
	"github.com/noah-isme/coursekeep-go/internal/models"
)

// CourseRequest validates course create and update payloads.
// On update a nil Sections slice keeps the stored sections.
type CourseRequest struct {
	ID               string           `json:"id" validate:"omitempty,max=128"`
	Title            string           `json:"title" validate:"required,max=200"`
	Description      string           `json:"description" validate:"omitempty,max=50000"`
	Thumbnail        string           `json:"thumbnail"`
	Category         string           `json:"category" validate:"omitempty,oneof=programming design business marketing data-science language music photography health other"`
	Difficulty       string           `json:"difficulty" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Status           string           `json:"status" validate:"omitempty,oneof=draft published archived"`
	Instructor       string           `json:"instructor" validate:"omitempty,max=160"`
	Duration         string           `json:"duration" validate:"omitempty,max=64"`
	Price            float64          `json:"price" validate:"gte=0"`
	EnrolledStudents int              `json:"enrolledStudents" validate:"gte=0"`
	Rating           float64          `json:"rating" validate:"gte=0,lte=5"`
	Sections         []SectionRequest `json:"sections" validate:"omitempty,dive"`
}

// SectionRequest validates a section payload.
type SectionRequest struct {
	ID          string          `json:"id" validate:"omitempty,max=128"`
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"omitempty,max=20000"`
	Lessons     []LessonRequest `json:"lessons" validate:"omitempty,dive"`
}

// LessonRequest validates a lesson payload.
type LessonRequest struct {
	ID          string `json:"id" validate:"omitempty,max=128"`
	Title       string `json:"title" validate:"required,max=200"`
	Content     string `json:"content" validate:"omitempty,max=200000"`
	Description string `json:"description" validate:"omitempty,max=20000"`
	Type        string `json:"type" validate:"omitempty,oneof=text video quiz assignment"`
	Duration    string `json:"duration" validate:"omitempty,max=64"`
}

// ReorderRequest lists ids in their new order.
type ReorderRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// CourseListRequest describes catalog search and filter parameters.
type CourseListRequest struct {
	Search         string
	Category       string
	Difficulty     string
	Status         string
	Sort           string
	BookmarkedOnly bool
	Page           int
	PageSize       int
}

// CourseListFilters echoes the applied filters.
type CourseListFilters struct {
	Search         string `json:"search,omitempty"`
	Category       string `json:"category,omitempty"`
	Difficulty     string `json:"difficulty,omitempty"`
	Status         string `json:"status,omitempty"`
	Sort           string `json:"sort"`
	BookmarkedOnly bool   `json:"bookmarkedOnly,omitempty"`
}

// CourseListResult is a page of catalog entries.
type CourseListResult struct {
	Items      []models.Course   `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
	Filters    CourseListFilters `json:"filters"`
}
