package dto

import "github.com/noah-isme/coursekeep-go/internal/models"

// LessonToggleRequest carries optional metadata merged into a completion record.
type LessonToggleRequest struct {
	Metadata map[string]interface{} `json:"metadata"`
}

// LessonToggleResponse reports the lesson state after a toggle.
type LessonToggleResponse struct {
	LessonID  string `json:"lessonId"`
	Completed bool   `json:"completed"`
}

// BookmarkToggleResponse reports the bookmark state after a toggle.
type BookmarkToggleResponse struct {
	CourseID   string `json:"courseId"`
	Bookmarked bool   `json:"bookmarked"`
}

// CourseProgressResponse is the progress view of one course.
type CourseProgressResponse struct {
	CourseID   string `json:"courseId"`
	Bookmarked bool   `json:"bookmarked"`
	models.CourseProgress
}
