package dto

import (
	"encoding/json"

	"github.com/lib/pq"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

// GenerateScheduleRequest triggers a generation run for one ISO week.
// Constraints is decoded by the engine, which rejects unknown fields.
type GenerateScheduleRequest struct {
	Year        int             `json:"year" validate:"required,min=2000,max=2100"`
	Week        int             `json:"week" validate:"required,min=1,max=53"`
	Constraints json.RawMessage `json:"constraints,omitempty"`
}

// GenerateScheduleResponse reports a persisted generation run.
type GenerateScheduleResponse struct {
	Schedule    *models.Schedule         `json:"schedule"`
	Status      models.GenerationStatus  `json:"status"`
	Messages    []string                 `json:"messages"`
	Assignments []models.Assignment      `json:"assignments,omitempty"`
	Validation  *models.ValidationResult `json:"validation,omitempty"`
}

// LessonPayload is one lesson of an inline validation snapshot. Fields stay
// unchecked at binding time: a malformed lesson must surface as a rule
// violation in the report, not as a 400.
type LessonPayload struct {
	ID              string   `json:"id"`
	CourseID        string   `json:"courseId"`
	SubjectID       string   `json:"subjectId"`
	TeacherID       *string  `json:"teacherId,omitempty"`
	GroupIDs        []string `json:"groupIds"`
	DayOfWeek       int      `json:"dayOfWeek"`
	StartTime       string   `json:"startTime"`
	DurationMinutes int      `json:"durationMinutes"`
	Version         int      `json:"version"`
}

// ToModel converts the payload to the storage shape.
func (p LessonPayload) ToModel() models.Lesson {
	return models.Lesson{
		ID:              p.ID,
		CourseID:        p.CourseID,
		SubjectID:       p.SubjectID,
		TeacherID:       p.TeacherID,
		GroupIDs:        pq.StringArray(p.GroupIDs),
		DayOfWeek:       p.DayOfWeek,
		StartTime:       p.StartTime,
		DurationMinutes: p.DurationMinutes,
		Version:         p.Version,
	}
}

// ValidateScheduleRequest carries a post-edit snapshot from the collaboration
// layer. Lesson versions pass through untouched.
type ValidateScheduleRequest struct {
	Lessons []LessonPayload `json:"lessons" validate:"required,min=1"`
}

// ScheduleListQuery filters stored schedules.
type ScheduleListQuery struct {
	Year      *int   `form:"year" json:"year,omitempty"`
	Week      *int   `form:"week" json:"week,omitempty"`
	Status    string `form:"status" json:"status,omitempty"`
	Page      int    `form:"page" json:"page"`
	PageSize  int    `form:"pageSize" json:"pageSize"`
	SortBy    string `form:"sortBy" json:"sortBy"`
	SortOrder string `form:"sortOrder" json:"sortOrder"`
}
