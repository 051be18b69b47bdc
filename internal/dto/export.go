package dto

import "github.com/axelvallin-balder/schedule-builder-sub000/internal/models"

// ExportRequest captures POST /exports payload. GroupID and TeacherID narrow
// the rendered timetable to one group's or one teacher's lessons.
type ExportRequest struct {
	ScheduleID string              `json:"scheduleId" validate:"required"`
	Format     models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	GroupID    *string             `json:"groupId,omitempty"`
	TeacherID  *string             `json:"teacherId,omitempty"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID     string              `json:"id"`
	Status models.ExportStatus `json:"status"`
}

// ExportStatusResponse exposes job state for polling.
type ExportStatusResponse struct {
	ID         string              `json:"id"`
	ScheduleID string              `json:"scheduleId"`
	Status     models.ExportStatus `json:"status"`
	ResultURL  *string             `json:"resultUrl,omitempty"`
	Error      *string             `json:"error,omitempty"`
}
