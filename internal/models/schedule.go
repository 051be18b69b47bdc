package models

import (
	"time"

	"github.com/lib/pq"
)

// ScheduleStatus is the lifecycle tag of a stored schedule.
type ScheduleStatus string

const (
	ScheduleStatusDraft    ScheduleStatus = "draft"
	ScheduleStatusActive   ScheduleStatus = "active"
	ScheduleStatusArchived ScheduleStatus = "archived"
)

// GenerationStatus reports how complete a generation run was.
type GenerationStatus string

const (
	GenerationStatusSuccess GenerationStatus = "success"
	GenerationStatusPartial GenerationStatus = "partial"
	GenerationStatusFailed  GenerationStatus = "failed"
)

// Schedule is a weekly timetable: the ordered lessons of one generation
// run plus its week/year identity. Versions are unique per (year, week);
// at most one version is active at a time.
type Schedule struct {
	ID                string           `db:"id" json:"id"`
	Year              int              `db:"year" json:"year"`
	Week              int              `db:"week" json:"week"`
	Version           int              `db:"version" json:"version"`
	Status            ScheduleStatus   `db:"status" json:"status"`
	GenerationStatus  GenerationStatus `db:"generation_status" json:"generation_status"`
	Messages          pq.StringArray   `db:"messages" json:"messages,omitempty"`
	ConflictsResolved int              `db:"conflicts_resolved" json:"conflicts_resolved"`
	Lessons           []Lesson         `db:"-" json:"lessons,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	Year      *int
	Week      *int
	Status    ScheduleStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
