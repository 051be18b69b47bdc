package models

import (
	"time"

	"github.com/lib/pq"
)

// MinLessonMinutes is the shortest lesson the engine may emit.
const MinLessonMinutes = 45

// Lesson is one placed teaching unit. The engine emits lessons with
// DayOfWeek 1 (Monday) through 5 (Friday) and DurationMinutes >= 45;
// TeacherID is nil only when teacher resolution failed for the course.
// GroupIDs denormalizes the owning course's groups so exports can render
// per-group timetables without a course join. Version is the optimistic
// edit counter owned by the collaboration layer; this service stores and
// returns it untouched.
type Lesson struct {
	ID              string         `db:"id" json:"id"`
	ScheduleID      string         `db:"schedule_id" json:"schedule_id,omitempty"`
	CourseID        string         `db:"course_id" json:"course_id"`
	SubjectID       string         `db:"subject_id" json:"subject_id"`
	TeacherID       *string        `db:"teacher_id" json:"teacher_id,omitempty"`
	GroupIDs        pq.StringArray `db:"group_ids" json:"group_ids"`
	DayOfWeek       int            `db:"day_of_week" json:"day_of_week"`
	StartTime       string         `db:"start_time" json:"start_time"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	Version         int            `db:"version" json:"version"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}
