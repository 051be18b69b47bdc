package models

import (
	"time"

	"github.com/lib/pq"
)

// Course describes a weekly teaching demand for one or more groups.
// TeacherID is optional; when nil the generator resolves a qualified teacher.
type Course struct {
	ID              string         `db:"id" json:"id"`
	SubjectID       string         `db:"subject_id" json:"subject_id"`
	TeacherID       *string        `db:"teacher_id" json:"teacher_id,omitempty"`
	GroupIDs        pq.StringArray `db:"group_ids" json:"group_ids"`
	WeeklyHours     int            `db:"weekly_hours" json:"weekly_hours"`
	NumberOfLessons int            `db:"number_of_lessons" json:"number_of_lessons"`
	LoadHours       int            `db:"load_hours" json:"load_hours"`
	PreferredTimes  pq.StringArray `db:"preferred_times" json:"preferred_times,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// EffectiveLoadHours returns the weekly load an assignment adds to a teacher.
func (c Course) EffectiveLoadHours() int {
	if c.LoadHours > 0 {
		return c.LoadHours
	}
	return DefaultCourseLoadHours
}

// DefaultCourseLoadHours applies when a course does not declare load hours.
const DefaultCourseLoadHours = 3
