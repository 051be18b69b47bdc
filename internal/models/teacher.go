package models

import (
	"time"

	"github.com/lib/pq"
)

// DefaultMaxWeeklyLoad applies when a teacher record tracks no max load.
const DefaultMaxWeeklyLoad = 25

// Teacher represents an instructor available for assignment.
// Working hours are "HH:MM" with WorkStart strictly before WorkEnd.
type Teacher struct {
	ID            string         `db:"id" json:"id"`
	FullName      string         `db:"full_name" json:"full_name"`
	SubjectIDs    pq.StringArray `db:"subject_ids" json:"subject_ids"`
	WorkStart     string         `db:"work_start" json:"work_start"`
	WorkEnd       string         `db:"work_end" json:"work_end"`
	CurrentLoad   int            `db:"current_load" json:"current_load"`
	MaxWeeklyLoad int            `db:"max_weekly_load" json:"max_weekly_load"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// EffectiveMaxLoad returns the configured max weekly load or the default.
func (t Teacher) EffectiveMaxLoad() int {
	if t.MaxWeeklyLoad > 0 {
		return t.MaxWeeklyLoad
	}
	return DefaultMaxWeeklyLoad
}

// QualifiedFor reports whether the teacher may teach the subject.
func (t Teacher) QualifiedFor(subjectID string) bool {
	for _, id := range t.SubjectIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}
