package models

import (
	"time"

	"github.com/lib/pq"
)

// Group is a set of students scheduled together. Dependent groups share
// students and must never hold lessons at the same time as this group.
type Group struct {
	ID                string         `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	DependentGroupIDs pq.StringArray `db:"dependent_group_ids" json:"dependent_group_ids,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// DependsOn reports whether other belongs to this group's dependent set.
func (g Group) DependsOn(other string) bool {
	for _, id := range g.DependentGroupIDs {
		if id == other {
			return true
		}
	}
	return false
}
