package models

import (
	"time"

	"github.com/lib/pq"
)

// DefaultLunchMinutes applies when a class configures no lunch duration.
const DefaultLunchMinutes = 30

// Class represents a school class whose groups attend generated lessons.
// LunchMinutes is the shortest midday gap the class must keep free.
type Class struct {
	ID           string         `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	GroupIDs     pq.StringArray `db:"group_ids" json:"group_ids"`
	LunchMinutes int            `db:"lunch_minutes" json:"lunch_minutes"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// EffectiveLunchMinutes returns the configured lunch duration or the default.
func (c Class) EffectiveLunchMinutes() int {
	if c.LunchMinutes > 0 {
		return c.LunchMinutes
	}
	return DefaultLunchMinutes
}
