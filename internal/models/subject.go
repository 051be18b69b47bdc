package models

import "time"

// Subject represents an academic subject. Core subjects win priority when
// the conflict resolver has to drop one of two colliding lessons.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Core      bool      `db:"core" json:"core"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
