package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

// Default constraint values applied when a field is left unset.
const (
	DefaultLessonDuration       = 45
	DefaultBreakDuration        = 10
	DefaultMaxLessonsPerDay     = 8
	DefaultMaxSameSubjectPerDay = 2
	DefaultLunchStart           = "12:00"
	DefaultLunchEnd             = "13:00"
	DefaultWorkStart            = "08:15"
	DefaultWorkEnd              = "16:00"
)

// TimeWindow is a clock interval, both bounds "HH:MM", start before end.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Constraints are the recognized generation options. Zero fields take the
// documented defaults. BreakDuration is validated and carried for callers
// that render timetables; the hourly placement grid already spaces lessons,
// so it does not narrow slot enumeration.
type Constraints struct {
	LessonDuration       int        `json:"lessonDuration"`
	BreakDuration        int        `json:"breakDuration"`
	MaxLessonsPerDay     int        `json:"maxLessonsPerDay"`
	MaxSameSubjectPerDay int        `json:"maxSameSubjectPerDay"`
	LunchPeriod          TimeWindow `json:"lunchPeriod"`
	WorkingHours         TimeWindow `json:"workingHours"`
}

// DefaultConstraints returns a fully populated constraint set.
func DefaultConstraints() Constraints {
	c := Constraints{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields with their documented defaults.
func (c *Constraints) ApplyDefaults() {
	if c.LessonDuration == 0 {
		c.LessonDuration = DefaultLessonDuration
	}
	if c.BreakDuration == 0 {
		c.BreakDuration = DefaultBreakDuration
	}
	if c.MaxLessonsPerDay == 0 {
		c.MaxLessonsPerDay = DefaultMaxLessonsPerDay
	}
	if c.MaxSameSubjectPerDay == 0 {
		c.MaxSameSubjectPerDay = DefaultMaxSameSubjectPerDay
	}
	if c.LunchPeriod.Start == "" {
		c.LunchPeriod.Start = DefaultLunchStart
	}
	if c.LunchPeriod.End == "" {
		c.LunchPeriod.End = DefaultLunchEnd
	}
	if c.WorkingHours.Start == "" {
		c.WorkingHours.Start = DefaultWorkStart
	}
	if c.WorkingHours.End == "" {
		c.WorkingHours.End = DefaultWorkEnd
	}
}

// Validate checks field ranges and window ordering.
func (c Constraints) Validate() error {
	if c.LessonDuration < models.MinLessonMinutes {
		return fmt.Errorf("lessonDuration must be at least %d minutes", models.MinLessonMinutes)
	}
	if c.BreakDuration < 0 {
		return fmt.Errorf("breakDuration must not be negative")
	}
	if c.MaxLessonsPerDay < 1 {
		return fmt.Errorf("maxLessonsPerDay must be at least 1")
	}
	if c.MaxSameSubjectPerDay < 1 {
		return fmt.Errorf("maxSameSubjectPerDay must be at least 1")
	}
	if _, err := c.parsedBounds(); err != nil {
		return err
	}
	return nil
}

// ParseConstraints decodes a caller-supplied constraints document.
// Unknown fields are rejected rather than silently ignored; absent
// fields take defaults.
func ParseConstraints(raw []byte) (Constraints, error) {
	return ParseConstraintsWith(Constraints{}, raw)
}

// ParseConstraintsWith decodes raw over the provided base so absent fields
// keep the base's values instead of falling back to the stock defaults.
func ParseConstraintsWith(base Constraints, raw []byte) (Constraints, error) {
	c := base
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&c); err != nil {
			return Constraints{}, fmt.Errorf("decode constraints: %w", err)
		}
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return Constraints{}, err
	}
	return c, nil
}

// bounds is the minute-resolution form of the constraint windows.
type bounds struct {
	workStart  int
	workEnd    int
	lunchStart int
	lunchEnd   int
}

func (c Constraints) parsedBounds() (bounds, error) {
	b := bounds{}
	var err error
	if b.workStart, err = parseClock(c.WorkingHours.Start); err != nil {
		return b, fmt.Errorf("workingHours.start: %w", err)
	}
	if b.workEnd, err = parseClock(c.WorkingHours.End); err != nil {
		return b, fmt.Errorf("workingHours.end: %w", err)
	}
	if b.lunchStart, err = parseClock(c.LunchPeriod.Start); err != nil {
		return b, fmt.Errorf("lunchPeriod.start: %w", err)
	}
	if b.lunchEnd, err = parseClock(c.LunchPeriod.End); err != nil {
		return b, fmt.Errorf("lunchPeriod.end: %w", err)
	}
	if b.workStart >= b.workEnd {
		return b, fmt.Errorf("workingHours start %q must be before end %q", c.WorkingHours.Start, c.WorkingHours.End)
	}
	if b.lunchStart >= b.lunchEnd {
		return b, fmt.Errorf("lunchPeriod start %q must be before end %q", c.LunchPeriod.Start, c.LunchPeriod.End)
	}
	return b, nil
}

// parseClock converts "HH:MM" to minutes from midnight.
func parseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	var h, m int
	if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", raw)
	}
	return h*60 + m, nil
}

// formatClock renders minutes from midnight as "HH:MM".
func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// overlaps reports whether half-open ranges [aStart,aEnd) and [bStart,bEnd) intersect.
func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}
