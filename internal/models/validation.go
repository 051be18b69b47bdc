package models

// Rule violation codes emitted by the schedule validator.
const (
	ViolationDurationTooShort      = "DURATION_TOO_SHORT"
	ViolationDayOutOfRange         = "DAY_OUT_OF_RANGE"
	ViolationOutsideTeacherHours   = "OUTSIDE_TEACHER_HOURS"
	ViolationUnknownTeacher        = "UNKNOWN_TEACHER"
	ViolationTeacherOverlap        = "TEACHER_OVERLAP"
	ViolationDependentGroupOverlap = "DEPENDENT_GROUP_OVERLAP"
	ViolationLunchBreakSqueezed    = "LUNCH_BREAK_SQUEEZED"
	ViolationMalformedLesson       = "MALFORMED_LESSON"
)

// RuleViolation describes one broken hard constraint. LessonIDs names
// every lesson involved (two for overlaps, one otherwise).
type RuleViolation struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	LessonIDs []string `json:"lesson_ids,omitempty"`
}

// ValidationResult aggregates all violations found in one pass.
// IsValid is true iff Violations is empty.
type ValidationResult struct {
	IsValid    bool            `json:"is_valid"`
	Violations []RuleViolation `json:"violations"`
}
