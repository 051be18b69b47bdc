package models

// Assignment binds a course to a teacher for one generation run.
// PreAssigned marks bindings that arrived on the course record rather
// than being resolved by the engine. Reason is set only when TeacherID
// is nil and explains why resolution failed.
type Assignment struct {
	CourseID    string  `json:"course_id"`
	TeacherID   *string `json:"teacher_id,omitempty"`
	PreAssigned bool    `json:"pre_assigned"`
	Reason      string  `json:"reason,omitempty"`
}

// Assigned reports whether the assignment carries a teacher.
func (a Assignment) Assigned() bool {
	return a.TeacherID != nil && *a.TeacherID != ""
}
