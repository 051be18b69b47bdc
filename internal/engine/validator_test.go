package engine

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

func TestValidateCleanScheduleIsIdempotent(t *testing.T) {
	validator := NewRuleValidator(DefaultConstraints(), nil)
	ref := fixtureReference()
	lessons := []models.Lesson{
		fixtureLesson("l1", "c-math", "math", "t1", 1, "08:15"),
		fixtureLesson("l2", "c-math", "math", "t1", 1, "09:15"),
	}

	first := validator.Validate(lessons, ref)
	second := validator.Validate(lessons, ref)

	assert.True(t, first.IsValid)
	assert.True(t, second.IsValid)
	assert.Empty(t, first.Violations)
	assert.Empty(t, second.Violations)
}

func TestValidateFlagsTeacherDoubleBooking(t *testing.T) {
	validator := NewRuleValidator(DefaultConstraints(), nil)
	ref := fixtureReference()
	lessons := []models.Lesson{
		fixtureLesson("l1", "c-math", "math", "t1", 1, "09:00"),
		fixtureLesson("l2", "c-math", "math", "t1", 1, "09:30"),
	}

	result := validator.Validate(lessons, ref)

	require.False(t, result.IsValid)
	overlap, found := findViolation(result, models.ViolationTeacherOverlap)
	require.True(t, found)
	assert.ElementsMatch(t, []string{"l1", "l2"}, overlap.LessonIDs)
}

func TestValidateFlagsShortDuration(t *testing.T) {
	validator := NewRuleValidator(DefaultConstraints(), nil)
	lesson := fixtureLesson("l1", "c-math", "math", "t1", 1, "09:00")
	lesson.DurationMinutes = 30

	result := validator.Validate([]models.Lesson{lesson}, fixtureReference())

	require.False(t, result.IsValid)
	_, found := findViolation(result, models.ViolationDurationTooShort)
	assert.True(t, found)
}

func TestValidateFlagsDayOutOfRange(t *testing.T) {
	validator := NewRuleValidator(DefaultConstraints(), nil)
	saturday := fixtureLesson("l1", "c-math", "math", "t1", 6, "09:00")
	zeroDay := fixtureLesson("l2", "c-math", "math", "t1", 0, "10:00")

	result := validator.Validate([]models.Lesson{saturday, zeroDay}, fixtureReference())

	require.False(t, result.IsValid)
	count := 0
	for _, v := range result.Violations {
		if v.Code == models.ViolationDayOutOfRange {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestValidateFlagsOutsideTeacherHours(t *testing.T) {
	validator := NewRuleValidator(DefaultConstraints(), nil)
	early := fixtureLesson("l1", "c-math", "math", "t1", 1, "07:30")

	result := validator.Validate([]models.Lesson{early}, fixtureReference())

	require.False(t, result.IsValid)
	outside, found := findViolation(result, models.ViolationOutsideTeacherHours)
	require.True(t, found)
	assert.Equal(t, []string{"l1"}, outside.LessonIDs)
}

func TestValidateFlagsUnknownTeacher(t *testing.T) {
	validator := NewRuleValidator(DefaultConstraints(), nil)
	lesson := fixtureLesson("l1", "c-math", "math", "t-ghost", 1, "09:00")

	result := validator.Validate([]models.Lesson{lesson}, fixtureReference())

	require.False(t, result.IsValid)
	unknown, found := findViolation(result, models.ViolationUnknownTeacher)
	require.True(t, found)
	assert.Contains(t, unknown.Message, "t-ghost")
}

func TestValidateFlagsDependentGroupOverlap(t *testing.T) {
	validator := NewRuleValidator(DefaultConstraints(), nil)
	ref := fixtureReference()
	lessons := []models.Lesson{
		fixtureLesson("l1", "c-math", "math", "t1", 1, "09:00"),
		fixtureLesson("l2", "c-arts", "arts", "t2", 1, "09:30"),
	}

	result := validator.Validate(lessons, ref)

	require.False(t, result.IsValid)
	dependent, found := findViolation(result, models.ViolationDependentGroupOverlap)
	require.True(t, found)
	assert.ElementsMatch(t, []string{"l1", "l2"}, dependent.LessonIDs)
}

func TestValidateFlagsSqueezedLunch(t *testing.T) {
	validator := NewRuleValidator(DefaultConstraints(), nil)
	ref := fixtureReference()
	lessons := []models.Lesson{
		fixtureLesson("l1", "c-math", "math", "t1", 1, "12:00"),
		fixtureLesson("l2", "c-math", "math", "t1", 1, "13:00"),
	}

	result := validator.Validate(lessons, ref)

	require.False(t, result.IsValid)
	squeezed, found := findViolation(result, models.ViolationLunchBreakSqueezed)
	require.True(t, found)
	assert.ElementsMatch(t, []string{"l1", "l2"}, squeezed.LessonIDs)
	assert.Contains(t, squeezed.Message, "cl1")
}

func TestValidateFlagsMalformedStartTime(t *testing.T) {
	validator := NewRuleValidator(DefaultConstraints(), nil)
	lesson := fixtureLesson("l1", "c-math", "math", "t1", 1, "whenever")

	result := validator.Validate([]models.Lesson{lesson}, fixtureReference())

	require.False(t, result.IsValid)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, models.ViolationMalformedLesson, result.Violations[0].Code)
}

func TestValidateReportsIndependentViolationsPerLesson(t *testing.T) {
	validator := NewRuleValidator(DefaultConstraints(), nil)
	lesson := fixtureLesson("l1", "c-math", "math", "t-ghost", 9, "09:00")
	lesson.DurationMinutes = 30

	result := validator.Validate([]models.Lesson{lesson}, fixtureReference())

	require.False(t, result.IsValid)
	assert.Len(t, result.Violations, 3)
}

// --- Fixtures ---

func fixtureReference() ReferenceData {
	teachers := []models.Teacher{
		fixtureTeacher("t1", []string{"math", "physics"}, "08:00", "16:00"),
		fixtureTeacher("t2", []string{"arts"}, "08:00", "16:00"),
	}
	groups := []models.Group{
		{ID: "g1"},
		{ID: "g2", DependentGroupIDs: pq.StringArray{"g1"}},
	}
	courses := []models.Course{
		fixtureCourse("c-math", "math", 3, 2, "g1"),
		fixtureCourse("c-arts", "arts", 2, 2, "g2"),
	}
	subjects := []models.Subject{
		{ID: "math", Code: "MATH", Name: "Mathematics", Core: true},
		{ID: "arts", Code: "ARTS", Name: "Arts"},
	}
	classes := []models.Class{
		{ID: "cl1", Name: "9A", GroupIDs: pq.StringArray{"g1"}, LunchMinutes: 30},
	}
	return NewReferenceData(courses, teachers, groups, subjects, classes)
}

func fixtureLesson(id, courseID, subjectID, teacherID string, day int, start string) models.Lesson {
	lesson := models.Lesson{
		ID:              id,
		ScheduleID:      "sched-test",
		CourseID:        courseID,
		SubjectID:       subjectID,
		DayOfWeek:       day,
		StartTime:       start,
		DurationMinutes: 45,
		Version:         1,
	}
	if teacherID != "" {
		lesson.TeacherID = &teacherID
	}
	return lesson
}

func findViolation(result models.ValidationResult, code string) (models.RuleViolation, bool) {
	for _, violation := range result.Violations {
		if violation.Code == code {
			return violation, true
		}
	}
	return models.RuleViolation{}, false
}
