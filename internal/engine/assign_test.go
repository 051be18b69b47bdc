package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

func TestAssignPrefersLessLoadedTeacher(t *testing.T) {
	resolver := NewAssignmentResolver(nil)
	busy := fixtureTeacher("t-busy", []string{"math"}, "08:00", "16:00")
	busy.MaxWeeklyLoad = 100
	idle := fixtureTeacher("t-idle", []string{"math"}, "08:00", "16:00")
	idle.MaxWeeklyLoad = 100
	loads := map[string]int{"t-busy": 92, "t-idle": 10}

	assignment := resolver.Assign(fixtureCourse("c1", "math", 3, 0, "g1"), []models.Teacher{busy, idle}, loads)

	require.True(t, assignment.Assigned())
	assert.Equal(t, "t-idle", *assignment.TeacherID)
}

func TestAssignSkipsUnqualifiedTeachers(t *testing.T) {
	resolver := NewAssignmentResolver(nil)
	teachers := []models.Teacher{
		fixtureTeacher("t-history", []string{"history"}, "08:00", "16:00"),
		fixtureTeacher("t-math", []string{"math"}, "08:00", "16:00"),
	}

	assignment := resolver.Assign(fixtureCourse("c1", "math", 3, 0, "g1"), teachers, map[string]int{})

	require.True(t, assignment.Assigned())
	assert.Equal(t, "t-math", *assignment.TeacherID)
}

func TestAssignReportsNoQualifiedTeacher(t *testing.T) {
	resolver := NewAssignmentResolver(nil)
	teachers := []models.Teacher{
		fixtureTeacher("t-history", []string{"history"}, "08:00", "16:00"),
	}

	assignment := resolver.Assign(fixtureCourse("c1", "math", 3, 0, "g1"), teachers, map[string]int{})

	assert.False(t, assignment.Assigned())
	assert.Equal(t, "no qualified teacher", assignment.Reason)
}

func TestAssignFavoursVersatileTeacher(t *testing.T) {
	resolver := NewAssignmentResolver(nil)
	narrow := fixtureTeacher("t-narrow", []string{"math"}, "08:00", "16:00")
	versatile := fixtureTeacher("t-versatile", []string{"math", "physics"}, "08:00", "16:00")

	assignment := resolver.Assign(fixtureCourse("c1", "math", 3, 0, "g1"), []models.Teacher{narrow, versatile}, map[string]int{})

	require.True(t, assignment.Assigned())
	assert.Equal(t, "t-versatile", *assignment.TeacherID)
}

func TestAssignWeighsPreferredTimeFit(t *testing.T) {
	resolver := NewAssignmentResolver(nil)
	morning := fixtureTeacher("t-morning", []string{"math"}, "08:00", "12:00")
	afternoon := fixtureTeacher("t-afternoon", []string{"math"}, "13:00", "16:00")
	course := fixtureCourse("c1", "math", 3, 0, "g1")
	course.PreferredTimes = []string{"09:00"}

	assignment := resolver.Assign(course, []models.Teacher{afternoon, morning}, map[string]int{})

	require.True(t, assignment.Assigned())
	assert.Equal(t, "t-morning", *assignment.TeacherID)
}

func TestAssignTieKeepsInputOrder(t *testing.T) {
	resolver := NewAssignmentResolver(nil)
	first := fixtureTeacher("t-first", []string{"math"}, "08:00", "16:00")
	second := fixtureTeacher("t-second", []string{"math"}, "08:00", "16:00")

	assignment := resolver.Assign(fixtureCourse("c1", "math", 3, 0, "g1"), []models.Teacher{first, second}, map[string]int{})

	require.True(t, assignment.Assigned())
	assert.Equal(t, "t-first", *assignment.TeacherID)
}

func TestAssignRejectsOverloadedTeacher(t *testing.T) {
	resolver := NewAssignmentResolver(nil)
	teacher := fixtureTeacher("t-full", []string{"math"}, "08:00", "16:00")
	teacher.MaxWeeklyLoad = 25
	course := fixtureCourse("c1", "math", 3, 0, "g1")
	loads := map[string]int{"t-full": 24}

	assignment := resolver.Assign(course, []models.Teacher{teacher}, loads)

	assert.False(t, assignment.Assigned())
	assert.Contains(t, assignment.Reason, "cannot take")
	assert.Contains(t, assignment.Reason, "t-full")
}
