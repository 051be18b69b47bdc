package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

func TestPlaceCourseFillsEarliestSlots(t *testing.T) {
	searcher := NewSlotSearcher(nil, nil)
	teacher := fixtureTeacher("t1", []string{"math"}, "08:15", "16:00")
	run := fixtureRun(t, DefaultConstraints(), teacher)
	course := fixtureCourse("c1", "math", 3, 2, "g1")

	outcome := searcher.PlaceCourse(run, course, "t1")

	require.Equal(t, 2, outcome.Placed)
	require.Len(t, outcome.Lessons, 2)
	assert.Equal(t, 1, outcome.Lessons[0].DayOfWeek)
	assert.Equal(t, "08:15", outcome.Lessons[0].StartTime)
	assert.Equal(t, 1, outcome.Lessons[1].DayOfWeek)
	assert.Equal(t, "09:15", outcome.Lessons[1].StartTime)
	assert.Empty(t, outcome.Reason)
}

func TestPlaceCourseRollsToNextDayAtSubjectCap(t *testing.T) {
	searcher := NewSlotSearcher(nil, nil)
	teacher := fixtureTeacher("t1", []string{"math"}, "08:15", "16:00")
	run := fixtureRun(t, DefaultConstraints(), teacher)
	course := fixtureCourse("c1", "math", 3, 3, "g1")

	outcome := searcher.PlaceCourse(run, course, "t1")

	require.Equal(t, 3, outcome.Placed)
	days := []int{outcome.Lessons[0].DayOfWeek, outcome.Lessons[1].DayOfWeek, outcome.Lessons[2].DayOfWeek}
	assert.Equal(t, []int{1, 1, 2}, days)
	assert.Equal(t, "08:15", outcome.Lessons[2].StartTime)
}

func TestPlaceCourseSkipsLunchWindow(t *testing.T) {
	searcher := NewSlotSearcher(nil, nil)
	teacher := fixtureTeacher("t1", []string{"math"}, "11:15", "14:00")
	run := fixtureRun(t, DefaultConstraints(), teacher)
	course := fixtureCourse("c1", "math", 2, 2, "g1")

	outcome := searcher.PlaceCourse(run, course, "t1")

	require.Equal(t, 2, outcome.Placed)
	assert.Equal(t, 1, outcome.Lessons[0].DayOfWeek)
	assert.Equal(t, "11:15", outcome.Lessons[0].StartTime)
	assert.Equal(t, 2, outcome.Lessons[1].DayOfWeek)
	assert.Equal(t, "11:15", outcome.Lessons[1].StartTime)
}

func TestPlaceCourseHonoursGroupOccupancy(t *testing.T) {
	searcher := NewSlotSearcher(nil, nil)
	alice := fixtureTeacher("t-alice", []string{"math"}, "08:15", "16:00")
	bob := fixtureTeacher("t-bob", []string{"physics"}, "08:15", "16:00")
	run := fixtureRun(t, DefaultConstraints(), alice, bob)

	first := searcher.PlaceCourse(run, fixtureCourse("c-math", "math", 1, 1, "g1"), "t-alice")
	second := searcher.PlaceCourse(run, fixtureCourse("c-physics", "physics", 1, 1, "g1"), "t-bob")

	require.Equal(t, 1, first.Placed)
	require.Equal(t, 1, second.Placed)
	assert.Equal(t, "08:15", first.Lessons[0].StartTime)
	assert.Equal(t, 1, second.Lessons[0].DayOfWeek)
	assert.Equal(t, "09:15", second.Lessons[0].StartTime)
}

func TestPlaceCourseBlocksDependentGroups(t *testing.T) {
	searcher := NewSlotSearcher(nil, nil)
	alice := fixtureTeacher("t-alice", []string{"math"}, "08:15", "16:00")
	bob := fixtureTeacher("t-bob", []string{"physics"}, "08:15", "16:00")
	run := fixtureRun(t, DefaultConstraints(), alice, bob)
	run.groupLinks = map[string][]string{"g1": {"g2"}, "g2": {"g1"}}

	first := searcher.PlaceCourse(run, fixtureCourse("c-math", "math", 1, 1, "g1"), "t-alice")
	second := searcher.PlaceCourse(run, fixtureCourse("c-physics", "physics", 1, 1, "g2"), "t-bob")

	require.Equal(t, 1, first.Placed)
	require.Equal(t, 1, second.Placed)
	assert.Equal(t, "08:15", first.Lessons[0].StartTime)
	assert.Equal(t, "09:15", second.Lessons[0].StartTime)
}

func TestPlaceCourseReportsShortfallForNarrowWindow(t *testing.T) {
	searcher := NewSlotSearcher(nil, nil)
	teacher := fixtureTeacher("t1", []string{"math"}, "08:15", "09:00")
	run := fixtureRun(t, DefaultConstraints(), teacher)
	course := fixtureCourse("c1", "math", 3, 5, "g1")

	outcome := searcher.PlaceCourse(run, course, "t1")

	assert.Equal(t, 0, outcome.Placed)
	assert.Equal(t, 5, outcome.Needed)
	assert.Contains(t, outcome.Reason, "placed 0 of 5")
	assert.Contains(t, outcome.Reason, "t1")
}

func TestPlaceCourseUnknownTeacher(t *testing.T) {
	searcher := NewSlotSearcher(nil, nil)
	run := fixtureRun(t, DefaultConstraints())

	outcome := searcher.PlaceCourse(run, fixtureCourse("c1", "math", 3, 2, "g1"), "t-ghost")

	assert.Equal(t, 0, outcome.Placed)
	assert.Contains(t, outcome.Reason, "not in reference data")
}

func TestPlaceCourseSpansCellsForLongLessons(t *testing.T) {
	searcher := NewSlotSearcher(nil, nil)
	teacher := fixtureTeacher("t1", []string{"math"}, "08:15", "16:00")
	constraints := DefaultConstraints()
	constraints.LessonDuration = 90
	run := fixtureRun(t, constraints, teacher)
	course := fixtureCourse("c1", "math", 3, 3, "g1")

	outcome := searcher.PlaceCourse(run, course, "t1")

	require.Equal(t, 3, outcome.Placed)
	assert.Equal(t, 1, outcome.Lessons[0].DayOfWeek)
	assert.Equal(t, "08:15", outcome.Lessons[0].StartTime)
	assert.Equal(t, 1, outcome.Lessons[1].DayOfWeek)
	assert.Equal(t, "10:15", outcome.Lessons[1].StartTime)
	assert.Equal(t, 2, outcome.Lessons[2].DayOfWeek)
	assert.Equal(t, "08:15", outcome.Lessons[2].StartTime)
	for _, lesson := range outcome.Lessons {
		assert.Equal(t, 90, lesson.DurationMinutes)
	}
}

func TestPlaceCourseSemanticsUnchangedByCache(t *testing.T) {
	teacher := fixtureTeacher("t1", []string{"math"}, "08:15", "16:00")
	course := fixtureCourse("c1", "math", 3, 4, "g1")

	plain := NewSlotSearcher(nil, nil).PlaceCourse(fixtureRun(t, DefaultConstraints(), teacher), course, "t1")

	cache := NewFeasibilityCache(time.Hour)
	defer cache.Stop()
	cached := NewSlotSearcher(cache, nil).PlaceCourse(fixtureRun(t, DefaultConstraints(), teacher), course, "t1")

	require.Equal(t, plain.Placed, cached.Placed)
	for i := range plain.Lessons {
		assert.Equal(t, plain.Lessons[i].DayOfWeek, cached.Lessons[i].DayOfWeek)
		assert.Equal(t, plain.Lessons[i].StartTime, cached.Lessons[i].StartTime)
	}
	assert.Greater(t, cache.Len(), 0)
}

func TestLessonsNeededFallsBackToWeeklyHours(t *testing.T) {
	explicit := fixtureCourse("c1", "math", 3, 2, "g1")
	assert.Equal(t, 2, lessonsNeeded(explicit, 45))

	implied := fixtureCourse("c2", "math", 3, 0, "g1")
	assert.Equal(t, 4, lessonsNeeded(implied, 45))

	hourly := fixtureCourse("c3", "math", 2, 0, "g1")
	assert.Equal(t, 2, lessonsNeeded(hourly, 60))
}

// --- Fixtures ---

func fixtureRun(t *testing.T, constraints Constraints, teachers ...models.Teacher) *Run {
	t.Helper()
	constraints.ApplyDefaults()
	require.NoError(t, constraints.Validate())
	parsed, err := constraints.parsedBounds()
	require.NoError(t, err)

	run := &Run{
		ID:          "run-test",
		Constraints: constraints,
		Teachers:    make(map[string]models.Teacher, len(teachers)),
		bounds:      parsed,
		occupancy:   newOccupancy(),
		loads:       make(map[string]int),
	}
	for _, teacher := range teachers {
		run.Teachers[teacher.ID] = teacher
	}
	return run
}
