package engine

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

func TestRankCoursesOrdersByHoursThenGroupsThenID(t *testing.T) {
	courses := []models.Course{
		{ID: "c-biology", SubjectID: "bio", WeeklyHours: 2, GroupIDs: pq.StringArray{"g1"}},
		{ID: "c-math", SubjectID: "math", WeeklyHours: 4, GroupIDs: pq.StringArray{"g1", "g2"}},
		{ID: "c-physics", SubjectID: "phys", WeeklyHours: 4, GroupIDs: pq.StringArray{"g1"}},
		{ID: "c-arts", SubjectID: "arts", WeeklyHours: 2, GroupIDs: pq.StringArray{"g1"}},
	}

	ranked := RankCourses(courses)

	ids := make([]string, 0, len(ranked))
	for _, course := range ranked {
		ids = append(ids, course.ID)
	}
	assert.Equal(t, []string{"c-physics", "c-math", "c-arts", "c-biology"}, ids)
}

func TestRankCoursesLeavesInputUntouched(t *testing.T) {
	courses := []models.Course{
		{ID: "b", WeeklyHours: 1},
		{ID: "a", WeeklyHours: 5},
	}

	_ = RankCourses(courses)

	assert.Equal(t, "b", courses[0].ID)
	assert.Equal(t, "a", courses[1].ID)
}

func TestRankCoursesIsDeterministic(t *testing.T) {
	courses := []models.Course{
		{ID: "c3", WeeklyHours: 3, GroupIDs: pq.StringArray{"g1"}},
		{ID: "c1", WeeklyHours: 3, GroupIDs: pq.StringArray{"g1"}},
		{ID: "c2", WeeklyHours: 3, GroupIDs: pq.StringArray{"g1", "g2"}},
	}

	first := RankCourses(courses)
	second := RankCourses(courses)

	require.Equal(t, first, second)
	assert.Equal(t, "c1", first[0].ID)
	assert.Equal(t, "c3", first[1].ID)
	assert.Equal(t, "c2", first[2].ID)
}
