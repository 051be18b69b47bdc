package engine

import (
	"sort"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

// RankCourses orders courses most-constrained first so the greedy
// placement loop handles the hardest demands while the grid is empty.
// Ordering: weekly hours descending, then fewer groups first, then
// course id ascending. The input is not modified; identical input
// always yields identical output.
func RankCourses(courses []models.Course) []models.Course {
	ranked := make([]models.Course, len(courses))
	copy(ranked, courses)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].WeeklyHours != ranked[j].WeeklyHours {
			return ranked[i].WeeklyHours > ranked[j].WeeklyHours
		}
		if len(ranked[i].GroupIDs) != len(ranked[j].GroupIDs) {
			return len(ranked[i].GroupIDs) < len(ranked[j].GroupIDs)
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}
