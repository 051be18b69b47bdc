package engine

import (
	"go.uber.org/zap"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

const coreSubjectBonus = 50

// ConflictResolver rescans a placed lesson list for residual collisions.
// Placement bookkeeping already prevents them on its own path; this pass
// defends the paths that bypass it, such as manually injected or
// pre-assigned lessons. Within a (day, start) bucket, lessons collide
// when they share a teacher or when their groups are identical or
// mutually dependent; only the highest-priority lesson survives.
type ConflictResolver struct {
	logger *zap.Logger
}

// NewConflictResolver constructs a resolver.
func NewConflictResolver(logger *zap.Logger) *ConflictResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictResolver{logger: logger}
}

// Resolve returns the surviving lessons in their original order and the
// number of lessons dropped. Priority favors earlier starts, with a bonus
// for core subjects; ties keep the lesson scanned first.
func (r *ConflictResolver) Resolve(lessons []models.Lesson, courses map[string]models.Course, groups map[string]models.Group, coreSubjects map[string]bool) ([]models.Lesson, int) {
	buckets := make(map[slotKey][]int)
	starts := make([]int, len(lessons))
	for i, lesson := range lessons {
		start, err := parseClock(lesson.StartTime)
		if err != nil {
			starts[i] = -1
			continue
		}
		starts[i] = start
		key := slotKey{Day: lesson.DayOfWeek, Cell: start}
		buckets[key] = append(buckets[key], i)
	}

	dropped := make([]bool, len(lessons))
	resolved := 0
	for _, bucket := range buckets {
		if len(bucket) < 2 {
			continue
		}
		for bi := 0; bi < len(bucket); bi++ {
			i := bucket[bi]
			if dropped[i] {
				continue
			}
			for bj := bi + 1; bj < len(bucket); bj++ {
				j := bucket[bj]
				if dropped[j] {
					continue
				}
				if !r.collides(lessons[i], lessons[j], courses, groups) {
					continue
				}
				loser := j
				if r.priority(lessons[j], starts[j], coreSubjects) > r.priority(lessons[i], starts[i], coreSubjects) {
					loser = i
				}
				dropped[loser] = true
				resolved++
				r.logger.Debug("conflicting lesson dropped",
					zap.String("lesson_id", lessons[loser].ID),
					zap.Int("day", lessons[loser].DayOfWeek),
					zap.String("start", lessons[loser].StartTime),
				)
				if loser == i {
					break
				}
			}
		}
	}

	if resolved == 0 {
		return lessons, 0
	}
	kept := make([]models.Lesson, 0, len(lessons)-resolved)
	for i, lesson := range lessons {
		if !dropped[i] {
			kept = append(kept, lesson)
		}
	}
	return kept, resolved
}

func (r *ConflictResolver) collides(a, b models.Lesson, courses map[string]models.Course, groups map[string]models.Group) bool {
	if a.TeacherID != nil && b.TeacherID != nil && *a.TeacherID == *b.TeacherID {
		return true
	}
	groupsA := courses[a.CourseID].GroupIDs
	groupsB := courses[b.CourseID].GroupIDs
	for _, ga := range groupsA {
		for _, gb := range groupsB {
			if ga == gb {
				return true
			}
			if groups[ga].DependsOn(gb) || groups[gb].DependsOn(ga) {
				return true
			}
		}
	}
	return false
}

// priority scores a lesson for conflict survival: earlier starts score
// higher, core subjects get a flat bonus. The core set is an explicit
// subject-id lookup, never derived from identifier patterns.
func (r *ConflictResolver) priority(lesson models.Lesson, start int, coreSubjects map[string]bool) int {
	if start < 0 {
		return 0
	}
	score := (12 - start/60) * 10
	if coreSubjects[lesson.SubjectID] {
		score += coreSubjectBonus
	}
	return score
}
