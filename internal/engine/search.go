package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

// weekDays bounds enumeration to Monday through Friday.
const weekDays = 5

// cellMinutes is the width of one grid cell.
const cellMinutes = 60

// subSlotStep positions lessons shorter than a cell on quarter hours.
const subSlotStep = 15

// PlacementOutcome reports how far placement got for one course. Reason
// is set only when Placed < Needed.
type PlacementOutcome struct {
	Lessons []models.Lesson
	Placed  int
	Needed  int
	Reason  string
}

// SlotSearcher places lessons onto the weekly grid. Slots are hour cells
// between the configured working hours; a cell is a candidate only when
// the assigned teacher's working window covers it entirely. Lessons
// shorter than a cell sit on the earliest quarter-hour offset that clears
// the lunch window; longer lessons span consecutive cells.
type SlotSearcher struct {
	cache  *FeasibilityCache
	logger *zap.Logger
}

// NewSlotSearcher constructs a searcher around a shared feasibility cache.
func NewSlotSearcher(cache *FeasibilityCache, logger *zap.Logger) *SlotSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotSearcher{cache: cache, logger: logger}
}

// lessonsNeeded prefers the explicit lesson count and falls back to
// covering the weekly hours with lessons of the configured duration.
func lessonsNeeded(course models.Course, lessonDuration int) int {
	if course.NumberOfLessons > 0 {
		return course.NumberOfLessons
	}
	return (course.WeeklyHours*60 + lessonDuration - 1) / lessonDuration
}

// PlaceCourse greedily places the course's lessons earliest-first,
// day-then-time, committing occupancy after every placement. A shortfall
// is reported in the outcome, never as an error.
func (s *SlotSearcher) PlaceCourse(run *Run, course models.Course, teacherID string) PlacementOutcome {
	duration := run.Constraints.LessonDuration
	outcome := PlacementOutcome{Needed: lessonsNeeded(course, duration)}

	teacher, ok := run.Teachers[teacherID]
	if !ok {
		outcome.Reason = fmt.Sprintf("placed 0 of %d lessons, teacher %s not in reference data", outcome.Needed, teacherID)
		return outcome
	}
	span := (duration + cellMinutes - 1) / cellMinutes
	cells := s.candidateCells(run, teacher, span)
	if len(cells) == 0 {
		outcome.Reason = fmt.Sprintf("placed 0 of %d lessons, no grid slot fits teacher %s working hours %s-%s", outcome.Needed, teacherID, teacher.WorkStart, teacher.WorkEnd)
		return outcome
	}

	for len(outcome.Lessons) < outcome.Needed {
		lesson, placed := s.placeOne(run, course, teacherID, cells, span)
		if !placed {
			break
		}
		outcome.Lessons = append(outcome.Lessons, lesson)
	}
	outcome.Placed = len(outcome.Lessons)
	if outcome.Placed < outcome.Needed {
		outcome.Reason = fmt.Sprintf("placed %d of %d lessons", outcome.Placed, outcome.Needed)
	}
	return outcome
}

// candidateCells returns the cell starts of one day, restricted to cells
// the teacher's working window fully covers. The grid is identical for
// all five days.
func (s *SlotSearcher) candidateCells(run *Run, teacher models.Teacher, span int) []int {
	teacherStart, err := parseClock(teacher.WorkStart)
	if err != nil {
		return nil
	}
	teacherEnd, err := parseClock(teacher.WorkEnd)
	if err != nil {
		return nil
	}
	width := span * cellMinutes
	var cells []int
	for cell := run.bounds.workStart; cell+width <= run.bounds.workEnd; cell += cellMinutes {
		if cell >= teacherStart && cell+width <= teacherEnd {
			cells = append(cells, cell)
		}
	}
	return cells
}

func (s *SlotSearcher) placeOne(run *Run, course models.Course, teacherID string, cells []int, span int) (models.Lesson, bool) {
	for day := 1; day <= weekDays; day++ {
		for _, cell := range cells {
			start, ok := s.feasible(run, course, teacherID, day, cell, span)
			if !ok {
				continue
			}
			keys := cellKeys(day, cell, span)
			run.occupancy.commit(teacherID, course.GroupIDs, course.SubjectID, keys)

			tid := teacherID
			lesson := models.Lesson{
				ID:              uuid.NewString(),
				CourseID:        course.ID,
				SubjectID:       course.SubjectID,
				TeacherID:       &tid,
				GroupIDs:        append(pq.StringArray(nil), course.GroupIDs...),
				DayOfWeek:       day,
				StartTime:       formatClock(start),
				DurationMinutes: run.Constraints.LessonDuration,
				Version:         1,
			}
			s.logger.Debug("lesson placed",
				zap.String("course_id", course.ID),
				zap.Int("day", day),
				zap.String("start", lesson.StartTime),
			)
			return lesson, true
		}
	}
	return models.Lesson{}, false
}

// feasible runs the hard-constraint checks in their fixed order, short
// circuiting on the first failure. Occupancy-derived failures are cached
// negatively for the rest of the run (occupancy only grows, so they stay
// true); a pass is cached against the current occupancy revision and the
// lunch answer is cached statically.
func (s *SlotSearcher) feasible(run *Run, course models.Course, teacherID string, day, cell, span int) (int, bool) {
	key := slotKey{Day: day, Cell: cell}
	negKey := conflictKey(run.ID, course.ID, key)
	if _, hit := s.cache.Get(negKey); hit {
		return 0, false
	}
	posKey := feasibleKey(run.ID, run.occupancy.revision, course.ID, key)
	if value, hit := s.cache.Get(posKey); hit {
		if start, isInt := value.(int); isInt {
			return start, true
		}
	}

	keys := cellKeys(day, cell, span)
	if !run.occupancy.teacherFree(teacherID, keys) {
		s.cache.Set(negKey, false, TTLConflict)
		return 0, false
	}
	if !run.occupancy.groupsFree(run.blockedGroups(course.GroupIDs), keys) {
		s.cache.Set(negKey, false, TTLConflict)
		return 0, false
	}
	start, clear := s.lunchClearedStart(run, cell, span)
	if !clear {
		return 0, false
	}
	if run.occupancy.lessonsOnDay(teacherID, day) >= run.Constraints.MaxLessonsPerDay {
		s.cache.Set(negKey, false, TTLConflict)
		return 0, false
	}
	if run.occupancy.subjectOnDay(teacherID, day, course.SubjectID) >= run.Constraints.MaxSameSubjectPerDay {
		s.cache.Set(negKey, false, TTLConflict)
		return 0, false
	}

	s.cache.Set(posKey, start, TTLConflict)
	return start, true
}

// lunchClearedStart finds the earliest start inside the cell whose lesson
// range stays clear of the lunch window, or reports the cell blocked.
func (s *SlotSearcher) lunchClearedStart(run *Run, cell, span int) (int, bool) {
	duration := run.Constraints.LessonDuration
	cacheKey := lunchKey(cell, duration, run.bounds)
	if value, hit := s.cache.Get(cacheKey); hit {
		if start, isInt := value.(int); isInt {
			return start, start >= 0
		}
	}

	start := -1
	if duration >= cellMinutes {
		if !overlaps(cell, cell+duration, run.bounds.lunchStart, run.bounds.lunchEnd) {
			start = cell
		}
	} else {
		for offset := 0; offset+duration <= cellMinutes; offset += subSlotStep {
			if !overlaps(cell+offset, cell+offset+duration, run.bounds.lunchStart, run.bounds.lunchEnd) {
				start = cell + offset
				break
			}
		}
	}
	s.cache.Set(cacheKey, start, TTLStatic)
	return start, start >= 0
}

func cellKeys(day, cell, span int) []slotKey {
	keys := make([]slotKey, span)
	for i := 0; i < span; i++ {
		keys[i] = slotKey{Day: day, Cell: cell + i*cellMinutes}
	}
	return keys
}
