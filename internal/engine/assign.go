package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

// Scoring weights for teacher selection.
const (
	assignBaseScore        = 100.0
	assignLoadPenaltyScale = 50.0
	assignVersatilityBonus = 10.0
	assignPreferredBonus   = 20.0
	assignPreferredPenalty = 30.0
)

// AssignmentResolver picks the best qualified teacher for a course that
// arrived without one, balancing current load against versatility and
// preferred-time fit.
type AssignmentResolver struct {
	logger *zap.Logger
}

// NewAssignmentResolver constructs a resolver.
func NewAssignmentResolver(logger *zap.Logger) *AssignmentResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentResolver{logger: logger}
}

// Assign resolves a teacher for the course. loads carries each teacher's
// running weekly hours for the current run; the caller owns it and bumps
// it by the course load after a successful assignment. Ties keep the
// earliest candidate in input order. The chosen teacher is rejected with
// a reason when the course load would push them past their max.
func (r *AssignmentResolver) Assign(course models.Course, teachers []models.Teacher, loads map[string]int) models.Assignment {
	assignment := models.Assignment{CourseID: course.ID}

	best := -1
	bestScore := 0.0
	for i, teacher := range teachers {
		if !teacher.QualifiedFor(course.SubjectID) {
			continue
		}
		score := r.score(course, teacher, loads[teacher.ID])
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best == -1 {
		assignment.Reason = "no qualified teacher"
		return assignment
	}

	chosen := teachers[best]
	courseLoad := course.EffectiveLoadHours()
	maxLoad := chosen.EffectiveMaxLoad()
	if loads[chosen.ID]+courseLoad > maxLoad {
		assignment.Reason = fmt.Sprintf("teacher %s at %d of %d weekly hours cannot take %d more", chosen.ID, loads[chosen.ID], maxLoad, courseLoad)
		return assignment
	}

	r.logger.Debug("teacher resolved",
		zap.String("course_id", course.ID),
		zap.String("teacher_id", chosen.ID),
		zap.Float64("score", bestScore),
	)
	assignment.TeacherID = &chosen.ID
	return assignment
}

func (r *AssignmentResolver) score(course models.Course, teacher models.Teacher, currentLoad int) float64 {
	score := assignBaseScore
	score -= float64(currentLoad) / float64(teacher.EffectiveMaxLoad()) * assignLoadPenaltyScale
	if len(teacher.SubjectIDs) > 1 {
		score += assignVersatilityBonus
	}
	if len(course.PreferredTimes) > 0 {
		if preferredTimeFits(course.PreferredTimes, teacher) {
			score += assignPreferredBonus
		} else {
			score -= assignPreferredPenalty
		}
	}
	return score
}

// preferredTimeFits reports whether any preferred start time leaves room
// for a 45-minute lesson inside the teacher's working window.
func preferredTimeFits(preferred []string, teacher models.Teacher) bool {
	workStart, err := parseClock(teacher.WorkStart)
	if err != nil {
		return false
	}
	workEnd, err := parseClock(teacher.WorkEnd)
	if err != nil {
		return false
	}
	for _, raw := range preferred {
		start, err := parseClock(raw)
		if err != nil {
			continue
		}
		if start >= workStart && start+models.MinLessonMinutes <= workEnd {
			return true
		}
	}
	return false
}
