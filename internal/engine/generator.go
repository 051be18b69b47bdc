package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

// Call-shape errors. Constraint trouble during a run never surfaces as an
// error; it becomes a message on the result.
var (
	ErrNoCourses  = errors.New("engine: no courses to schedule")
	ErrNoTeachers = errors.New("engine: no teachers available for assignment")
)

// Run owns the mutable state of exactly one generation call: the load map
// the resolver scores against and the occupancy sets the searcher commits
// into. A Run is created inside Generate and never retained or reused;
// sharing one across calls would leak bookings between schedules.
type Run struct {
	ID          string
	Constraints Constraints
	Teachers    map[string]models.Teacher

	bounds     bounds
	occupancy  *occupancy
	loads      map[string]int
	groupLinks map[string][]string
}

// blockedGroups expands the course's groups with every dependency-linked
// group, deduplicated. A slot is infeasible when any of them holds it,
// which keeps dependent groups from ever being scheduled concurrently.
func (run *Run) blockedGroups(groupIDs []string) []string {
	if len(run.groupLinks) == 0 {
		return groupIDs
	}
	seen := make(map[string]bool, len(groupIDs))
	blocked := make([]string, 0, len(groupIDs))
	for _, id := range groupIDs {
		if !seen[id] {
			seen[id] = true
			blocked = append(blocked, id)
		}
		for _, linked := range run.groupLinks[id] {
			if !seen[linked] {
				seen[linked] = true
				blocked = append(blocked, linked)
			}
		}
	}
	return blocked
}

// buildGroupLinks indexes, per group, the groups it must never share a
// slot with, covering both declaration directions.
func buildGroupLinks(groups map[string]models.Group) map[string][]string {
	links := make(map[string][]string, len(groups))
	for id, group := range groups {
		for _, dep := range group.DependentGroupIDs {
			if dep == id {
				continue
			}
			links[id] = append(links[id], dep)
			links[dep] = append(links[dep], id)
		}
	}
	return links
}

// GenerationInput is the immutable entity snapshot one run consumes.
type GenerationInput struct {
	Courses     []models.Course
	Teachers    []models.Teacher
	Groups      []models.Group
	Subjects    []models.Subject
	Classes     []models.Class
	Constraints Constraints
}

// Result reports one finished generation run. Messages carry every local
// failure in human-readable form; they are never raised as errors.
type Result struct {
	Lessons           []models.Lesson
	Status            models.GenerationStatus
	Messages          []string
	ConflictsResolved int
	Assignments       []models.Assignment
	Validation        *models.ValidationResult
}

// GeneratorConfig carries run-independent generator settings.
type GeneratorConfig struct {
	// CoreSubjects lists subject ids or codes treated as core for conflict
	// priority, merged with subjects flagged core in reference data.
	CoreSubjects []string
	// ConfirmValidation runs the rule validator over the final lesson list
	// and attaches its report to the result.
	ConfirmValidation bool
}

// Generator drives one full run: rank courses, bind a teacher per course,
// place lessons greedily, then resolve residual conflicts.
type Generator struct {
	cache          *FeasibilityCache
	resolver       *AssignmentResolver
	searcher       *SlotSearcher
	conflicts      *ConflictResolver
	configuredCore map[string]bool
	confirm        bool
	logger         *zap.Logger
}

// NewGenerator wires the engine components around a shared cache. The
// cache may be nil to disable memoization; the caller owns its lifecycle.
func NewGenerator(cache *FeasibilityCache, cfg GeneratorConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	core := make(map[string]bool, len(cfg.CoreSubjects))
	for _, subject := range cfg.CoreSubjects {
		core[subject] = true
	}
	return &Generator{
		cache:          cache,
		resolver:       NewAssignmentResolver(logger),
		searcher:       NewSlotSearcher(cache, logger),
		conflicts:      NewConflictResolver(logger),
		configuredCore: core,
		confirm:        cfg.ConfirmValidation,
		logger:         logger,
	}
}

// Generate runs the full pipeline over the input snapshot. It returns an
// error only for invalid call shapes; every per-course problem is recorded
// as a message and the run continues with the next course.
func (g *Generator) Generate(input GenerationInput) (Result, error) {
	if len(input.Courses) == 0 {
		return Result{}, ErrNoCourses
	}
	constraints := input.Constraints
	constraints.ApplyDefaults()
	if err := constraints.Validate(); err != nil {
		return Result{}, err
	}
	if teacherResolutionNeeded(input.Courses) && len(input.Teachers) == 0 {
		return Result{}, ErrNoTeachers
	}
	runBounds, err := constraints.parsedBounds()
	if err != nil {
		return Result{}, err
	}

	ref := NewReferenceData(input.Courses, input.Teachers, input.Groups, input.Subjects, input.Classes)
	run := &Run{
		ID:          uuid.NewString(),
		Constraints: constraints,
		Teachers:    ref.Teachers,
		bounds:      runBounds,
		occupancy:   newOccupancy(),
		loads:       make(map[string]int, len(input.Teachers)),
		groupLinks:  buildGroupLinks(ref.Groups),
	}
	for _, teacher := range input.Teachers {
		run.loads[teacher.ID] = teacher.CurrentLoad
	}

	result := Result{Messages: []string{}}
	shortfalls := 0
	var lessons []models.Lesson

	for _, course := range g.rankedCourses(input.Courses) {
		if problem := courseShapeProblem(course); problem != "" {
			result.Messages = append(result.Messages, fmt.Sprintf("course %s: %s", course.ID, problem))
			shortfalls++
			continue
		}

		assignment := g.bindTeacher(run, course, input.Teachers)
		result.Assignments = append(result.Assignments, assignment)
		if !assignment.Assigned() {
			result.Messages = append(result.Messages, fmt.Sprintf("course %s: %s", course.ID, assignment.Reason))
			shortfalls++
			continue
		}
		run.loads[*assignment.TeacherID] += course.EffectiveLoadHours()

		outcome := g.searcher.PlaceCourse(run, course, *assignment.TeacherID)
		lessons = append(lessons, outcome.Lessons...)
		if outcome.Placed < outcome.Needed {
			result.Messages = append(result.Messages, fmt.Sprintf("course %s: %s", course.ID, outcome.Reason))
			shortfalls++
		}
	}

	kept, resolved := g.conflicts.Resolve(lessons, ref.Courses, ref.Groups, g.coreSet(ref))
	result.Lessons = kept
	result.ConflictsResolved = resolved
	if resolved > 0 {
		result.Messages = append(result.Messages, fmt.Sprintf("conflict resolution dropped %d overlapping lessons", resolved))
	}

	switch {
	case len(kept) == 0:
		result.Status = models.GenerationStatusFailed
	case shortfalls > 0:
		result.Status = models.GenerationStatusPartial
	default:
		result.Status = models.GenerationStatusSuccess
	}

	if g.confirm {
		validation := NewRuleValidator(constraints, g.logger).Validate(kept, ref)
		result.Validation = &validation
	}

	g.logger.Info("generation run finished",
		zap.String("run_id", run.ID),
		zap.String("status", string(result.Status)),
		zap.Int("lessons", len(result.Lessons)),
		zap.Int("conflicts_resolved", resolved),
		zap.Int("messages", len(result.Messages)),
	)
	return result, nil
}

// bindTeacher fixes the teacher for a course. A pre-assigned teacher skips
// resolver scoring and load caps but must exist in reference data; an
// unbound course goes through the scoring resolver. The caller charges the
// course load after a successful bind.
func (g *Generator) bindTeacher(run *Run, course models.Course, teachers []models.Teacher) models.Assignment {
	if course.TeacherID != nil && *course.TeacherID != "" {
		assignment := models.Assignment{CourseID: course.ID, PreAssigned: true}
		if _, ok := run.Teachers[*course.TeacherID]; !ok {
			assignment.Reason = fmt.Sprintf("pre-assigned teacher %s not in reference data", *course.TeacherID)
			return assignment
		}
		assignment.TeacherID = course.TeacherID
		return assignment
	}
	return g.resolver.Assign(course, teachers, run.loads)
}

// rankedCourses memoizes the ranked id order for identical course lists.
// Only the order is cached; course data always comes from the caller's
// input, never from the cache.
func (g *Generator) rankedCourses(courses []models.Course) []models.Course {
	key := rankedCoursesKey(courses)
	if value, hit := g.cache.Get(key); hit {
		if order, ok := value.([]string); ok {
			if ranked, ok := reorderCourses(courses, order); ok {
				return ranked
			}
		}
	}
	ranked := RankCourses(courses)
	order := make([]string, len(ranked))
	for i, course := range ranked {
		order[i] = course.ID
	}
	g.cache.Set(key, order, TTLRankedCourses)
	return ranked
}

// reorderCourses rebuilds the ranked list from the caller's course structs
// in the cached id order. It reports false when the order does not cover
// the input one-to-one; the caller then ranks from scratch.
func reorderCourses(courses []models.Course, order []string) ([]models.Course, bool) {
	if len(order) != len(courses) {
		return nil, false
	}
	byID := make(map[string]models.Course, len(courses))
	for _, course := range courses {
		byID[course.ID] = course
	}
	if len(byID) != len(courses) {
		return nil, false
	}
	ranked := make([]models.Course, 0, len(order))
	for _, id := range order {
		course, ok := byID[id]
		if !ok {
			return nil, false
		}
		ranked = append(ranked, course)
	}
	return ranked, true
}

// coreSet merges subjects flagged core in reference data with the
// configured core list, which may name subject ids or codes. The result
// is an explicit id lookup; identifier substrings are never matched.
func (g *Generator) coreSet(ref ReferenceData) map[string]bool {
	core := make(map[string]bool)
	for id, subject := range ref.Subjects {
		if subject.Core || g.configuredCore[id] || g.configuredCore[subject.Code] {
			core[id] = true
		}
	}
	return core
}

// courseShapeProblem reports structural defects that make placement
// meaningless. Shape problems are local failures, not run errors.
func courseShapeProblem(course models.Course) string {
	if course.WeeklyHours <= 0 && course.NumberOfLessons <= 0 {
		return "neither weekly hours nor an explicit lesson count is set"
	}
	if len(course.GroupIDs) == 0 {
		return "no groups attached"
	}
	return ""
}

func teacherResolutionNeeded(courses []models.Course) bool {
	for _, course := range courses {
		if course.TeacherID == nil || *course.TeacherID == "" {
			return true
		}
	}
	return false
}
