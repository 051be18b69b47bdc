package engine

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

// lunchCutoff is the minute-of-day after which a lesson's end starts
// counting against the class lunch window.
const lunchCutoff = 12*60 + 30

// ReferenceData is the immutable entity snapshot a generation or validation
// run reads from. Courses ride along with the other lookups because lessons
// reference their groups through the owning course.
type ReferenceData struct {
	Courses  map[string]models.Course
	Teachers map[string]models.Teacher
	Groups   map[string]models.Group
	Subjects map[string]models.Subject
	Classes  map[string]models.Class
}

// NewReferenceData indexes the entity slices by id.
func NewReferenceData(courses []models.Course, teachers []models.Teacher, groups []models.Group, subjects []models.Subject, classes []models.Class) ReferenceData {
	ref := ReferenceData{
		Courses:  make(map[string]models.Course, len(courses)),
		Teachers: make(map[string]models.Teacher, len(teachers)),
		Groups:   make(map[string]models.Group, len(groups)),
		Subjects: make(map[string]models.Subject, len(subjects)),
		Classes:  make(map[string]models.Class, len(classes)),
	}
	for _, course := range courses {
		ref.Courses[course.ID] = course
	}
	for _, teacher := range teachers {
		ref.Teachers[teacher.ID] = teacher
	}
	for _, group := range groups {
		ref.Groups[group.ID] = group
	}
	for _, subject := range subjects {
		ref.Subjects[subject.ID] = subject
	}
	for _, class := range classes {
		ref.Classes[class.ID] = class
	}
	return ref
}

// RuleValidator re-checks a lesson list against the hard scheduling rules.
// It is stateless across calls and has no fatal failure mode: malformed
// input surfaces as a violation, never as an error or panic. Every check
// runs independently, so one broken lesson cannot mask another.
type RuleValidator struct {
	constraints Constraints
	logger      *zap.Logger
}

// NewRuleValidator constructs a validator. Zero-valued constraint fields
// fall back to the documented defaults.
func NewRuleValidator(constraints Constraints, logger *zap.Logger) *RuleValidator {
	constraints.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleValidator{constraints: constraints, logger: logger}
}

type timedLesson struct {
	lesson models.Lesson
	start  int
	end    int
}

// Validate runs all rule checks over the lesson list and reports every
// violation found. IsValid is true iff the violation list is empty.
func (v *RuleValidator) Validate(lessons []models.Lesson, ref ReferenceData) models.ValidationResult {
	violations := make([]models.RuleViolation, 0)

	parsed := make([]timedLesson, 0, len(lessons))
	for _, lesson := range lessons {
		if lesson.DurationMinutes < models.MinLessonMinutes {
			violations = append(violations, violation(models.ViolationDurationTooShort,
				fmt.Sprintf("lesson %s runs %d minutes, minimum is %d", lesson.ID, lesson.DurationMinutes, models.MinLessonMinutes),
				lesson.ID))
		}
		if lesson.DayOfWeek < 1 || lesson.DayOfWeek > weekDays {
			violations = append(violations, violation(models.ViolationDayOutOfRange,
				fmt.Sprintf("lesson %s has day %d outside the 1..%d school week", lesson.ID, lesson.DayOfWeek, weekDays),
				lesson.ID))
		}
		start, err := parseClock(lesson.StartTime)
		if err != nil {
			violations = append(violations, violation(models.ViolationMalformedLesson,
				fmt.Sprintf("lesson %s has unparseable start time %q", lesson.ID, lesson.StartTime),
				lesson.ID))
			continue
		}
		parsed = append(parsed, timedLesson{lesson: lesson, start: start, end: start + lesson.DurationMinutes})
	}

	violations = append(violations, v.checkTeacherHours(parsed, ref)...)
	violations = append(violations, v.checkTeacherOverlaps(parsed)...)
	violations = append(violations, v.checkDependentGroups(parsed, ref)...)
	violations = append(violations, v.checkLunchWindows(parsed, ref)...)

	result := models.ValidationResult{IsValid: len(violations) == 0, Violations: violations}
	if !result.IsValid {
		v.logger.Debug("schedule validation found violations", zap.Int("violations", len(violations)))
	}
	return result
}

func (v *RuleValidator) checkTeacherHours(parsed []timedLesson, ref ReferenceData) []models.RuleViolation {
	var violations []models.RuleViolation
	for _, t := range parsed {
		if t.lesson.TeacherID == nil {
			continue
		}
		teacher, ok := ref.Teachers[*t.lesson.TeacherID]
		if !ok {
			violations = append(violations, violation(models.ViolationUnknownTeacher,
				fmt.Sprintf("lesson %s references unknown teacher %s", t.lesson.ID, *t.lesson.TeacherID),
				t.lesson.ID))
			continue
		}
		workStart, errStart := parseClock(teacher.WorkStart)
		workEnd, errEnd := parseClock(teacher.WorkEnd)
		if errStart != nil || errEnd != nil {
			violations = append(violations, violation(models.ViolationOutsideTeacherHours,
				fmt.Sprintf("lesson %s cannot be confirmed inside teacher %s working hours %q-%q", t.lesson.ID, teacher.ID, teacher.WorkStart, teacher.WorkEnd),
				t.lesson.ID))
			continue
		}
		if t.start < workStart || t.end > workEnd {
			violations = append(violations, violation(models.ViolationOutsideTeacherHours,
				fmt.Sprintf("lesson %s (%s, %d min) falls outside teacher %s working hours %s-%s",
					t.lesson.ID, t.lesson.StartTime, t.lesson.DurationMinutes, teacher.ID, teacher.WorkStart, teacher.WorkEnd),
				t.lesson.ID))
		}
	}
	return violations
}

func (v *RuleValidator) checkTeacherOverlaps(parsed []timedLesson) []models.RuleViolation {
	type teacherDay struct {
		teacher string
		day     int
	}
	buckets := make(map[teacherDay][]timedLesson)
	keys := make([]teacherDay, 0)
	for _, t := range parsed {
		if t.lesson.TeacherID == nil {
			continue
		}
		key := teacherDay{teacher: *t.lesson.TeacherID, day: t.lesson.DayOfWeek}
		if _, seen := buckets[key]; !seen {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], t)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].teacher != keys[j].teacher {
			return keys[i].teacher < keys[j].teacher
		}
		return keys[i].day < keys[j].day
	})

	var violations []models.RuleViolation
	for _, key := range keys {
		bucket := buckets[key]
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].start < bucket[j].start })
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				if bucket[j].start >= bucket[i].end {
					break
				}
				violations = append(violations, violation(models.ViolationTeacherOverlap,
					fmt.Sprintf("teacher %s has overlapping lessons %s (%s) and %s (%s) on day %d",
						key.teacher, bucket[i].lesson.ID, bucket[i].lesson.StartTime, bucket[j].lesson.ID, bucket[j].lesson.StartTime, key.day),
					bucket[i].lesson.ID, bucket[j].lesson.ID))
			}
		}
	}
	return violations
}

func (v *RuleValidator) checkDependentGroups(parsed []timedLesson, ref ReferenceData) []models.RuleViolation {
	byDay := make(map[int][]timedLesson)
	for _, t := range parsed {
		byDay[t.lesson.DayOfWeek] = append(byDay[t.lesson.DayOfWeek], t)
	}

	var violations []models.RuleViolation
	for day := 1; day <= weekDays; day++ {
		bucket := byDay[day]
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				if !overlaps(bucket[i].start, bucket[i].end, bucket[j].start, bucket[j].end) {
					continue
				}
				groupA, groupB, dependent := v.dependentPair(bucket[i].lesson, bucket[j].lesson, ref)
				if !dependent {
					continue
				}
				violations = append(violations, violation(models.ViolationDependentGroupOverlap,
					fmt.Sprintf("dependent groups %s and %s have overlapping lessons %s and %s on day %d",
						groupA, groupB, bucket[i].lesson.ID, bucket[j].lesson.ID, day),
					bucket[i].lesson.ID, bucket[j].lesson.ID))
			}
		}
	}
	return violations
}

// dependentPair reports the first group pair across the two lessons where
// one group lists the other as dependent.
func (v *RuleValidator) dependentPair(a, b models.Lesson, ref ReferenceData) (string, string, bool) {
	groupsA := ref.Courses[a.CourseID].GroupIDs
	groupsB := ref.Courses[b.CourseID].GroupIDs
	for _, ga := range groupsA {
		for _, gb := range groupsB {
			if ref.Groups[ga].DependsOn(gb) || ref.Groups[gb].DependsOn(ga) {
				return ga, gb, true
			}
		}
	}
	return "", "", false
}

func (v *RuleValidator) checkLunchWindows(parsed []timedLesson, ref ReferenceData) []models.RuleViolation {
	classIDs := make([]string, 0, len(ref.Classes))
	for id := range ref.Classes {
		classIDs = append(classIDs, id)
	}
	sort.Strings(classIDs)

	var violations []models.RuleViolation
	for _, classID := range classIDs {
		class := ref.Classes[classID]
		byDay := make(map[int][]timedLesson)
		for _, t := range parsed {
			if v.lessonBelongsToClass(t.lesson, class, ref) {
				byDay[t.lesson.DayOfWeek] = append(byDay[t.lesson.DayOfWeek], t)
			}
		}
		lunch := class.EffectiveLunchMinutes()
		for day := 1; day <= weekDays; day++ {
			bucket := byDay[day]
			sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].start < bucket[j].start })
			for i := 0; i+1 < len(bucket); i++ {
				cur, next := bucket[i], bucket[i+1]
				if cur.end <= lunchCutoff {
					continue
				}
				if gap := next.start - cur.end; gap < lunch {
					violations = append(violations, violation(models.ViolationLunchBreakSqueezed,
						fmt.Sprintf("class %s has only %d of %d lunch minutes on day %d between lessons %s and %s",
							class.ID, gap, lunch, day, cur.lesson.ID, next.lesson.ID),
						cur.lesson.ID, next.lesson.ID))
				}
			}
		}
	}
	return violations
}

func (v *RuleValidator) lessonBelongsToClass(lesson models.Lesson, class models.Class, ref ReferenceData) bool {
	course, ok := ref.Courses[lesson.CourseID]
	if !ok {
		return false
	}
	for _, groupID := range course.GroupIDs {
		for _, classGroup := range class.GroupIDs {
			if groupID == classGroup {
				return true
			}
		}
	}
	return false
}

func violation(code, message string, lessonIDs ...string) models.RuleViolation {
	return models.RuleViolation{Code: code, Message: message, LessonIDs: lessonIDs}
}
