package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/dto"
	"github.com/axelvallin-balder/schedule-builder-sub000/internal/engine"
	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
	appErrors "github.com/axelvallin-balder/schedule-builder-sub000/pkg/errors"
)

type courseReader interface {
	ListAll(ctx context.Context) ([]models.Course, error)
}

type teacherReader interface {
	ListAll(ctx context.Context) ([]models.Teacher, error)
}

type groupReader interface {
	ListAll(ctx context.Context) ([]models.Group, error)
}

type subjectReader interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
}

type classReader interface {
	ListAll(ctx context.Context) ([]models.Class, error)
}

type scheduleCreator interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error
	ArchiveActive(ctx context.Context, exec sqlx.ExtContext, year, week int, excludeID string) (int64, error)
}

type lessonWriter interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, scheduleID string, lessons []models.Lesson) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type scheduleEngine interface {
	Generate(input engine.GenerationInput) (engine.Result, error)
}

// GenerationService snapshots reference data, runs the engine over it and
// persists the outcome as a new schedule version.
type GenerationService struct {
	courses   courseReader
	teachers  teacherReader
	groups    groupReader
	subjects  subjectReader
	classes   classReader
	schedules scheduleCreator
	lessons   lessonWriter
	tx        txProvider
	engine    scheduleEngine
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	defaults  engine.Constraints
	timeout   time.Duration
}

// GenerationConfig governs run behaviour.
type GenerationConfig struct {
	// Defaults seed every run; request constraints override field by field.
	Defaults engine.Constraints
	// Timeout bounds one run. In-flight engine output is discarded on expiry.
	Timeout time.Duration
}

// NewGenerationService wires the generation pipeline.
func NewGenerationService(
	courses courseReader,
	teachers teacherReader,
	groups groupReader,
	subjects subjectReader,
	classes classReader,
	schedules scheduleCreator,
	lessons lessonWriter,
	tx txProvider,
	eng scheduleEngine,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg GenerationConfig,
) *GenerationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	defaults := cfg.Defaults
	defaults.ApplyDefaults()
	return &GenerationService{
		courses:   courses,
		teachers:  teachers,
		groups:    groups,
		subjects:  subjects,
		classes:   classes,
		schedules: schedules,
		lessons:   lessons,
		tx:        tx,
		engine:    eng,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		defaults:  defaults,
		timeout:   cfg.Timeout,
	}
}

type runOutcome struct {
	result engine.Result
	err    error
}

// Generate runs the engine over a fresh snapshot and stores the result. A
// failed run is persisted as a draft for inspection and reported with
// ErrUnprocessable; success and partial runs return the stored schedule.
func (s *GenerationService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}
	constraints, err := s.resolveConstraints(req.Constraints)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	input, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	input.Constraints = constraints

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	outcomeCh := make(chan runOutcome, 1)
	started := time.Now()
	go func() {
		result, runErr := s.engine.Generate(input)
		outcomeCh <- runOutcome{result: result, err: runErr}
	}()

	var result engine.Result
	select {
	case <-runCtx.Done():
		s.logger.Warn("generation run abandoned", zap.Duration("timeout", s.timeout))
		return nil, appErrors.Clone(appErrors.ErrTimeout, "schedule generation timed out")
	case outcome := <-outcomeCh:
		if outcome.err != nil {
			switch outcome.err {
			case engine.ErrNoCourses:
				return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no courses available for generation")
			case engine.ErrNoTeachers:
				return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no teachers available for generation")
			default:
				return nil, appErrors.Wrap(outcome.err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, outcome.err.Error())
			}
		}
		result = outcome.result
	}
	elapsed := time.Since(started)

	schedule := &models.Schedule{
		Year:              req.Year,
		Week:              req.Week,
		Status:            statusForRun(result.Status),
		GenerationStatus:  result.Status,
		Messages:          pq.StringArray(result.Messages),
		ConflictsResolved: result.ConflictsResolved,
	}

	if err := s.persist(ctx, schedule, result.Lessons); err != nil {
		return nil, err
	}
	schedule.Lessons = result.Lessons

	if s.metrics != nil {
		s.metrics.RecordGenerationRun(result.Status, len(result.Lessons), result.ConflictsResolved, elapsed)
		if result.Validation != nil {
			s.metrics.RecordValidationReport(result.Validation.Violations)
		}
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, scheduleCachePattern); err != nil {
			s.logger.Warn("invalidate schedule cache", zap.Error(err))
		}
	}

	s.logger.Info("schedule generated",
		zap.String("schedule_id", schedule.ID),
		zap.Int("year", schedule.Year),
		zap.Int("week", schedule.Week),
		zap.Int("version", schedule.Version),
		zap.String("status", string(result.Status)),
		zap.Int("lessons", len(result.Lessons)),
		zap.Duration("took", elapsed),
	)

	response := &dto.GenerateScheduleResponse{
		Schedule:    schedule,
		Status:      result.Status,
		Messages:    result.Messages,
		Assignments: result.Assignments,
		Validation:  result.Validation,
	}
	if result.Status == models.GenerationStatusFailed {
		return response, appErrors.Clone(appErrors.ErrUnprocessable, "schedule generation failed to place any lesson")
	}
	return response, nil
}

// resolveConstraints layers request constraints over configured defaults.
func (s *GenerationService) resolveConstraints(raw []byte) (engine.Constraints, error) {
	return engine.ParseConstraintsWith(s.defaults, raw)
}

// snapshot reads every reference table once; the run works on this copy only.
func (s *GenerationService) snapshot(ctx context.Context) (engine.GenerationInput, error) {
	input := engine.GenerationInput{}

	courses, err := s.courses.ListAll(ctx)
	if err != nil {
		return input, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return input, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	groups, err := s.groups.ListAll(ctx)
	if err != nil {
		return input, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load groups")
	}
	subjects, err := s.subjects.ListAll(ctx)
	if err != nil {
		return input, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	classes, err := s.classes.ListAll(ctx)
	if err != nil {
		return input, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}

	input.Courses = courses
	input.Teachers = teachers
	input.Groups = groups
	input.Subjects = subjects
	input.Classes = classes
	return input, nil
}

// persist writes the schedule row and its lessons in one transaction.
func (s *GenerationService) persist(ctx context.Context, schedule *models.Schedule, lessons []models.Lesson) error {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.schedules.CreateVersioned(ctx, tx, schedule); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule")
		return err
	}
	if schedule.Status == models.ScheduleStatusActive {
		// At most one active version per week: promoting this run demotes
		// the previous active one atomically.
		if _, err = s.schedules.ArchiveActive(ctx, tx, schedule.Year, schedule.Week, schedule.ID); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive previous active schedule")
			return err
		}
	}
	if err = s.lessons.InsertBatch(ctx, tx, schedule.ID, lessons); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist lessons")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return err
	}
	return nil
}

// statusForRun maps a run outcome to the stored lifecycle status. Only a
// fully successful run goes live immediately; partial and failed runs stay
// draft for review.
func statusForRun(status models.GenerationStatus) models.ScheduleStatus {
	if status == models.GenerationStatusSuccess {
		return models.ScheduleStatusActive
	}
	return models.ScheduleStatusDraft
}
