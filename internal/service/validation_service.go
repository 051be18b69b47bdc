package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/dto"
	"github.com/axelvallin-balder/schedule-builder-sub000/internal/engine"
	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
	appErrors "github.com/axelvallin-balder/schedule-builder-sub000/pkg/errors"
)

type scheduleFinder interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

// ValidationService checks lesson sets against the timetable rules, either
// for an inline payload or for a stored schedule version. Reports for stored
// schedules are cached; inline payloads are always validated fresh.
type ValidationService struct {
	courses   courseReader
	teachers  teacherReader
	groups    groupReader
	subjects  subjectReader
	classes   classReader
	schedules scheduleFinder
	lessons   lessonReader
	rules     *engine.RuleValidator
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	reportTTL time.Duration
}

// ValidationConfig tunes rule checking behaviour.
type ValidationConfig struct {
	// Defaults are the constraints every validation run is checked against.
	Defaults engine.Constraints
	// ReportTTL bounds how long a stored schedule's report stays cached.
	ReportTTL time.Duration
}

// NewValidationService wires the rule validator and its reference readers.
func NewValidationService(
	courses courseReader,
	teachers teacherReader,
	groups groupReader,
	subjects subjectReader,
	classes classReader,
	schedules scheduleFinder,
	lessons lessonReader,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ValidationConfig,
) *ValidationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReportTTL <= 0 {
		cfg.ReportTTL = time.Minute
	}
	cfg.Defaults.ApplyDefaults()
	return &ValidationService{
		courses:   courses,
		teachers:  teachers,
		groups:    groups,
		subjects:  subjects,
		classes:   classes,
		schedules: schedules,
		lessons:   lessons,
		rules:     engine.NewRuleValidator(cfg.Defaults, logger),
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		reportTTL: cfg.ReportTTL,
	}
}

// ValidateInline checks a caller-supplied lesson set against current
// reference data. Malformed lessons surface as rule violations in the
// report, never as request errors.
func (s *ValidationService) ValidateInline(ctx context.Context, req dto.ValidateScheduleRequest) (*models.ValidationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	lessons := make([]models.Lesson, 0, len(req.Lessons))
	for _, payload := range req.Lessons {
		lessons = append(lessons, payload.ToModel())
	}

	ref, err := s.loadReference(ctx)
	if err != nil {
		return nil, err
	}

	result := s.rules.Validate(lessons, ref)
	if s.metrics != nil {
		s.metrics.RecordValidationReport(result.Violations)
	}
	s.logger.Info("inline validation finished",
		zap.Int("lessons", len(lessons)),
		zap.Int("violations", len(result.Violations)))
	return &result, nil
}

// ValidateStored checks a persisted schedule version and caches the report.
// The boolean reports whether the payload came from cache.
func (s *ValidationService) ValidateStored(ctx context.Context, scheduleID string) (*models.ValidationResult, bool, error) {
	if scheduleID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}

	cacheKey := makeScheduleCacheKey("validation", scheduleID)
	var cached models.ValidationResult
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	if _, err := s.schedules.FindByID(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	lessons, err := s.lessons.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule lessons")
	}

	ref, err := s.loadReference(ctx)
	if err != nil {
		return nil, false, err
	}

	result := s.rules.Validate(lessons, ref)
	if s.metrics != nil {
		s.metrics.RecordValidationReport(result.Violations)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, s.reportTTL); err != nil {
			s.logger.Warn("cache validation report", zap.Error(err))
		}
	}
	s.logger.Info("stored schedule validated",
		zap.String("schedule_id", scheduleID),
		zap.Int("lessons", len(lessons)),
		zap.Int("violations", len(result.Violations)))
	return &result, false, nil
}

func (s *ValidationService) loadReference(ctx context.Context) (engine.ReferenceData, error) {
	courses, err := s.courses.ListAll(ctx)
	if err != nil {
		return engine.ReferenceData{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return engine.ReferenceData{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	groups, err := s.groups.ListAll(ctx)
	if err != nil {
		return engine.ReferenceData{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load groups")
	}
	subjects, err := s.subjects.ListAll(ctx)
	if err != nil {
		return engine.ReferenceData{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	classes, err := s.classes.ListAll(ctx)
	if err != nil {
		return engine.ReferenceData{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	return engine.NewReferenceData(courses, teachers, groups, subjects, classes), nil
}
