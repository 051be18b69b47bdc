package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/dto"
	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
	appErrors "github.com/axelvallin-balder/schedule-builder-sub000/pkg/errors"
)

// scheduleCachePattern namespaces every cached schedule payload so one
// invalidation sweep clears listings, details and validation reports.
const scheduleCachePattern = "schedules:*"

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ScheduleStatus) error
	ArchiveActive(ctx context.Context, exec sqlx.ExtContext, year, week int, excludeID string) (int64, error)
}

type lessonReader interface {
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.Lesson, error)
}

// ScheduleService serves stored schedules and their lifecycle transitions.
type ScheduleService struct {
	schedules scheduleRepository
	lessons   lessonReader
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	listTTL   time.Duration
}

// NewScheduleService wires schedule read and lifecycle dependencies.
func NewScheduleService(schedules scheduleRepository, lessons lessonReader, tx txProvider, cache *CacheService, metrics *MetricsService, logger *zap.Logger, listTTL time.Duration) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if listTTL <= 0 {
		listTTL = 5 * time.Minute
	}
	return &ScheduleService{
		schedules: schedules,
		lessons:   lessons,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		listTTL:   listTTL,
	}
}

type cachedScheduleList struct {
	Items []models.Schedule `json:"items"`
	Total int               `json:"total"`
}

// List returns schedules matching the query. The boolean reports whether the
// payload came from cache.
func (s *ScheduleService) List(ctx context.Context, query dto.ScheduleListQuery) ([]models.Schedule, int, bool, error) {
	filter := models.ScheduleFilter{
		Year:      query.Year,
		Week:      query.Week,
		Status:    models.ScheduleStatus(query.Status),
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if filter.Status != "" {
		switch filter.Status {
		case models.ScheduleStatusDraft, models.ScheduleStatusActive, models.ScheduleStatusArchived:
		default:
			return nil, 0, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown schedule status %q", query.Status))
		}
	}

	cacheKey := makeScheduleCacheKey("list", intPart("y", query.Year), intPart("w", query.Week), query.Status,
		"p"+strconv.Itoa(filter.Page), "n"+strconv.Itoa(filter.PageSize), filter.SortBy, filter.SortOrder)
	var cached cachedScheduleList
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached.Items, cached.Total, true, nil
		}
	}

	start := time.Now()
	items, total, err := s.schedules.List(ctx, filter)
	if err != nil {
		return nil, 0, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("schedules_list", time.Since(start))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, cachedScheduleList{Items: items, Total: total}, s.listTTL); err != nil {
			s.logger.Warn("cache schedule list", zap.Error(err))
		}
	}
	return items, total, false, nil
}

// Get loads one schedule with its lessons.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	lessons, err := s.lessons.ListBySchedule(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule lessons")
	}
	schedule.Lessons = lessons
	return schedule, nil
}

// Activate promotes a schedule to active and archives the previously active
// version for the same week in one transaction.
func (s *ScheduleService) Activate(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.loadForTransition(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status == models.ScheduleStatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "schedule is already active")
	}
	if schedule.GenerationStatus == models.GenerationStatusFailed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "a failed generation run cannot be activated")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = s.schedules.ArchiveActive(ctx, tx, schedule.Year, schedule.Week, schedule.ID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive previous active schedule")
		return nil, err
	}
	if err = s.schedules.UpdateStatus(ctx, tx, schedule.ID, models.ScheduleStatusActive); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate schedule")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit activation")
		return nil, err
	}

	schedule.Status = models.ScheduleStatusActive
	s.invalidate(ctx)
	s.logger.Info("schedule activated", zap.String("schedule_id", schedule.ID), zap.Int("year", schedule.Year), zap.Int("week", schedule.Week))
	return schedule, nil
}

// Archive retires a schedule version.
func (s *ScheduleService) Archive(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.loadForTransition(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status == models.ScheduleStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrConflict, "schedule is already archived")
	}
	if err := s.schedules.UpdateStatus(ctx, nil, schedule.ID, models.ScheduleStatusArchived); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive schedule")
	}
	schedule.Status = models.ScheduleStatusArchived
	s.invalidate(ctx)
	s.logger.Info("schedule archived", zap.String("schedule_id", schedule.ID))
	return schedule, nil
}

func (s *ScheduleService) loadForTransition(ctx context.Context, id string) (*models.Schedule, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

func (s *ScheduleService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, scheduleCachePattern); err != nil {
		s.logger.Warn("invalidate schedule cache", zap.Error(err))
	}
}

// makeScheduleCacheKey builds colon-separated keys under the schedules
// namespace, skipping empty parts.
func makeScheduleCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("schedules")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}

func intPart(prefix string, value *int) string {
	if value == nil {
		return ""
	}
	return prefix + strconv.Itoa(*value)
}
