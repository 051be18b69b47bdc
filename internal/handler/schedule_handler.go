package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/dto"
	"github.com/axelvallin-balder/schedule-builder-sub000/internal/middleware"
	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
	appErrors "github.com/axelvallin-balder/schedule-builder-sub000/pkg/errors"
	"github.com/axelvallin-balder/schedule-builder-sub000/pkg/response"
)

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
}

type scheduleLifecycle interface {
	List(ctx context.Context, query dto.ScheduleListQuery) ([]models.Schedule, int, bool, error)
	Get(ctx context.Context, id string) (*models.Schedule, error)
	Activate(ctx context.Context, id string) (*models.Schedule, error)
	Archive(ctx context.Context, id string) (*models.Schedule, error)
}

type scheduleValidator interface {
	ValidateInline(ctx context.Context, req dto.ValidateScheduleRequest) (*models.ValidationResult, error)
	ValidateStored(ctx context.Context, scheduleID string) (*models.ValidationResult, bool, error)
}

// ScheduleHandler manages schedule generation and lifecycle endpoints.
type ScheduleHandler struct {
	generator scheduleGenerator
	schedules scheduleLifecycle
	validator scheduleValidator
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(generator scheduleGenerator, schedules scheduleLifecycle, validator scheduleValidator) *ScheduleHandler {
	return &ScheduleHandler{generator: generator, schedules: schedules, validator: validator}
}

// Generate godoc
// @Summary Generate a weekly schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Generation parameters"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schedules/generate [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	start := time.Now()
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		// A failed run still returns its report so callers can see why
		// nothing could be placed.
		if result != nil && appErrors.Is(err, appErrors.ErrUnprocessable) {
			response.ErrorWithData(c, err, result)
			return
		}
		response.Error(c, err)
		return
	}
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	meta["generation_status"] = string(result.Status)
	if len(result.Messages) > 0 {
		meta["messages"] = result.Messages
	}
	response.JSON(c, http.StatusCreated, result, nil, meta)
}

// Validate godoc
// @Summary Validate a schedule snapshot
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.ValidateScheduleRequest true "Lessons to validate"
// @Success 200 {object} response.Envelope
// @Router /schedules/validate [post]
func (h *ScheduleHandler) Validate(c *gin.Context) {
	var req dto.ValidateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.validator.ValidateInline(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// List godoc
// @Summary List stored schedules
// @Tags Schedules
// @Produce json
// @Param year query int false "Filter by year"
// @Param week query int false "Filter by ISO week"
// @Param status query string false "Filter by lifecycle status"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Param sortBy query string false "Sort column"
// @Param sortOrder query string false "Sort direction"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var query dto.ScheduleListQuery
	year, err := intQuery(c, "year")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be an integer"))
		return
	}
	week, err := intQuery(c, "week")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "week must be an integer"))
		return
	}
	query.Year = year
	query.Week = week
	query.Status = c.Query("status")
	query.Page = 1
	query.PageSize = 20
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("pageSize", "20")); err == nil && size > 0 && size <= 100 {
		query.PageSize = size
	}
	query.SortBy = c.Query("sortBy")
	query.SortOrder = c.Query("sortOrder")

	items, total, cacheHit, err := h.schedules.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	pagination := &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, items, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a schedule with its lessons
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// GetValidation godoc
// @Summary Validation report for a stored schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/validation [get]
func (h *ScheduleHandler) GetValidation(c *gin.Context) {
	start := time.Now()
	report, cacheHit, err := h.validator.ValidateStored(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, report, nil, meta)
}

// Activate godoc
// @Summary Promote a schedule to active
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/activate [post]
func (h *ScheduleHandler) Activate(c *gin.Context) {
	schedule, err := h.schedules.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Archive godoc
// @Summary Archive a schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/archive [post]
func (h *ScheduleHandler) Archive(c *gin.Context) {
	schedule, err := h.schedules.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

func intQuery(c *gin.Context, name string) (*int, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
