package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/dto"
	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
	appErrors "github.com/axelvallin-balder/schedule-builder-sub000/pkg/errors"
)

type generatorMock struct {
	resp *dto.GenerateScheduleResponse
	err  error
	req  dto.GenerateScheduleRequest
}

func (m *generatorMock) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	m.req = req
	return m.resp, m.err
}

type lifecycleMock struct {
	items       []models.Schedule
	total       int
	cacheHit    bool
	listErr     error
	query       dto.ScheduleListQuery
	schedule    *models.Schedule
	getErr      error
	activateErr error
	archiveErr  error
}

func (m *lifecycleMock) List(ctx context.Context, query dto.ScheduleListQuery) ([]models.Schedule, int, bool, error) {
	m.query = query
	if m.listErr != nil {
		return nil, 0, false, m.listErr
	}
	return m.items, m.total, m.cacheHit, nil
}

func (m *lifecycleMock) Get(ctx context.Context, id string) (*models.Schedule, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.schedule, nil
}

func (m *lifecycleMock) Activate(ctx context.Context, id string) (*models.Schedule, error) {
	if m.activateErr != nil {
		return nil, m.activateErr
	}
	return m.schedule, nil
}

func (m *lifecycleMock) Archive(ctx context.Context, id string) (*models.Schedule, error) {
	if m.archiveErr != nil {
		return nil, m.archiveErr
	}
	return m.schedule, nil
}

type validatorMock struct {
	inline    *models.ValidationResult
	inlineErr error
	stored    *models.ValidationResult
	storedHit bool
	storedErr error
}

func (m *validatorMock) ValidateInline(ctx context.Context, req dto.ValidateScheduleRequest) (*models.ValidationResult, error) {
	return m.inline, m.inlineErr
}

func (m *validatorMock) ValidateStored(ctx context.Context, scheduleID string) (*models.ValidationResult, bool, error) {
	return m.stored, m.storedHit, m.storedErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

type envelopeBody struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelopeBody {
	t.Helper()
	var body envelopeBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestScheduleHandlerGenerateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gen := &generatorMock{resp: &dto.GenerateScheduleResponse{
		Schedule: &models.Schedule{ID: "sch-1", Year: 2026, Week: 35, Version: 1, Status: models.ScheduleStatusActive},
		Status:   models.GenerationStatusSuccess,
	}}
	handler := NewScheduleHandler(gen, &lifecycleMock{}, &validatorMock{})

	payload, _ := json.Marshal(dto.GenerateScheduleRequest{Year: 2026, Week: 35})
	c, w := newGinContext(http.MethodPost, "/schedules/generate", payload)

	handler.Generate(c)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeEnvelope(t, w)
	require.Nil(t, body.Error)
	require.Equal(t, "success", body.Meta["generation_status"])
	require.Equal(t, 2026, gen.req.Year)
}

func TestScheduleHandlerGeneratePartialKeepsMessages(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gen := &generatorMock{resp: &dto.GenerateScheduleResponse{
		Schedule: &models.Schedule{ID: "sch-1", Status: models.ScheduleStatusDraft},
		Status:   models.GenerationStatusPartial,
		Messages: []string{"course c9: no teacher available"},
	}}
	handler := NewScheduleHandler(gen, &lifecycleMock{}, &validatorMock{})

	payload, _ := json.Marshal(dto.GenerateScheduleRequest{Year: 2026, Week: 35})
	c, w := newGinContext(http.MethodPost, "/schedules/generate", payload)

	handler.Generate(c)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeEnvelope(t, w)
	require.Equal(t, "partial", body.Meta["generation_status"])
	require.Len(t, body.Meta["messages"], 1)
}

func TestScheduleHandlerGenerateFailedRunReturnsReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gen := &generatorMock{
		resp: &dto.GenerateScheduleResponse{Status: models.GenerationStatusFailed, Messages: []string{"no lesson could be placed"}},
		err:  appErrors.Clone(appErrors.ErrUnprocessable, "schedule generation failed to place any lesson"),
	}
	handler := NewScheduleHandler(gen, &lifecycleMock{}, &validatorMock{})

	payload, _ := json.Marshal(dto.GenerateScheduleRequest{Year: 2026, Week: 35})
	c, w := newGinContext(http.MethodPost, "/schedules/generate", payload)

	handler.Generate(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeEnvelope(t, w)
	require.NotNil(t, body.Error)
	require.NotEmpty(t, body.Data)
}

func TestScheduleHandlerGenerateInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScheduleHandler(&generatorMock{}, &lifecycleMock{}, &validatorMock{})

	c, w := newGinContext(http.MethodPost, "/schedules/generate", []byte(`{"year":`))

	handler.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerListPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lifecycle := &lifecycleMock{items: []models.Schedule{{ID: "sch-1"}}, total: 11}
	handler := NewScheduleHandler(&generatorMock{}, lifecycle, &validatorMock{})

	c, w := newGinContext(http.MethodGet, "/schedules?year=2026&week=35&status=draft&page=2&pageSize=5", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeEnvelope(t, w)
	require.NotNil(t, body.Pagination)
	require.Equal(t, 2, body.Pagination.Page)
	require.Equal(t, 5, body.Pagination.PageSize)
	require.Equal(t, 11, body.Pagination.TotalCount)
	require.NotNil(t, lifecycle.query.Year)
	require.Equal(t, 2026, *lifecycle.query.Year)
	require.Equal(t, "draft", lifecycle.query.Status)
}

func TestScheduleHandlerListRejectsBadYear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScheduleHandler(&generatorMock{}, &lifecycleMock{}, &validatorMock{})

	c, w := newGinContext(http.MethodGet, "/schedules?year=abc", nil)

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lifecycle := &lifecycleMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "schedule not found")}
	handler := NewScheduleHandler(&generatorMock{}, lifecycle, &validatorMock{})

	c, w := newGinContext(http.MethodGet, "/schedules/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleHandlerValidateInline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	valid := &validatorMock{inline: &models.ValidationResult{IsValid: true, Violations: []models.RuleViolation{}}}
	handler := NewScheduleHandler(&generatorMock{}, &lifecycleMock{}, valid)

	payload, _ := json.Marshal(dto.ValidateScheduleRequest{Lessons: []dto.LessonPayload{{ID: "l1", CourseID: "c1"}}})
	c, w := newGinContext(http.MethodPost, "/schedules/validate", payload)

	handler.Validate(c)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeEnvelope(t, w)
	var report models.ValidationResult
	require.NoError(t, json.Unmarshal(body.Data, &report))
	require.True(t, report.IsValid)
}

func TestScheduleHandlerValidationReportCacheMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	valid := &validatorMock{stored: &models.ValidationResult{IsValid: true}, storedHit: true}
	handler := NewScheduleHandler(&generatorMock{}, &lifecycleMock{}, valid)

	c, w := newGinContext(http.MethodGet, "/schedules/sch-1/validation", nil)
	c.Params = gin.Params{{Key: "id", Value: "sch-1"}}

	handler.GetValidation(c)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeEnvelope(t, w)
	require.Equal(t, true, body.Meta["cache_hit"])
}

func TestScheduleHandlerActivateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lifecycle := &lifecycleMock{activateErr: appErrors.Clone(appErrors.ErrConflict, "schedule is already active")}
	handler := NewScheduleHandler(&generatorMock{}, lifecycle, &validatorMock{})

	c, w := newGinContext(http.MethodPost, "/schedules/sch-1/activate", nil)
	c.Params = gin.Params{{Key: "id", Value: "sch-1"}}

	handler.Activate(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestScheduleHandlerArchive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lifecycle := &lifecycleMock{schedule: &models.Schedule{ID: "sch-1", Status: models.ScheduleStatusArchived}}
	handler := NewScheduleHandler(&generatorMock{}, lifecycle, &validatorMock{})

	c, w := newGinContext(http.MethodPost, "/schedules/sch-1/archive", nil)
	c.Params = gin.Params{{Key: "id", Value: "sch-1"}}

	handler.Archive(c)
	require.Equal(t, http.StatusOK, w.Code)
}
