package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/dto"
	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
	appErrors "github.com/axelvallin-balder/schedule-builder-sub000/pkg/errors"
)

type memCacheRepo struct {
	entries     map[string][]byte
	invalidated []string
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{entries: map[string][]byte{}}
}

func (m *memCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *memCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = data
	return nil
}

func (m *memCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	m.entries = map[string][]byte{}
	return nil
}

func newCacheServiceForTest() (*CacheService, *memCacheRepo) {
	repo := newMemCacheRepo()
	return NewCacheService(repo, nil, time.Minute, zap.NewNop(), true), repo
}

type scheduleRepoStub struct {
	items     map[string]*models.Schedule
	listItems []models.Schedule
	listTotal int
	listCalls int
	listErr   error
	statusLog []string
	archLog   []string
}

func newScheduleRepoStub() *scheduleRepoStub {
	return &scheduleRepoStub{items: map[string]*models.Schedule{}}
}

func (s *scheduleRepoStub) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return s.listItems, s.listTotal, nil
}

func (s *scheduleRepoStub) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	found := *item
	return &found, nil
}

func (s *scheduleRepoStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ScheduleStatus) error {
	item, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.Status = status
	s.statusLog = append(s.statusLog, id+":"+string(status))
	return nil
}

func (s *scheduleRepoStub) ArchiveActive(ctx context.Context, exec sqlx.ExtContext, year, week int, excludeID string) (int64, error) {
	s.archLog = append(s.archLog, fmt.Sprintf("%d/%d/%s", year, week, excludeID))
	return 1, nil
}

type lessonListStub struct {
	bySchedule map[string][]models.Lesson
	calls      int
	err        error
}

func (s *lessonListStub) ListBySchedule(ctx context.Context, scheduleID string) ([]models.Lesson, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.bySchedule[scheduleID], nil
}

func newScheduleServiceForTest(t *testing.T) (*ScheduleService, *scheduleRepoStub, *lessonListStub, *memCacheRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := newScheduleRepoStub()
	lessons := &lessonListStub{bySchedule: map[string][]models.Lesson{}}
	cache, cacheRepo := newCacheServiceForTest()
	svc := NewScheduleService(repo, lessons, sqlx.NewDb(db, "sqlmock"), cache, nil, zap.NewNop(), time.Minute)
	return svc, repo, lessons, cacheRepo, mock
}

func TestScheduleServiceListCachesResults(t *testing.T) {
	svc, repo, _, _, _ := newScheduleServiceForTest(t)
	repo.listItems = []models.Schedule{{ID: "sch-1", Year: 2026, Week: 35, Version: 1}}
	repo.listTotal = 1

	year := 2026
	query := dto.ScheduleListQuery{Year: &year, Page: 1, PageSize: 20}

	items, total, fromCache, err := svc.List(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)

	items, total, fromCache, err = svc.List(context.Background(), query)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, 1, repo.listCalls)
}

func TestScheduleServiceListRejectsUnknownStatus(t *testing.T) {
	svc, _, _, _, _ := newScheduleServiceForTest(t)

	_, _, _, err := svc.List(context.Background(), dto.ScheduleListQuery{Status: "bogus"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestScheduleServiceGetAttachesLessons(t *testing.T) {
	svc, repo, lessons, _, _ := newScheduleServiceForTest(t)
	repo.items["sch-1"] = &models.Schedule{ID: "sch-1", Year: 2026, Week: 35, Status: models.ScheduleStatusDraft}
	lessons.bySchedule["sch-1"] = []models.Lesson{placedLesson("l1")}

	schedule, err := svc.Get(context.Background(), "sch-1")
	require.NoError(t, err)
	require.Len(t, schedule.Lessons, 1)
	assert.Equal(t, "l1", schedule.Lessons[0].ID)
}

func TestScheduleServiceGetNotFound(t *testing.T) {
	svc, _, _, _, _ := newScheduleServiceForTest(t)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestScheduleServiceActivateArchivesPreviousActive(t *testing.T) {
	svc, repo, _, cacheRepo, mock := newScheduleServiceForTest(t)
	repo.items["sch-2"] = &models.Schedule{
		ID:               "sch-2",
		Year:             2026,
		Week:             35,
		Status:           models.ScheduleStatusDraft,
		GenerationStatus: models.GenerationStatusPartial,
	}
	mock.ExpectBegin()
	mock.ExpectCommit()

	schedule, err := svc.Activate(context.Background(), "sch-2")
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusActive, schedule.Status)
	assert.Equal(t, []string{"2026/35/sch-2"}, repo.archLog)
	assert.Equal(t, []string{"sch-2:active"}, repo.statusLog)
	assert.Contains(t, cacheRepo.invalidated, "schedules:*")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceActivateRejectsAlreadyActive(t *testing.T) {
	svc, repo, _, _, _ := newScheduleServiceForTest(t)
	repo.items["sch-2"] = &models.Schedule{ID: "sch-2", Status: models.ScheduleStatusActive}

	_, err := svc.Activate(context.Background(), "sch-2")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestScheduleServiceActivateRejectsFailedRun(t *testing.T) {
	svc, repo, _, _, _ := newScheduleServiceForTest(t)
	repo.items["sch-2"] = &models.Schedule{
		ID:               "sch-2",
		Status:           models.ScheduleStatusDraft,
		GenerationStatus: models.GenerationStatusFailed,
	}

	_, err := svc.Activate(context.Background(), "sch-2")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))
}

func TestScheduleServiceArchive(t *testing.T) {
	svc, repo, _, cacheRepo, _ := newScheduleServiceForTest(t)
	repo.items["sch-3"] = &models.Schedule{ID: "sch-3", Status: models.ScheduleStatusActive}

	schedule, err := svc.Archive(context.Background(), "sch-3")
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusArchived, schedule.Status)
	assert.Contains(t, cacheRepo.invalidated, "schedules:*")

	_, err = svc.Archive(context.Background(), "sch-3")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestMakeScheduleCacheKeySkipsEmptyAndEscapes(t *testing.T) {
	key := makeScheduleCacheKey("list", "", "y2026", "a:b")
	assert.Equal(t, "schedules:list:y2026:a|b", key)
}
