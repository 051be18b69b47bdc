package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleRepositoryCreateVersioned(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM schedules WHERE year = $1 AND week = $2")).
		WithArgs(2026, 35).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WithArgs(sqlmock.AnyArg(), 2026, 35, 3, string(models.ScheduleStatusActive), string(models.GenerationStatusSuccess), sqlmock.AnyArg(), 2, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payload := &models.Schedule{
		Year:              2026,
		Week:              35,
		Status:            models.ScheduleStatusActive,
		GenerationStatus:  models.GenerationStatusSuccess,
		ConflictsResolved: 2,
	}
	err := repo.CreateVersioned(context.Background(), nil, payload)
	require.NoError(t, err)
	assert.Equal(t, 3, payload.Version)
	assert.NotEmpty(t, payload.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateVersionedRequiresWeek(t *testing.T) {
	db, _, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	err := repo.CreateVersioned(context.Background(), nil, &models.Schedule{Year: 2026})
	assert.Error(t, err)
}

func TestScheduleRepositoryList(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "year", "week", "version", "status", "generation_status", "messages", "conflicts_resolved", "created_at", "updated_at"}).
		AddRow("sch-1", 2026, 35, 1, string(models.ScheduleStatusActive), string(models.GenerationStatusSuccess), "{}", 0, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, year, week, version, status, generation_status, messages, conflicts_resolved, created_at, updated_at FROM schedules WHERE 1=1 AND year = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs(2026).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schedules WHERE 1=1 AND year = $1")).
		WithArgs(2026).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	year := 2026
	list, total, err := repo.List(context.Background(), models.ScheduleFilter{Year: &year})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "year", "week", "version", "status", "generation_status", "messages", "conflicts_resolved", "created_at", "updated_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schedules WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.ScheduleFilter{SortBy: "messages; DROP TABLE schedules"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateStatusNotFound(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(string(models.ScheduleStatusArchived), sqlmock.AnyArg(), "sch-1").
		WillReturnResult(sqlmock.NewResult(1, 0))

	err := repo.UpdateStatus(context.Background(), nil, "sch-1", models.ScheduleStatusArchived)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryArchiveActive(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET status = $1, updated_at = $2 WHERE year = $3 AND week = $4 AND status = $5 AND id <> $6")).
		WithArgs(string(models.ScheduleStatusArchived), sqlmock.AnyArg(), 2026, 35, string(models.ScheduleStatusActive), "sch-2").
		WillReturnResult(sqlmock.NewResult(1, 1))

	demoted, err := repo.ArchiveActive(context.Background(), nil, 2026, 35, "sch-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), demoted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"status", "total"}).
		AddRow(string(models.ScheduleStatusActive), 4).
		AddRow(string(models.ScheduleStatusDraft), 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS total FROM schedules GROUP BY status")).
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts[models.ScheduleStatusActive])
	assert.Equal(t, 2, counts[models.ScheduleStatusDraft])
	assert.NoError(t, mock.ExpectationsWereMet())
}
