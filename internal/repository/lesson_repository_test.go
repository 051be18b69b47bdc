package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

func newLessonRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLessonRepositoryInsertBatch(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	teacherID := "t1"
	lessons := []models.Lesson{
		{CourseID: "c1", SubjectID: "math", TeacherID: &teacherID, GroupIDs: pq.StringArray{"g1"}, DayOfWeek: 1, StartTime: "08:15", DurationMinutes: 60},
		{CourseID: "c1", SubjectID: "math", TeacherID: &teacherID, GroupIDs: pq.StringArray{"g1"}, DayOfWeek: 2, StartTime: "08:15", DurationMinutes: 60},
	}

	for range lessons {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lessons")).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}

	err := repo.InsertBatch(context.Background(), nil, "sch-1", lessons)
	require.NoError(t, err)
	for _, lesson := range lessons {
		assert.NotEmpty(t, lesson.ID)
		assert.Equal(t, "sch-1", lesson.ScheduleID)
		assert.False(t, lesson.CreatedAt.IsZero())
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryInsertBatchEmpty(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	require.NoError(t, repo.InsertBatch(context.Background(), nil, "sch-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryListBySchedule(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	rows := sqlmock.NewRows([]string{"id", "schedule_id", "course_id", "subject_id", "teacher_id", "group_ids", "day_of_week", "start_time", "duration_minutes", "version", "created_at"}).
		AddRow("l1", "sch-1", "c1", "math", "t1", "{g1}", 1, "08:15", 60, 0, time.Now()).
		AddRow("l2", "sch-1", "c1", "math", "t1", "{g1}", 1, "09:15", 60, 0, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM lessons WHERE schedule_id = $1 ORDER BY day_of_week ASC, start_time ASC, id ASC")).
		WithArgs("sch-1").
		WillReturnRows(rows)

	lessons, err := repo.ListBySchedule(context.Background(), "sch-1")
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, []string{"g1"}, []string(lessons[0].GroupIDs))
	assert.Equal(t, "09:15", lessons[1].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}
