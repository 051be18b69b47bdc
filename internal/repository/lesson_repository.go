package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

// LessonRepository manages lesson rows belonging to stored schedules.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs the repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

func (r *LessonRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertBatch stores the lessons of one schedule version. Lesson rows are
// immutable once written; regeneration creates a new schedule version.
func (r *LessonRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, scheduleID string, lessons []models.Lesson) error {
	if len(lessons) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO lessons (id, schedule_id, course_id, subject_id, teacher_id, group_ids, day_of_week, start_time, duration_minutes, version, created_at)
VALUES (:id, :schedule_id, :course_id, :subject_id, :teacher_id, :group_ids, :day_of_week, :start_time, :duration_minutes, :version, :created_at)`

	for i := range lessons {
		lesson := &lessons[i]
		if lesson.ID == "" {
			lesson.ID = uuid.NewString()
		}
		lesson.ScheduleID = scheduleID
		if lesson.CreatedAt.IsZero() {
			lesson.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, lesson); err != nil {
			return fmt.Errorf("insert lesson: %w", err)
		}
	}
	return nil
}

// ListBySchedule returns a schedule's lessons ordered by day and start time.
func (r *LessonRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.Lesson, error) {
	const query = `SELECT id, schedule_id, course_id, subject_id, teacher_id, group_ids, day_of_week, start_time, duration_minutes, version, created_at
FROM lessons WHERE schedule_id = $1 ORDER BY day_of_week ASC, start_time ASC, id ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}
