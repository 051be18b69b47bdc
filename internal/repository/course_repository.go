package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

// CourseRepository reads the course demand rows that feed generation runs.
// Course records are owned by the curriculum service; this side only reads.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListAll returns every course in stable creation order. Generation runs
// snapshot the full table, so ordering must be deterministic.
func (r *CourseRepository) ListAll(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, subject_id, teacher_id, group_ids, weekly_hours, number_of_lessons, load_hours, preferred_times, created_at, updated_at
FROM courses ORDER BY created_at ASC, id ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID returns a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, subject_id, teacher_id, group_ids, weekly_hours, number_of_lessons, load_hours, preferred_times, created_at, updated_at
FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}
