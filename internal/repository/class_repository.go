package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

// ClassRepository reads class reference rows. Lunch-window enforcement
// walks classes to find the groups each one owns.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// ListAll returns every class in stable creation order.
func (r *ClassRepository) ListAll(ctx context.Context) ([]models.Class, error) {
	const query = `SELECT id, name, group_ids, lunch_minutes, created_at, updated_at FROM classes ORDER BY created_at ASC, id ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID returns a class by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, group_ids, lunch_minutes, created_at, updated_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}
