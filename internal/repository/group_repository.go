package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

// GroupRepository reads student groups and their dependency links.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// ListAll returns every group in stable creation order.
func (r *GroupRepository) ListAll(ctx context.Context) ([]models.Group, error) {
	const query = `SELECT id, name, dependent_group_ids, created_at, updated_at
FROM groups ORDER BY created_at ASC, id ASC`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// FindByID returns a group by id.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	const query = `SELECT id, name, dependent_group_ids, created_at, updated_at FROM groups WHERE id = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}
