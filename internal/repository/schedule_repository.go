package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

// ScheduleRepository persists versioned weekly schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a schedule assigning the next version for the year-week tuple.
func (r *ScheduleRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	if schedule == nil {
		return fmt.Errorf("schedule payload is nil")
	}
	if schedule.Year == 0 || schedule.Week == 0 {
		return fmt.Errorf("year and week are required")
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.Status == "" {
		schedule.Status = models.ScheduleStatusDraft
	}
	if schedule.Messages == nil {
		schedule.Messages = pq.StringArray{}
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM schedules WHERE year = $1 AND week = $2`
	if err := sqlx.GetContext(ctx, target, &schedule.Version, nextVersionQuery, schedule.Year, schedule.Week); err != nil {
		return fmt.Errorf("compute next schedule version: %w", err)
	}

	const insertQuery = `
INSERT INTO schedules (id, year, week, version, status, generation_status, messages, conflicts_resolved, created_at, updated_at)
VALUES (:id, :year, :week, :version, :status, :generation_status, :messages, :conflicts_resolved, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, schedule); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// List returns schedules matching filters with a total count for pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	base := "FROM schedules WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Year != nil {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, *filter.Year)
	}
	if filter.Week != nil {
		conditions = append(conditions, fmt.Sprintf("week = $%d", len(args)+1))
		args = append(args, *filter.Week)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]bool{
		"year":       true,
		"week":       true,
		"version":    true,
		"status":     true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, year, week, version, status, generation_status, messages, conflicts_resolved, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// FindByID loads a schedule by its identifier.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	const query = `SELECT id, year, week, version, status, generation_status, messages, conflicts_resolved, created_at, updated_at FROM schedules WHERE id = $1`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// UpdateStatus moves a schedule to the given lifecycle status.
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ScheduleStatus) error {
	target := r.exec(exec)
	const query = `UPDATE schedules SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := target.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update schedule status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ArchiveActive demotes any active schedule for the year-week tuple except the
// one being promoted. Returns the number of demoted rows.
func (r *ScheduleRepository) ArchiveActive(ctx context.Context, exec sqlx.ExtContext, year, week int, excludeID string) (int64, error) {
	target := r.exec(exec)
	const query = `UPDATE schedules SET status = $1, updated_at = $2 WHERE year = $3 AND week = $4 AND status = $5 AND id <> $6`
	result, err := target.ExecContext(ctx, query, models.ScheduleStatusArchived, time.Now().UTC(), year, week, models.ScheduleStatusActive, excludeID)
	if err != nil {
		return 0, fmt.Errorf("archive active schedules: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("archive active rows affected: %w", err)
	}
	return affected, nil
}

// CountByStatus aggregates schedules per lifecycle status for metrics.
func (r *ScheduleRepository) CountByStatus(ctx context.Context) (map[models.ScheduleStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM schedules GROUP BY status`
	rows := []struct {
		Status models.ScheduleStatus `db:"status"`
		Total  int                   `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count schedules by status: %w", err)
	}
	counts := make(map[models.ScheduleStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
