package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mkowalczyk/gantry/internal/db"
	"github.com/mkowalczyk/gantry/internal/domain"
)

// taskColumns is the canonical SELECT column list for tasks.
const taskColumns = `id, project_id, parent_task_id, title, status,
		estimate_value, estimate_unit, start_date, due_date, progress,
		order_index, version, deleted_at, created_at, updated_at`

// SQLiteTaskRepo implements TaskRepo over a DBTX, so the same repo code
// runs against the pooled connection or inside a transaction.
type SQLiteTaskRepo struct {
	db db.DBTX
}

func NewSQLiteTaskRepo(db db.DBTX) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{db: db}
}

func (r *SQLiteTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	query := `INSERT INTO tasks (id, project_id, parent_task_id, title, status,
		estimate_value, estimate_unit, start_date, due_date, progress,
		order_index, version, deleted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.ProjectID,
		t.ParentTaskID, // *string: nil becomes SQL NULL
		t.Title,
		string(t.Status),
		t.EstimateValue,
		string(t.EstimateUnit),
		nullableTimeToString(t.StartDate, dateLayout),
		nullableTimeToString(t.DueDate, dateLayout),
		t.Progress,
		t.OrderIndex,
		t.Version,
		nullableTimeToString(t.DeletedAt, time.RFC3339),
		t.CreatedAt.Format(time.RFC3339),
		t.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (r *SQLiteTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	return r.scanTask(row)
}

func (r *SQLiteTaskRepo) List(ctx context.Context, f TaskFilter) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = ?`
	args := []any{f.ProjectID}

	switch {
	case f.RootsOnly:
		query += ` AND parent_task_id IS NULL`
	case f.ParentTaskID != nil:
		query += ` AND parent_task_id = ?`
		args = append(args, *f.ParentTaskID)
	}
	if f.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*f.Status))
	}
	if !f.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY order_index, created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()
	return r.scanTasks(rows)
}

func (r *SQLiteTaskRepo) ListChildren(ctx context.Context, projectID string, parentTaskID *string) ([]*domain.Task, error) {
	if parentTaskID == nil {
		return r.List(ctx, TaskFilter{ProjectID: projectID, RootsOnly: true})
	}
	return r.List(ctx, TaskFilter{ProjectID: projectID, ParentTaskID: parentTaskID})
}

func (r *SQLiteTaskRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error) {
	return r.List(ctx, TaskFilter{ProjectID: projectID})
}

func (r *SQLiteTaskRepo) NextOrderIndex(ctx context.Context, projectID string, parentTaskID *string) (int, error) {
	query := `SELECT COALESCE(MAX(order_index), -1) + 1 FROM tasks
		WHERE project_id = ? AND deleted_at IS NULL AND `
	args := []any{projectID}
	if parentTaskID == nil {
		query += `parent_task_id IS NULL`
	} else {
		query += `parent_task_id = ?`
		args = append(args, *parentTaskID)
	}

	var next int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&next); err != nil {
		return 0, fmt.Errorf("computing next order index: %w", err)
	}
	return next, nil
}

func (r *SQLiteTaskRepo) UpdateWithVersionCheck(ctx context.Context, t *domain.Task, expectedVersion int) (int, error) {
	query := `UPDATE tasks SET parent_task_id = ?, title = ?, status = ?,
		estimate_value = ?, estimate_unit = ?, start_date = ?, due_date = ?,
		progress = ?, order_index = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query,
		t.ParentTaskID,
		t.Title,
		string(t.Status),
		t.EstimateValue,
		string(t.EstimateUnit),
		nullableTimeToString(t.StartDate, dateLayout),
		nullableTimeToString(t.DueDate, dateLayout),
		t.Progress,
		t.OrderIndex,
		t.UpdatedAt.Format(time.RFC3339),
		t.ID,
		expectedVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("updating task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return 0, r.versionCheckFailure(ctx, t.ID, expectedVersion)
	}
	t.Version = expectedVersion + 1
	return t.Version, nil
}

func (r *SQLiteTaskRepo) SoftDelete(ctx context.Context, id string, expectedVersion int, at time.Time) error {
	query := `UPDATE tasks SET deleted_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query,
		at.Format(time.RFC3339),
		at.Format(time.RFC3339),
		id,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("soft-deleting task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return r.versionCheckFailure(ctx, id, expectedVersion)
	}
	return nil
}

// versionCheckFailure distinguishes a stale version from a missing or
// deleted row after a guarded UPDATE touched nothing.
func (r *SQLiteTaskRepo) versionCheckFailure(ctx context.Context, id string, expectedVersion int) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.IsDeleted() {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("task %s: expected version %d, have %d: %w",
		id, expectedVersion, current.Version, domain.ErrConflict)
}

func (r *SQLiteTaskRepo) scanTask(row *sql.Row) (*domain.Task, error) {
	var t domain.Task
	var status, estimateUnit, createdAtStr, updatedAtStr string
	var startDate, dueDate, deletedAt sql.NullString

	err := row.Scan(
		&t.ID, &t.ProjectID, &t.ParentTaskID, &t.Title, &status,
		&t.EstimateValue, &estimateUnit, &startDate, &dueDate, &t.Progress,
		&t.OrderIndex, &t.Version, &deletedAt, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	t.Status = domain.TaskStatus(status)
	t.EstimateUnit = domain.EstimateUnit(estimateUnit)
	t.StartDate = parseNullableTime(startDate, dateLayout)
	t.DueDate = parseNullableTime(dueDate, dateLayout)
	t.DeletedAt = parseNullableTime(deletedAt, time.RFC3339)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAtStr)
	return &t, nil
}

func (r *SQLiteTaskRepo) scanTasks(rows *sql.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		var t domain.Task
		var status, estimateUnit, createdAtStr, updatedAtStr string
		var startDate, dueDate, deletedAt sql.NullString

		err := rows.Scan(
			&t.ID, &t.ProjectID, &t.ParentTaskID, &t.Title, &status,
			&t.EstimateValue, &estimateUnit, &startDate, &dueDate, &t.Progress,
			&t.OrderIndex, &t.Version, &deletedAt, &createdAtStr, &updatedAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}

		t.Status = domain.TaskStatus(status)
		t.EstimateUnit = domain.EstimateUnit(estimateUnit)
		t.StartDate = parseNullableTime(startDate, dateLayout)
		t.DueDate = parseNullableTime(dueDate, dateLayout)
		t.DeletedAt = parseNullableTime(deletedAt, time.RFC3339)
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
		t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAtStr)
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}
