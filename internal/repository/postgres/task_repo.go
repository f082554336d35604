package postgres

import (
	"context"
	"fmt"
	"time"

	"teamTracker/internal/logger"
	"teamTracker/internal/models/task"
	repo "teamTracker/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const taskColumns = `id, description, duration, status, project_id, created_by, assigned_by,
	notes, created_at, completed_at, updated_at, orphaned`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func (r *TaskRepo) Create(ctx context.Context, t *task.Task) error {
	start := time.Now()
	defer warnIfSlow("tasks.create", start)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.Description, t.Duration, t.Status, t.ProjectID, t.CreatedBy, t.AssignedBy,
		t.Notes, t.CreatedAt, t.CompletedAt, t.UpdatedAt, t.Orphaned)
	if err != nil {
		logger.Error("Repository: Failed to insert task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("insert task: %w", mapError(err))
	}
	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id string) (*task.Task, error) {
	start := time.Now()
	defer warnIfSlow("tasks.get", start)

	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", mapError(err))
	}
	t, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[task.Task])
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, mapError(err))
	}
	return t, nil
}

func (r *TaskRepo) Update(ctx context.Context, t *task.Task) error {
	start := time.Now()
	defer warnIfSlow("tasks.update", start)

	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks
			SET description = $2,
				duration = $3,
				status = $4,
				created_by = $5,
				assigned_by = $6,
				notes = $7,
				completed_at = $8,
				updated_at = $9,
				orphaned = $10
			WHERE id = $1`,
		t.ID, t.Description, t.Duration, t.Status, t.CreatedBy, t.AssignedBy,
		t.Notes, t.CompletedAt, t.UpdatedAt, t.Orphaned)
	if err != nil {
		logger.Error("Repository: Failed to update task", err, zap.String("task_id", t.ID))
		return fmt.Errorf("update task: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	start := time.Now()
	defer warnIfSlow("tasks.delete", start)

	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Failed to delete task", err, zap.String("task_id", id))
		return fmt.Errorf("delete task: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *TaskRepo) ListByProject(ctx context.Context, projectID, createdBy string) ([]*task.Task, error) {
	start := time.Now()
	defer warnIfSlow("tasks.list_by_project", start)

	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
			WHERE project_id = $1 AND ($2 = '' OR created_by = $2)
			ORDER BY created_at DESC, id DESC`,
		projectID, createdBy)
	if err != nil {
		logger.Error("Repository: Failed to list tasks", err, zap.String("project_id", projectID))
		return nil, fmt.Errorf("list tasks: %w", mapError(err))
	}
	return collectTasks(rows)
}

func (r *TaskRepo) ListAll(ctx context.Context) ([]*task.Task, error) {
	start := time.Now()
	defer warnIfSlow("tasks.list_all", start)

	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC, id DESC`)
	if err != nil {
		logger.Error("Repository: Failed to list tasks", err)
		return nil, fmt.Errorf("list tasks: %w", mapError(err))
	}
	return collectTasks(rows)
}

func (r *TaskRepo) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE project_id = $1`, projectID)
	if err != nil {
		logger.Error("Repository: Failed to delete project tasks", err, zap.String("project_id", projectID))
		return 0, fmt.Errorf("delete project tasks: %w", mapError(err))
	}
	return tag.RowsAffected(), nil
}

func (r *TaskRepo) MarkOrphaned(ctx context.Context, projectID string, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET orphaned = TRUE, updated_at = $2
			WHERE project_id = $1 AND orphaned = FALSE`,
		projectID, at)
	if err != nil {
		logger.Error("Repository: Failed to orphan project tasks", err, zap.String("project_id", projectID))
		return 0, fmt.Errorf("orphan project tasks: %w", mapError(err))
	}
	return tag.RowsAffected(), nil
}

func collectTasks(rows pgx.Rows) ([]*task.Task, error) {
	tasks, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[task.Task])
	if err != nil {
		logger.Error("Repository: Failed to scan tasks", err)
		return nil, fmt.Errorf("scan tasks: %w", mapError(err))
	}
	return tasks, nil
}
