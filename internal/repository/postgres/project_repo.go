package postgres

import (
	"context"
	"fmt"
	"time"

	"teamTracker/internal/logger"
	"teamTracker/internal/models/project"
	repo "teamTracker/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const projectColumns = `id, title, description, status, owner_id, created_at, updated_at`

type ProjectRepo struct {
	pool *pgxpool.Pool
}

func (r *ProjectRepo) Create(ctx context.Context, p *project.Project) error {
	start := time.Now()
	defer warnIfSlow("projects.create", start)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Title, p.Description, p.Status, p.OwnerID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		logger.Error("Repository: Failed to insert project", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("insert project: %w", mapError(err))
	}
	return nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*project.Project, error) {
	start := time.Now()
	defer warnIfSlow("projects.get", start)

	rows, err := r.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", mapError(err))
	}
	p, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[project.Project])
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, mapError(err))
	}
	return p, nil
}

func (r *ProjectRepo) Update(ctx context.Context, p *project.Project) error {
	start := time.Now()
	defer warnIfSlow("projects.update", start)

	tag, err := r.pool.Exec(ctx,
		`UPDATE projects
			SET title = $2,
				description = $3,
				status = $4,
				updated_at = $5
			WHERE id = $1`,
		p.ID, p.Title, p.Description, p.Status, p.UpdatedAt)
	if err != nil {
		logger.Error("Repository: Failed to update project", err, zap.String("project_id", p.ID))
		return fmt.Errorf("update project: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	start := time.Now()
	defer warnIfSlow("projects.delete", start)

	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Failed to delete project", err, zap.String("project_id", id))
		return fmt.Errorf("delete project: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ProjectRepo) List(ctx context.Context) ([]*project.Project, error) {
	start := time.Now()
	defer warnIfSlow("projects.list", start)

	rows, err := r.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		logger.Error("Repository: Failed to list projects", err)
		return nil, fmt.Errorf("list projects: %w", mapError(err))
	}
	projects, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[project.Project])
	if err != nil {
		return nil, fmt.Errorf("scan projects: %w", mapError(err))
	}
	return projects, nil
}
