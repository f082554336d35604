// Package worker runs background maintenance jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"teamTracker/internal/logger"
	"teamTracker/internal/models/project"
	"teamTracker/internal/models/task"
	"teamTracker/internal/policy"
	repo "teamTracker/internal/repository"

	"go.uber.org/zap"
)

const (
	DefaultInterval  = 5 * time.Minute
	DefaultBatchSize = 100
)

type TaskRepository interface {
	ListAll(ctx context.Context) ([]*task.Task, error)
	MarkOrphaned(ctx context.Context, projectID string, at time.Time) (int64, error)
	DeleteByProject(ctx context.Context, projectID string) (int64, error)
}

type ProjectFinder interface {
	GetByID(ctx context.Context, id string) (*project.Project, error)
}

// ReconcileWorker finds tasks that still point at a deleted project and
// applies the project deletion policy to them. Such tasks are left behind
// when a project delete succeeds but processing its tasks does not.
type ReconcileWorker struct {
	tasks     TaskRepository
	projects  ProjectFinder
	onDelete  policy.OnProjectDelete
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewReconcileWorker uses DefaultInterval and DefaultBatchSize for
// non-positive values.
func NewReconcileWorker(tasks TaskRepository, projects ProjectFinder, onDelete policy.OnProjectDelete, interval time.Duration, batchSize int) *ReconcileWorker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ReconcileWorker{
		tasks:     tasks,
		projects:  projects,
		onDelete:  onDelete,
		interval:  interval,
		batchSize: batchSize,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (w *ReconcileWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.Check(ctx); err != nil {
				logger.Warn("Worker: Reconciliation failed", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("Worker: Reconciliation stopped")
			return
		}
	}
}

// Check runs one pass and returns how many tasks were fixed. At most
// batchSize missing projects are handled per pass.
func (w *ReconcileWorker) Check(ctx context.Context) (int64, error) {
	start := time.Now()

	tasks, err := w.tasks.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tasks: %w", err)
	}

	seen := make(map[string]struct{})
	var missing []string
	for _, t := range tasks {
		if t.Orphaned || t.ProjectID == "" {
			continue
		}
		if _, ok := seen[t.ProjectID]; ok {
			continue
		}
		seen[t.ProjectID] = struct{}{}

		_, err := w.projects.GetByID(ctx, t.ProjectID)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			missing = append(missing, t.ProjectID)
		case err != nil:
			return 0, fmt.Errorf("load project %s: %w", t.ProjectID, err)
		}
		if len(missing) >= w.batchSize {
			break
		}
	}

	var fixed int64
	for _, projectID := range missing {
		n, err := w.apply(ctx, projectID)
		if err != nil {
			logger.Warn("Worker: Failed to process tasks of deleted project",
				zap.String("project_id", projectID), zap.Error(err))
			continue
		}
		fixed += n
	}

	logger.Info("Worker: Reconciliation finished",
		zap.Duration("ms", time.Since(start)),
		zap.Int("checked", len(tasks)),
		zap.Int("missing_projects", len(missing)),
		zap.Int64("fixed", fixed),
		zap.String("policy", string(w.onDelete)))
	return fixed, nil
}

func (w *ReconcileWorker) apply(ctx context.Context, projectID string) (int64, error) {
	if w.onDelete == policy.CascadeTasks {
		return w.tasks.DeleteByProject(ctx, projectID)
	}
	return w.tasks.MarkOrphaned(ctx, projectID, w.now())
}
