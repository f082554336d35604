package service

import (
	"context"
	"time"

	"teamTracker/internal/models/project"
	"teamTracker/internal/models/task"
	"teamTracker/internal/models/user"
)

type UserRepository interface {
	// CreateWithBootstrap stores a new profile and sets its role atomically:
	// admin when no profile was ever created before, user otherwise.
	CreateWithBootstrap(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id string) (*user.User, error)
	List(ctx context.Context) ([]*user.User, error)
	SetRole(ctx context.Context, id string, role user.Role) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	CountAdmins(ctx context.Context) (int, error)
}

type ProjectRepository interface {
	Create(ctx context.Context, p *project.Project) error
	GetByID(ctx context.Context, id string) (*project.Project, error)
	Update(ctx context.Context, p *project.Project) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*project.Project, error)
}

type TaskRepository interface {
	Create(ctx context.Context, t *task.Task) error
	GetByID(ctx context.Context, id string) (*task.Task, error)
	Update(ctx context.Context, t *task.Task) error
	Delete(ctx context.Context, id string) error
	// ListByProject returns tasks newest first; an empty createdBy means all.
	ListByProject(ctx context.Context, projectID, createdBy string) ([]*task.Task, error)
	ListAll(ctx context.Context) ([]*task.Task, error)
	DeleteByProject(ctx context.Context, projectID string) (int64, error)
	MarkOrphaned(ctx context.Context, projectID string, at time.Time) (int64, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type options struct {
	now func() time.Time
}

type Option func(*options)

// WithClock replaces the time source used for stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
