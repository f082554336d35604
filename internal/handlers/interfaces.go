package handlers

import (
	"context"

	"teamTracker/internal/models/project"
	"teamTracker/internal/models/task"
	"teamTracker/internal/models/user"
	"teamTracker/internal/service"
	"teamTracker/internal/view"
)

type TaskService interface {
	CreateTask(ctx context.Context, p user.Principal, in service.NewTask) (*task.Task, error)
	ListTasksForProject(ctx context.Context, p user.Principal, projectID string) ([]*task.Task, error)
	ListProjectTasksWithCreatorInfo(ctx context.Context, p user.Principal, projectID string) ([]view.TaskView, error)
	ListAllTasksWithCreatorInfo(ctx context.Context, p user.Principal) ([]view.TaskView, error)
	GetTask(ctx context.Context, p user.Principal, id string) (*task.Task, error)
	UpdateTask(ctx context.Context, p user.Principal, id string, opts ...task.Option) (*task.Task, error)
	DeleteTask(ctx context.Context, p user.Principal, id string) error
	ReassignTask(ctx context.Context, p user.Principal, id, newOwner string) (*task.Task, error)
}

type ProjectService interface {
	CreateProject(ctx context.Context, p user.Principal, in service.NewProject) (*project.Project, error)
	GetProject(ctx context.Context, p user.Principal, id string) (*project.Project, error)
	UpdateProject(ctx context.Context, p user.Principal, id string, opts ...project.Option) (*project.Project, error)
	DeleteProject(ctx context.Context, p user.Principal, id string) error
	ListProjects(ctx context.Context, p user.Principal) ([]*project.Project, error)
}

type UserService interface {
	Register(ctx context.Context, email, password string) (*service.Session, error)
	SignIn(ctx context.Context, email, password string) (*service.Session, error)
	SignOut(ctx context.Context, p user.Principal) error
	ListUsers(ctx context.Context, p user.Principal) ([]*user.User, error)
	SetRole(ctx context.Context, p user.Principal, uid string, role user.Role) (*user.User, error)
	DeleteUser(ctx context.Context, p user.Principal, uid string) error
}

// PrincipalRefresher re-reads a principal's role from storage.
type PrincipalRefresher interface {
	Refresh(ctx context.Context, uid, email string) user.Principal
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
