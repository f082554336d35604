package service

import (
	"context"
	"strings"
	"time"

	"teamTracker/internal/logger"
	"teamTracker/internal/models/project"
	"teamTracker/internal/models/user"
	"teamTracker/internal/policy"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type NewProject struct {
	Title       string
	Description string
	Status      project.Status
}

type ProjectService struct {
	projects ProjectRepository
	tasks    TaskRepository
	rules    policy.Rules
	now      func() time.Time
}

func NewProjectService(projects ProjectRepository, tasks TaskRepository, rules policy.Rules, opts ...Option) *ProjectService {
	o := buildOptions(opts)
	return &ProjectService{
		projects: projects,
		tasks:    tasks,
		rules:    rules,
		now:      o.now,
	}
}

func (s *ProjectService) CreateProject(ctx context.Context, p user.Principal, in NewProject) (*project.Project, error) {
	if !s.rules.CanCreateProject(p) {
		logger.Warn("Service: Project creation denied", zap.String("uid", p.UID))
		return nil, NewAuthorizationError("create projects")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, NewValidationError("title", "must not be empty")
	}
	status := in.Status
	if status == "" {
		status = project.StatusActive
	}
	if !status.Valid() {
		return nil, NewValidationError("status", "must be one of active, pending, completed")
	}

	now := s.now()
	proj := &project.Project{
		ID:          uuid.NewString(),
		Title:       title,
		Description: in.Description,
		Status:      status,
		OwnerID:     p.UID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.projects.Create(ctx, proj); err != nil {
		logger.Error("Service: Failed to create project", err)
		return nil, fromStore("create project", ResourceProject, proj.ID, err)
	}

	logger.Info("Service: Project created", zap.String("project_id", proj.ID), zap.String("owner_id", p.UID))
	return proj, nil
}

func (s *ProjectService) GetProject(ctx context.Context, p user.Principal, id string) (*project.Project, error) {
	if !p.Authenticated() {
		return nil, NewAuthorizationError("view projects")
	}

	proj, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, fromStore("load project", ResourceProject, id, err)
	}
	return proj, nil
}

// UpdateProject applies opts and always refreshes UpdatedAt, even when no
// field changed.
func (s *ProjectService) UpdateProject(ctx context.Context, p user.Principal, id string, opts ...project.Option) (*project.Project, error) {
	if !p.Authenticated() {
		return nil, NewAuthorizationError("update projects")
	}

	current, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, fromStore("load project", ResourceProject, id, err)
	}
	if !policy.CanAccessProject(p, current) {
		logger.Warn("Service: Project update denied", zap.String("uid", p.UID), zap.String("project_id", id))
		return nil, NewAuthorizationError("update this project")
	}

	updated := *current
	for _, opt := range opts {
		if opt != nil {
			opt(&updated)
		}
	}
	updated.Title = strings.TrimSpace(updated.Title)

	if updated.Title == "" {
		return nil, NewValidationError("title", "must not be empty")
	}
	if !updated.Status.Valid() {
		return nil, NewValidationError("status", "must be one of active, pending, completed")
	}
	updated.UpdatedAt = s.now()

	if err := s.projects.Update(ctx, &updated); err != nil {
		logger.Error("Service: Failed to update project", err, zap.String("project_id", id))
		return nil, fromStore("update project", ResourceProject, id, err)
	}
	return &updated, nil
}

// DeleteProject removes the project, then orphans or deletes its tasks
// according to the configured policy.
func (s *ProjectService) DeleteProject(ctx context.Context, p user.Principal, id string) error {
	if !p.Authenticated() {
		return NewAuthorizationError("delete projects")
	}

	current, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return fromStore("load project", ResourceProject, id, err)
	}
	if !policy.CanAccessProject(p, current) {
		logger.Warn("Service: Project deletion denied", zap.String("uid", p.UID), zap.String("project_id", id))
		return NewAuthorizationError("delete this project")
	}

	if err := s.projects.Delete(ctx, id); err != nil {
		logger.Error("Service: Failed to delete project", err, zap.String("project_id", id))
		return fromStore("delete project", ResourceProject, id, err)
	}

	var affected int64
	switch s.rules.OnProjectDelete {
	case policy.CascadeTasks:
		affected, err = s.tasks.DeleteByProject(ctx, id)
	default:
		affected, err = s.tasks.MarkOrphaned(ctx, id, s.now())
	}
	if err != nil {
		logger.Error("Service: Project deleted but its tasks were not processed", err,
			zap.String("project_id", id), zap.String("policy", string(s.rules.OnProjectDelete)))
		return NewUpstreamError(storeKind(err), "process project tasks", err)
	}

	logger.Info("Service: Project deleted",
		zap.String("project_id", id),
		zap.String("policy", string(s.rules.OnProjectDelete)),
		zap.Int64("tasks", affected))
	return nil
}

// ListProjects returns every project, newest first, to any signed-in user.
func (s *ProjectService) ListProjects(ctx context.Context, p user.Principal) ([]*project.Project, error) {
	if !p.Authenticated() {
		return nil, NewAuthorizationError("list projects")
	}

	projects, err := s.projects.List(ctx)
	if err != nil {
		return nil, NewUpstreamError(storeKind(err), "list projects", err)
	}
	return projects, nil
}
