package service

import (
	"context"
	"strings"
	"time"

	"teamTracker/internal/logger"
	"teamTracker/internal/models/task"
	"teamTracker/internal/models/user"
	"teamTracker/internal/policy"
	"teamTracker/internal/view"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewTask is the input for CreateTask. An empty AssigneeID creates the task
// for the caller.
type NewTask struct {
	Description string
	Duration    int
	ProjectID   string
	AssigneeID  string
	Notes       string
}

type TaskService struct {
	tasks    TaskRepository
	projects ProjectRepository
	users    UserRepository
	rules    policy.Rules
	composer *view.Composer
	now      func() time.Time
}

func NewTaskService(tasks TaskRepository, projects ProjectRepository, users UserRepository, rules policy.Rules, opts ...Option) *TaskService {
	o := buildOptions(opts)
	s := &TaskService{
		tasks:    tasks,
		projects: projects,
		users:    users,
		rules:    rules,
		now:      o.now,
	}
	s.composer = view.NewComposer(s.projectTitle, s.userEmail)
	return s
}

func (s *TaskService) CreateTask(ctx context.Context, p user.Principal, in NewTask) (*task.Task, error) {
	target := strings.TrimSpace(in.AssigneeID)
	if target == "" {
		target = p.UID
	}

	if !policy.CanCreateTaskFor(p, target) {
		logger.Warn("Service: Task creation denied", zap.String("uid", p.UID), zap.String("target", target))
		return nil, NewAuthorizationError("create tasks for this user")
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, NewValidationError("description", "must not be empty")
	}
	if in.Duration <= 0 {
		return nil, NewValidationError("duration", "must be a positive number of minutes")
	}
	if strings.TrimSpace(in.ProjectID) == "" {
		return nil, NewValidationError("project_id", "must not be empty")
	}

	if _, err := s.projects.GetByID(ctx, in.ProjectID); err != nil {
		return nil, fromStore("load project", ResourceProject, in.ProjectID, err)
	}
	if target != p.UID {
		if err := s.requireLiveUser(ctx, target); err != nil {
			return nil, err
		}
	}

	t := &task.Task{
		ID:          uuid.NewString(),
		Description: description,
		Duration:    in.Duration,
		Status:      task.StatusPending,
		ProjectID:   in.ProjectID,
		CreatedBy:   target,
		Notes:       in.Notes,
		CreatedAt:   s.now(),
	}
	if target != p.UID {
		t.AssignedBy = p.UID
	}

	if err := s.tasks.Create(ctx, t); err != nil {
		logger.Error("Service: Failed to create task", err, zap.String("project_id", in.ProjectID))
		return nil, fromStore("create task", ResourceTask, t.ID, err)
	}

	logger.Info("Service: Task created",
		zap.String("task_id", t.ID),
		zap.String("project_id", t.ProjectID),
		zap.String("created_by", t.CreatedBy),
		zap.String("assigned_by", t.AssignedBy))
	return t, nil
}

// ListTasksForProject returns every task of the project to admins and only
// the caller's own tasks to everyone else.
func (s *TaskService) ListTasksForProject(ctx context.Context, p user.Principal, projectID string) ([]*task.Task, error) {
	if !p.Authenticated() {
		return nil, NewAuthorizationError("list tasks")
	}
	if strings.TrimSpace(projectID) == "" {
		return nil, NewValidationError("project_id", "must not be empty")
	}

	createdBy := p.UID
	if p.IsAdmin() {
		createdBy = ""
	}

	tasks, err := s.tasks.ListByProject(ctx, projectID, createdBy)
	if err != nil {
		return nil, fromStore("list tasks", ResourceProject, projectID, err)
	}
	return tasks, nil
}

func (s *TaskService) GetTask(ctx context.Context, p user.Principal, id string) (*task.Task, error) {
	if !p.Authenticated() {
		return nil, NewAuthorizationError("view tasks")
	}

	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, fromStore("load task", ResourceTask, id, err)
	}
	if !policy.CanViewTask(p, t) {
		return nil, NewAuthorizationError("view this task")
	}
	return t, nil
}

// UpdateTask applies opts to a copy of the stored task, validates the
// result and writes it back.
func (s *TaskService) UpdateTask(ctx context.Context, p user.Principal, id string, opts ...task.Option) (*task.Task, error) {
	if !p.Authenticated() {
		return nil, NewAuthorizationError("update tasks")
	}

	current, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, fromStore("load task", ResourceTask, id, err)
	}
	if !policy.CanMutateTask(p, current) {
		logger.Warn("Service: Task update denied", zap.String("uid", p.UID), zap.String("task_id", id))
		return nil, NewAuthorizationError("update this task")
	}

	updated := current.Clone()
	task.Apply(updated, opts...)
	updated.Description = strings.TrimSpace(updated.Description)

	if err := validateTask(updated); err != nil {
		return nil, err
	}
	if !s.rules.CanTransition(current.Status, updated.Status) {
		return nil, NewValidationError("status", "completed tasks cannot be reopened")
	}

	now := s.now()
	if updated.Status == task.StatusCompleted && updated.CompletedAt == nil {
		updated.CompletedAt = &now
	}
	updated.UpdatedAt = &now

	if err := s.tasks.Update(ctx, updated); err != nil {
		logger.Error("Service: Failed to update task", err, zap.String("task_id", id))
		return nil, fromStore("update task", ResourceTask, id, err)
	}
	return updated, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, p user.Principal, id string) error {
	if !p.Authenticated() {
		return NewAuthorizationError("delete tasks")
	}

	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return fromStore("load task", ResourceTask, id, err)
	}
	if !policy.CanMutateTask(p, t) {
		logger.Warn("Service: Task deletion denied", zap.String("uid", p.UID), zap.String("task_id", id))
		return NewAuthorizationError("delete this task")
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		logger.Error("Service: Failed to delete task", err, zap.String("task_id", id))
		return fromStore("delete task", ResourceTask, id, err)
	}

	logger.Info("Service: Task deleted", zap.String("task_id", id), zap.String("by", p.UID))
	return nil
}

// ReassignTask hands a task to another user. Admin only.
func (s *TaskService) ReassignTask(ctx context.Context, p user.Principal, id, newOwner string) (*task.Task, error) {
	if !policy.CanManageUsers(p) {
		return nil, NewAuthorizationError("reassign tasks")
	}
	newOwner = strings.TrimSpace(newOwner)
	if newOwner == "" {
		return nil, NewValidationError("user_id", "must not be empty")
	}

	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, fromStore("load task", ResourceTask, id, err)
	}
	if err := s.requireLiveUser(ctx, newOwner); err != nil {
		return nil, err
	}

	now := s.now()
	previous := t.CreatedBy
	t.CreatedBy = newOwner
	t.AssignedBy = p.UID
	t.UpdatedAt = &now

	if err := s.tasks.Update(ctx, t); err != nil {
		logger.Error("Service: Failed to reassign task", err, zap.String("task_id", id))
		return nil, fromStore("reassign task", ResourceTask, id, err)
	}

	logger.Info("Service: Task reassigned",
		zap.String("task_id", id),
		zap.String("from", previous),
		zap.String("to", newOwner),
		zap.String("by", p.UID))
	return t, nil
}

func (s *TaskService) ListAllTasksWithCreatorInfo(ctx context.Context, p user.Principal) ([]view.TaskView, error) {
	if !p.IsAdmin() {
		return nil, NewAuthorizationError("list all tasks")
	}

	tasks, err := s.tasks.ListAll(ctx)
	if err != nil {
		return nil, NewUpstreamError(storeKind(err), "list all tasks", err)
	}
	return s.composer.Compose(ctx, tasks), nil
}

func (s *TaskService) ListProjectTasksWithCreatorInfo(ctx context.Context, p user.Principal, projectID string) ([]view.TaskView, error) {
	tasks, err := s.ListTasksForProject(ctx, p, projectID)
	if err != nil {
		return nil, err
	}
	return s.composer.Compose(ctx, tasks), nil
}

func (s *TaskService) requireLiveUser(ctx context.Context, uid string) error {
	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return fromStore("load user", ResourceUser, uid, err)
	}
	if u.Deleted {
		return NewNotFound(ResourceUser, uid)
	}
	return nil
}

func (s *TaskService) projectTitle(ctx context.Context, id string) (string, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Title, nil
}

func (s *TaskService) userEmail(ctx context.Context, id string) (string, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

func validateTask(t *task.Task) error {
	if t.Description == "" {
		return NewValidationError("description", "must not be empty")
	}
	if t.Duration <= 0 {
		return NewValidationError("duration", "must be a positive number of minutes")
	}
	if !t.Status.Valid() {
		return NewValidationError("status", "must be one of pending, in_progress, completed")
	}
	return nil
}
