package dto

import (
	"time"

	"teamTracker/internal/models/project"
	"teamTracker/internal/models/task"
	"teamTracker/internal/service"
)

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateProjectRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      project.Status `json:"status,omitempty"`
}

func (r CreateProjectRequest) ToNewProject() service.NewProject {
	return service.NewProject{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
	}
}

// UpdateProjectRequest carries a partial update; absent fields stay as they are.
type UpdateProjectRequest struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Status      *project.Status `json:"status,omitempty"`
}

func (r UpdateProjectRequest) Options() []project.Option {
	var opts []project.Option
	if r.Title != nil {
		opts = append(opts, project.WithTitle(*r.Title))
	}
	if r.Description != nil {
		opts = append(opts, project.WithDescription(*r.Description))
	}
	if r.Status != nil {
		opts = append(opts, project.WithStatus(*r.Status))
	}
	return opts
}

type CreateTaskRequest struct {
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	// AssigneeID creates the task for another user. Admin only.
	AssigneeID string `json:"assignee_id,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

func (r CreateTaskRequest) ToNewTask(projectID string) service.NewTask {
	return service.NewTask{
		Description: r.Description,
		Duration:    r.Duration,
		ProjectID:   projectID,
		AssigneeID:  r.AssigneeID,
		Notes:       r.Notes,
	}
}

type UpdateTaskRequest struct {
	Description *string      `json:"description,omitempty"`
	Duration    *int         `json:"duration,omitempty"`
	Status      *task.Status `json:"status,omitempty"`
	Notes       *string      `json:"notes,omitempty"`
}

func (r UpdateTaskRequest) Options() []task.Option {
	var opts []task.Option
	if r.Description != nil {
		opts = append(opts, task.WithDescription(*r.Description))
	}
	if r.Duration != nil {
		opts = append(opts, task.WithDuration(*r.Duration))
	}
	if r.Status != nil {
		opts = append(opts, task.WithStatus(*r.Status))
	}
	if r.Notes != nil {
		opts = append(opts, task.WithNotes(*r.Notes))
	}
	return opts
}

type ReassignTaskRequest struct {
	UserID string `json:"user_id"`
}

type SetRoleRequest struct {
	Role string `json:"role"`
}

type TaskResponse struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Duration    int        `json:"duration"`
	Status      string     `json:"status"`
	ProjectID   string     `json:"project_id"`
	CreatedBy   string     `json:"created_by"`
	AssignedBy  string     `json:"assigned_by,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Orphaned    bool       `json:"orphaned,omitempty"`
	IsCompleted bool       `json:"is_completed"`
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Description: t.Description,
		Duration:    t.Duration,
		Status:      string(t.Status),
		ProjectID:   t.ProjectID,
		CreatedBy:   t.CreatedBy,
		AssignedBy:  t.AssignedBy,
		Notes:       t.Notes,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
		UpdatedAt:   t.UpdatedAt,
		Orphaned:    t.Orphaned,
		IsCompleted: t.Status == task.StatusCompleted,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}
