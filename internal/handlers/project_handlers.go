package handlers

import (
	"net/http"
	"time"

	"teamTracker/internal/handlers/dto"
	"teamTracker/internal/logger"
	"teamTracker/internal/middleware"

	"go.uber.org/zap"
)

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p := middleware.PrincipalFromContext(r.Context())

	projects, err := h.Projects.ListProjects(r.Context(), p)
	if err != nil {
		handleBusinessError(w, r, err, "list_projects")
		return
	}

	logOut("Projects listed", start, http.StatusOK, zap.Int("count", len(projects)))
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")
	p := middleware.PrincipalFromContext(r.Context())

	var request dto.CreateProjectRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	created, err := h.Projects.CreateProject(r.Context(), p, request.ToNewProject())
	if err != nil {
		handleBusinessError(w, r, err, "create_project")
		return
	}

	logOut("Project created", start, http.StatusCreated, zap.String("project_id", created.ID))
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	found, err := h.Projects.GetProject(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
	if err != nil {
		handleBusinessError(w, r, err, "get_project")
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request dto.UpdateProjectRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	updated, err := h.Projects.UpdateProject(r.Context(), middleware.PrincipalFromContext(r.Context()), id, request.Options()...)
	if err != nil {
		handleBusinessError(w, r, err, "update_project")
		return
	}

	logOut("Project updated", start, http.StatusOK, zap.String("project_id", id))
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Projects.DeleteProject(r.Context(), middleware.PrincipalFromContext(r.Context()), id); err != nil {
		handleBusinessError(w, r, err, "delete_project")
		return
	}

	logOut("Project deleted", start, http.StatusNoContent, zap.String("project_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// ListProjectTasks returns the caller's tasks in the project, or every task
// for admins. ?view=detailed adds project titles and user emails.
func (h *Handler) ListProjectTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p := middleware.PrincipalFromContext(r.Context())

	if r.URL.Query().Get("view") == "detailed" {
		views, err := h.Tasks.ListProjectTasksWithCreatorInfo(r.Context(), p, id)
		if err != nil {
			handleBusinessError(w, r, err, "list_project_tasks")
			return
		}
		logOut("Project tasks listed", start, http.StatusOK, zap.String("project_id", id), zap.Int("count", len(views)))
		writeJSON(w, http.StatusOK, views)
		return
	}

	tasks, err := h.Tasks.ListTasksForProject(r.Context(), p, id)
	if err != nil {
		handleBusinessError(w, r, err, "list_project_tasks")
		return
	}

	logOut("Project tasks listed", start, http.StatusOK, zap.String("project_id", id), zap.Int("count", len(tasks)))
	writeJSON(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (h *Handler) CreateProjectTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request dto.CreateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	created, err := h.Tasks.CreateTask(r.Context(), middleware.PrincipalFromContext(r.Context()), request.ToNewTask(id))
	if err != nil {
		handleBusinessError(w, r, err, "create_task")
		return
	}

	logOut("Task created", start, http.StatusCreated,
		zap.String("task_id", created.ID),
		zap.String("project_id", id))
	writeJSON(w, http.StatusCreated, dto.FromTask(created))
}
