package app

import (
	"net/http"

	"teamTracker/internal/auth"
	"teamTracker/internal/handlers"
	"teamTracker/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (a *App) routes(h *handlers.Handler, verifier auth.TokenVerifier, resolver middleware.PrincipalResolver) http.Handler {
	srv := a.config.Server
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	if len(srv.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   srv.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if srv.RequestTimeout > 0 {
		r.Use(chimw.Timeout(srv.RequestTimeout))
	}
	if srv.RateLimit > 0 {
		r.Use(middleware.RateLimit(srv.RateLimit))
	}

	r.Get("/health", h.HealthCheck) // GET /health

	r.Post("/auth/register", h.Register) // POST /auth/register
	r.Post("/auth/login", h.Login)       // POST /auth/login

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(verifier, resolver))

		r.Post("/auth/logout", h.Logout) // POST /auth/logout
		r.Get("/me", h.Me)               // GET /me
		r.Post("/me/refresh", h.RefreshMe)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)   // GET /projects
			r.Post("/", h.CreateProject) // POST /projects

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetProject)
				r.Patch("/", h.UpdateProject)
				r.Delete("/", h.DeleteProject)

				r.Get("/tasks", h.ListProjectTasks)   // GET /projects/{id}/tasks?view=detailed
				r.Post("/tasks", h.CreateProjectTask) // POST /projects/{id}/tasks
			})
		})

		r.Route("/tasks/{id}", func(r chi.Router) {
			r.Get("/", h.GetTask)
			r.Patch("/", h.UpdateTask)
			r.Delete("/", h.DeleteTask)
			r.Post("/reassign", h.ReassignTask) // POST /tasks/{id}/reassign
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/tasks", h.ListAllTasks) // GET /admin/tasks
			r.Get("/users", h.ListUsers)    // GET /admin/users
			r.Put("/users/{id}/role", h.SetUserRole)
			r.Delete("/users/{id}", h.DeleteUser)
		})
	})

	return r
}
