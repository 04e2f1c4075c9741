package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds transport settings for NewRouter.
type RouterConfig struct {
	CORSOrigins []string
}

// NewRouter configures all API routes.
func NewRouter(h *Handlers, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", ActingUserHeader},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			// Registration is the only call without an acting user.
			r.Post("/", h.handleCreateUser)
			r.With(requireActingUser).Get("/", h.handleGetUserByEmail)
			r.With(requireActingUser).Get("/{id}", h.handleGetUser)
			r.With(requireActingUser).Put("/{id}", h.handleUpdateProfile)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireActingUser)

			r.Route("/contents", func(r chi.Router) {
				r.Post("/", h.handleCreateContent)
				r.Get("/", h.handleListContents)
				r.Post("/generate", h.handleGenerateContent)
				r.Post("/import", h.handleImportFeed)
				r.Get("/{id}", h.handleGetContent)
				r.Patch("/{id}", h.handleUpdateContent)
				r.Post("/{id}/ready", h.handleMarkReady)
				r.Post("/{id}/publish", h.handlePublishContent)
				r.Post("/{id}/archive", h.handleArchiveContent)
			})

			r.Route("/workflows", func(r chi.Router) {
				r.Post("/", h.handleCreateWorkflow)
				r.Get("/", h.handleListWorkflows)
				r.Get("/{id}", h.handleGetWorkflow)
				r.Post("/{id}/activate", h.handleActivateWorkflow)
				r.Post("/{id}/pause", h.handlePauseWorkflow)
				r.Post("/{id}/deactivate", h.handleDeactivateWorkflow)
				r.Post("/{id}/execute", h.handleExecuteWorkflow)
				r.Post("/{id}/error", h.handleMarkWorkflowError)
			})
		})
	})

	return r
}
