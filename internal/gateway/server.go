package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	if g.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", g.deps.Metrics)
	}

	// API endpoints. Not mounted if no auth is configured.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.limiter, g.logger))
			r.Get("/status", g.handleStatus())
			r.Get("/ws/events", g.handleEvents())
			r.Route("/api", func(r chi.Router) {
				r.Get("/tasks", g.handleListTasks())
				r.Post("/tasks", g.handleCreateTask())
				r.Get("/history", g.handleHistory())
			})
		})
	}

	return r
}
