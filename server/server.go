// Package server exposes the application over HTTP: property CRUD,
// publishing, per-target settings, scraped imports, and the WebSocket
// endpoint the browser extension connects to.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"realestatesync/utils"
)

// Server wraps the HTTP server and its router.
type Server struct {
	httpServer *http.Server
	logger     *utils.Logger
}

// ExtensionSocket upgrades the extension's WebSocket connection. Nil when
// running in local relay mode, which has no socket endpoint.
type ExtensionSocket interface {
	HandleUpgrade(w http.ResponseWriter, r *http.Request)
}

// NewServer builds the router and returns a ready-to-start Server.
func NewServer(port string, jwtSecret string, allowedOrigins []string, h *Handlers, socket ExtensionSocket, logger *utils.Logger) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP, requestLogger(logger), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	auth := jwtAuth(logger, jwtSecret)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/targets", h.ListTargets)

		r.Get("/properties", h.ListProperties)
		r.Get("/properties/export", h.ExportCSV)
		r.Get("/properties/stats", h.DistributionStats)
		r.Get("/properties/{id}", h.GetProperty)

		r.Get("/settings", h.GetAllSettings)
		r.Get("/settings/{target}", h.GetTargetSettings)

		r.Get("/scraper-configs", h.ListScraperConfigs)

		// Mutating routes require a bearer token when a secret is set.
		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Post("/properties", h.CreateProperty)
			r.Put("/properties/{id}", h.UpdateProperty)
			r.Delete("/properties/{id}", h.DeleteProperty)
			r.Post("/properties/{id}/publish", h.PublishProperty)

			r.Put("/settings/{target}", h.PutTargetSettings)
			r.Post("/targets/{target}/test", h.TestTarget)

			r.Post("/import", h.ImportProperty)
			r.Post("/scraper-configs", h.SaveScraperConfig)
		})
	})

	if socket != nil {
		r.Get("/ws/extension", socket.HandleUpgrade)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:    ":" + port,
			Handler: r,
		},
		logger: logger,
	}
}

// Start runs the server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("[http] listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("[http] shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
