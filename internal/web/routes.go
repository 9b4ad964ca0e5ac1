package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/nandhiniannika/online-voting/internal/web/handlers"
	"github.com/nandhiniannika/online-voting/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	identitiesHandler := handlers.NewIdentitiesHandler(s.deps.Enroller, s.deps.Store)
	verifyHandler := handlers.NewVerifyHandler(s.deps.Verifier, s.deps.Openers)
	sessionsHandler := handlers.NewSessionsHandler(s.deps.Verifier, s.deps.Openers, s.jobManager)
	healthHandler := handlers.NewHealthHandler(s.deps.Store)

	s.router.Get("/api/v1/health", healthHandler.Get)
	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics.Handler())
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		// Identities
		r.Get("/identities", identitiesHandler.List)
		r.With(middleware.RequireToken(s.deps.AdminToken)).Post("/identities", identitiesHandler.Enroll)

		// Blocking verification
		r.Post("/verify", verifyHandler.Verify)
		r.Post("/verify/image", verifyHandler.VerifyImage)

		// Async sessions
		r.Post("/sessions", sessionsHandler.Start)
		r.Get("/sessions/{id}", sessionsHandler.Status)
		r.Get("/sessions/{id}/events", sessionsHandler.Events)
		r.Delete("/sessions/{id}", sessionsHandler.Cancel)
	})
}
