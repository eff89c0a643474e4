package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sungwon/message-relay/internal/auth"
	"github.com/sungwon/message-relay/internal/dispatcher"
	"github.com/sungwon/message-relay/internal/storage"
)

// Deps carries the collaborators the router wires into handlers.
type Deps struct {
	Dispatcher *dispatcher.Service
	Records    *storage.Queries
	DB         *storage.DB
	Auth       auth.Config
	Log        zerolog.Logger
}

// NewRouter creates a chi.Mux with all routes, middleware, and handlers
// configured.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(CorrelationIDMiddleware)
	r.Use(LoggingMiddleware(deps.Log))
	r.Use(MetricsMiddleware)
	r.Use(RecoverMiddleware(deps.Log))

	// Health endpoints (no auth required)
	r.Get("/healthz", HealthzHandler())
	r.Get("/readyz", ReadyzHandler(deps.DB))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(deps.Auth, deps.Log))

		r.Post("/messages", SubmitMessageHandler(deps.Dispatcher))
		r.Get("/messages", ListMessagesHandler(deps.Records))
		r.Get("/messages/{id}", GetMessageHandler(deps.Records))
	})

	return r
}
