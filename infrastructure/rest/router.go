// Package rest serves the history interface read by clients when they open a
// conversation, plus the operational endpoints.
package rest

import (
	"log/slog"
	"net/http"

	"skillxchange/observability"
	"skillxchange/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps groups what NewRouter needs.
type RouterDeps struct {
	Log          *slog.Logger
	Verifier     Verifier
	ChatService  services.IChatService
	Gatherer     prometheus.Gatherer
	HistoryLimit int
}

// NewRouter builds the HTTP API.
//
//	GET  /healthz
//	GET  /metrics
//	GET  /api/conversations
//	GET  /api/conversations/{counterpartId}/messages?cursor=&limit=
//	POST /api/conversations/{counterpartId}/read
//	GET  /api/conversations/{counterpartId}/search?q=&limit=
//	GET  /api/presence/{userId}
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(NewLoggingMiddleware(deps.Log))

	h := NewHandler(deps.Log, deps.ChatService, deps.HistoryLimit)

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", observability.Handler(deps.Gatherer))

	r.Group(func(r chi.Router) {
		r.Use(NewAuthMiddleware(deps.Log, deps.Verifier))

		r.Route("/api/conversations", func(r chi.Router) {
			r.Get("/", h.Conversations)
			r.Route("/{counterpartId}", func(r chi.Router) {
				r.Get("/messages", h.History)
				r.Post("/read", h.MarkRead)
				r.Get("/search", h.Search)
			})
		})
		r.Get("/api/presence/{userId}", h.Presence)
	})
	return r
}
