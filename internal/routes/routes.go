package routes

import (
	"net/http"

	"helpbot/internal/handlers"

	"github.com/gorilla/mux"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	Home          http.HandlerFunc
	HealthHandler *handlers.HealthHandler
	SearchHandler *handlers.SearchHandler
	StatsHandler  *handlers.StatsHandler
}

// RegisterRoutes sets up all ops API routes.
func RegisterRoutes(router *mux.Router, h *Handlers) {
	router.HandleFunc("/", h.Home).Methods(http.MethodGet)
	router.HandleFunc("/health", h.HealthHandler.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/search", h.SearchHandler.Search).Methods(http.MethodPost)
	api.HandleFunc("/index/rebuild", h.SearchHandler.Rebuild).Methods(http.MethodPost)
	api.HandleFunc("/stats/llm", h.StatsHandler.LLMStats).Methods(http.MethodGet)
	api.HandleFunc("/stats/sessions", h.StatsHandler.SessionStats).Methods(http.MethodGet)
}
