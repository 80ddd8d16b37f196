package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"helpbot/internal/repositories"
	"helpbot/internal/services"
)

// StatsHandler exposes telemetry and session aggregates.
type StatsHandler struct {
	telemetry *services.LLMTelemetry
	sessions  *repositories.SessionRepository
	logger    *log.Logger
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(telemetry *services.LLMTelemetry, sessions *repositories.SessionRepository, logger *log.Logger) *StatsHandler {
	return &StatsHandler{
		telemetry: telemetry,
		sessions:  sessions,
		logger:    logger,
	}
}

// LLMStats returns aggregated generation telemetry for a time window.
// @Summary LLM usage statistics
// @Description Aggregates the in-memory request telemetry over the given window
// @Tags stats
// @Produce json
// @Param hours query int false "Window in hours" default(24)
// @Success 200 {object} models.UsageStatistics
// @Success 204 "No requests recorded in the window"
// @Router /api/v1/stats/llm [get]
func (h *StatsHandler) LLMStats(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		if parsed, err := strconv.Atoi(hoursStr); err == nil && parsed > 0 {
			hours = parsed
		}
	}

	stats := h.telemetry.Statistics(hours)
	if stats == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.sendJSON(w, http.StatusOK, stats)
}

// SessionStats returns counts of live sessions grouped by dialog state.
// @Summary Session statistics
// @Description Counts live in-memory sessions by dialog state
// @Tags stats
// @Produce json
// @Success 200 {object} models.SessionStats
// @Router /api/v1/stats/sessions [get]
func (h *StatsHandler) SessionStats(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, h.sessions.Stats())
}

func (h *StatsHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}
