package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"helpbot/internal/models"
	"helpbot/internal/services"
)

// SearchHandler exposes the semantic search pipeline for debugging.
type SearchHandler struct {
	searchService *services.SearchService
	logger        *log.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searchService *services.SearchService, logger *log.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// Search runs a catalog query through the same path the bot uses.
// @Summary Debug search
// @Description Perform vector similarity search over the service catalog
// @Tags search
// @Accept json
// @Produce json
// @Param query body models.SearchDebugRequest true "Search request"
// @Success 200 {object} models.SearchDebugResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/search [post]
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	h.logger.Printf("Debug search request from %s", r.RemoteAddr)

	var reqBody models.SearchDebugRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		h.logger.Printf("Failed to decode request: %v", err)
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if reqBody.Query == "" {
		h.sendError(w, http.StatusBadRequest, "Field 'query' is required")
		return
	}

	limit := reqBody.Limit
	if limit <= 0 {
		limit = services.DefaultSearchLimit
	}

	matches := h.searchService.Search(r.Context(), reqBody.Query, limit)
	h.sendJSON(w, http.StatusOK, models.SearchDebugResponse{
		Query:   reqBody.Query,
		Matches: matches,
		Status:  "success",
	})
}

// Rebuild drops and re-ingests the catalog index.
// @Summary Rebuild index
// @Description Delete the vector collection and re-embed the whole catalog
// @Tags search
// @Produce json
// @Success 200 {object} models.BasicResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/index/rebuild [post]
func (h *SearchHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	h.logger.Printf("Index rebuild request from %s", r.RemoteAddr)

	if err := h.searchService.Rebuild(r.Context()); err != nil {
		h.logger.Printf("❌ Index rebuild failed: %v", err)
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, models.BasicResponse{
		Message: "Catalog index rebuilt",
		Status:  "success",
	})
}

func (h *SearchHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *SearchHandler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}
