package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"helpbot/internal/repositories"
	"helpbot/internal/services"
)

// HealthHandler reports liveness of the bot's upstream dependencies.
type HealthHandler struct {
	vectorRepo repositories.VectorRepository
	embedder   services.EmbeddingClientInterface
	logger     *log.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(vectorRepo repositories.VectorRepository, embedder services.EmbeddingClientInterface, logger *log.Logger) *HealthHandler {
	return &HealthHandler{
		vectorRepo: vectorRepo,
		embedder:   embedder,
		logger:     logger,
	}
}

// HealthResponse is the aggregated component health report.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Health checks ChromaDB and the embedding service.
// @Summary Health check
// @Description Reports the health of the vector store and embedding service
// @Tags ops
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{
		"chromadb":          "up",
		"embedding_service": "up",
	}
	status := "healthy"
	code := http.StatusOK

	if err := h.vectorRepo.Ping(r.Context()); err != nil {
		h.logger.Printf("⚠️  ChromaDB health check failed: %v", err)
		components["chromadb"] = "down"
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	if err := h.embedder.HealthCheck(r.Context()); err != nil {
		h.logger.Printf("⚠️  Embedding service health check failed: %v", err)
		components["embedding_service"] = "down"
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(HealthResponse{Status: status, Components: components}); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}
