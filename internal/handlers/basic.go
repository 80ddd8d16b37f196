package handlers

import (
	"encoding/json"
	"net/http"

	"helpbot/internal/models"
)

// HomeHandler describes the service.
// @Summary Service info
// @Description Returns a short description of the ops API
// @Tags ops
// @Produce json
// @Success 200 {object} models.BasicResponse
// @Router / [get]
func HomeHandler(w http.ResponseWriter, r *http.Request) {
	response := models.BasicResponse{
		Message: "Help Bot AI ops API",
		Status:  "success",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ErrorResponse is the shared error payload for ops endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}
