package models

// BasicResponse is the generic status payload for the ops API.
type BasicResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"` // "success" or "error"
}

// SearchDebugRequest is the ops API payload for a raw semantic search.
type SearchDebugRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchDebugResponse carries raw matches back to the operator.
type SearchDebugResponse struct {
	Query   string        `json:"query"`
	Matches []SearchMatch `json:"matches"`
	Status  string        `json:"status"`
}
