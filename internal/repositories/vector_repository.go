package repositories

import (
	"context"
)

// VectorRepository defines the interface for catalog index operations.
// This abstracts ChromaDB and allows for easy testing and implementation swapping.
type VectorRepository interface {
	// Index lifecycle
	EnsureCollection(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error

	// Document operations
	StoreDocuments(ctx context.Context, docs []*CatalogDocument) error
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]*SearchResult, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// CatalogDocument is one indexable catalog item: the derived search text,
// its embedding, and the denormalized display metadata attached so a search
// hit can be rendered without a second corpus read.
type CatalogDocument struct {
	ID         string                 `json:"id"`
	SearchText string                 `json:"search_text"`
	Embedding  []float32              `json:"embedding"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// SearchResult represents a single result from vector similarity search
type SearchResult struct {
	ItemID   string                 `json:"item_id"`
	Text     string                 `json:"text"`
	Score    float32                `json:"score"` // Similarity score (0-1, higher is better)
	Distance float32                `json:"distance"`
	Metadata map[string]interface{} `json:"metadata"`
}

// VectorRepositoryError represents errors from the vector repository
type VectorRepositoryError struct {
	Operation string
	Err       error
	Message   string
}

func (e *VectorRepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Operation + ": " + e.Err.Error()
	}
	return e.Operation + ": unknown error"
}

func (e *VectorRepositoryError) Unwrap() error {
	return e.Err
}

// NewVectorRepositoryError creates a new vector repository error
func NewVectorRepositoryError(operation string, err error, message string) *VectorRepositoryError {
	return &VectorRepositoryError{
		Operation: operation,
		Err:       err,
		Message:   message,
	}
}
