package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"helpbot/internal/db"
)

// ChromaVectorRepository implements VectorRepository using ChromaDB.
// All documents live in a single collection, one per catalog item.
type ChromaVectorRepository struct {
	client     *db.ChromaDBClient
	collection string
}

// NewChromaVectorRepository creates a new ChromaDB-backed vector repository
func NewChromaVectorRepository(client *db.ChromaDBClient, collection string) VectorRepository {
	return &ChromaVectorRepository{
		client:     client,
		collection: collection,
	}
}

// EnsureCollection gets or creates the catalog collection
func (r *ChromaVectorRepository) EnsureCollection(ctx context.Context) error {
	_, err := r.client.EnsureCollection(ctx, r.collection, map[string]interface{}{
		"description": "Catalog of courses and services",
	})
	if err != nil {
		return NewVectorRepositoryError("ensure_collection", err, "failed to ensure collection: "+r.collection)
	}
	return nil
}

// Count returns the number of indexed catalog items
func (r *ChromaVectorRepository) Count(ctx context.Context) (int, error) {
	count, err := r.client.CountCollection(ctx, r.collection)
	if err != nil {
		return 0, NewVectorRepositoryError("count", err, "failed to count collection: "+r.collection)
	}
	return count, nil
}

// Reset drops and recreates the collection, discarding all indexed items
func (r *ChromaVectorRepository) Reset(ctx context.Context) error {
	if err := r.client.DeleteCollection(ctx, r.collection); err != nil {
		return NewVectorRepositoryError("reset", err, "failed to delete collection: "+r.collection)
	}
	return r.EnsureCollection(ctx)
}

// StoreDocuments stores catalog documents in the collection
func (r *ChromaVectorRepository) StoreDocuments(ctx context.Context, docs []*CatalogDocument) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, len(docs))
	documents := make([]string, len(docs))
	embeddings := make([][]float32, len(docs))
	metadatas := make([]map[string]interface{}, len(docs))

	for i, doc := range docs {
		ids[i] = doc.ID
		documents[i] = doc.SearchText
		embeddings[i] = doc.Embedding

		// ChromaDB only supports simple metadata types (string, int, float, bool).
		// Arrays and objects must be serialized to JSON strings.
		metadata := make(map[string]interface{}, len(doc.Metadata))
		for k, v := range doc.Metadata {
			switch val := v.(type) {
			case []string:
				if jsonBytes, err := json.Marshal(val); err == nil {
					metadata[k] = string(jsonBytes)
				}
			case []interface{}:
				if jsonBytes, err := json.Marshal(val); err == nil {
					metadata[k] = string(jsonBytes)
				}
			case map[string]interface{}:
				if jsonBytes, err := json.Marshal(val); err == nil {
					metadata[k] = string(jsonBytes)
				}
			default:
				metadata[k] = v
			}
		}
		metadatas[i] = metadata
	}

	err := r.client.AddDocuments(ctx, r.collection, ids, documents, embeddings, metadatas)
	if err != nil {
		return NewVectorRepositoryError("store_documents", err, fmt.Sprintf("failed to store %d documents", len(docs)))
	}

	return nil
}

// Search finds the topK most similar catalog items to the query embedding
func (r *ChromaVectorRepository) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]*SearchResult, error) {
	queryEmbeddings := [][]float32{queryEmbedding}
	results, err := r.client.Query(ctx, r.collection, queryEmbeddings, topK, nil)
	if err != nil {
		return nil, NewVectorRepositoryError("search", err, "query failed")
	}

	searchResults := make([]*SearchResult, 0)
	if len(results.IDs) > 0 && len(results.IDs[0]) > 0 {
		for i := 0; i < len(results.IDs[0]); i++ {
			metadata := make(map[string]interface{})
			if len(results.Metadatas) > 0 && len(results.Metadatas[0]) > i {
				metadata = results.Metadatas[0][i]
			}

			var text string
			if len(results.Documents) > 0 && len(results.Documents[0]) > i {
				text = results.Documents[0][i]
			}

			var distance float32
			if len(results.Distances) > 0 && len(results.Distances[0]) > i {
				distance = results.Distances[0][i]
			}

			// Similarity = 1 - distance for cosine space, clamped to [0,1]
			score := 1.0 - distance
			if score < 0 {
				score = 0
			}
			if score > 1 {
				score = 1
			}

			searchResults = append(searchResults, &SearchResult{
				ItemID:   results.IDs[0][i],
				Text:     text,
				Score:    score,
				Distance: distance,
				Metadata: metadata,
			})
		}
	}

	return searchResults, nil
}

// Ping checks if ChromaDB is alive
func (r *ChromaVectorRepository) Ping(ctx context.Context) error {
	err := r.client.Heartbeat(ctx)
	if err != nil {
		return NewVectorRepositoryError("ping", err, "ChromaDB heartbeat failed")
	}
	return nil
}

// Close closes the ChromaDB client
func (r *ChromaVectorRepository) Close() error {
	r.client.Close()
	return nil
}
