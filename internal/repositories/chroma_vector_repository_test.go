package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"helpbot/internal/db"
)

// newFakeChromaRepo points a repository at an httptest ChromaDB stand-in.
func newFakeChromaRepo(t *testing.T, handler http.Handler) VectorRepository {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}

	client := db.NewChromaDBClient(db.ChromaDBConfig{
		Host: u.Hostname(),
		Port: port,
	})
	return NewChromaVectorRepository(client, "services_catalog")
}

func collectionHandler(mux *http.ServeMux) {
	mux.HandleFunc("/api/v2/tenants/default_tenant/databases/default_database/collections/services_catalog",
		func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(db.Collection{ID: "col-1", Name: "services_catalog"})
		})
}

func TestChromaVectorRepository_SearchScoreClamping(t *testing.T) {
	mux := http.NewServeMux()
	collectionHandler(mux)
	mux.HandleFunc("/api/v2/tenants/default_tenant/databases/default_database/collections/col-1/query",
		func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(db.QueryResponse{
				IDs:       [][]string{{"a", "b", "c"}},
				Documents: [][]string{{"doc a", "doc b", "doc c"}},
				Metadatas: [][]map[string]interface{}{{
					{"name": "A"}, {"name": "B"}, {"name": "C"},
				}},
				Distances: [][]float32{{0.25, 1.6, -0.2}},
			})
		})

	repo := newFakeChromaRepo(t, mux)
	results, err := repo.Search(context.Background(), []float32{0.1, 0.2}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	// similarity = 1 - distance, clamped to [0,1]
	if results[0].Score != 0.75 {
		t.Errorf("Expected score 0.75, got %f", results[0].Score)
	}
	if results[1].Score != 0 {
		t.Errorf("Expected score clamped to 0, got %f", results[1].Score)
	}
	if results[2].Score != 1 {
		t.Errorf("Expected score clamped to 1, got %f", results[2].Score)
	}

	if results[0].ItemID != "a" || results[0].Text != "doc a" {
		t.Errorf("Result fields mismatched: %+v", results[0])
	}
	if results[0].Metadata["name"] != "A" {
		t.Errorf("Metadata not carried through: %v", results[0].Metadata)
	}
}

func TestChromaVectorRepository_StoreDocuments_EncodesComplexMetadata(t *testing.T) {
	var captured struct {
		Metadatas []map[string]interface{} `json:"metadatas"`
	}

	mux := http.NewServeMux()
	collectionHandler(mux)
	mux.HandleFunc("/api/v2/tenants/default_tenant/databases/default_database/collections/col-1/add",
		func(w http.ResponseWriter, r *http.Request) {
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
		})

	repo := newFakeChromaRepo(t, mux)
	err := repo.StoreDocuments(context.Background(), []*CatalogDocument{
		{
			ID:         "course-basic",
			SearchText: "Basic Drone Piloting Course",
			Embedding:  []float32{0.1, 0.2},
			Metadata: map[string]interface{}{
				"name":     "Basic Drone Piloting Course",
				"keywords": []string{"drone", "piloting"},
			},
		},
	})
	if err != nil {
		t.Fatalf("StoreDocuments failed: %v", err)
	}

	if len(captured.Metadatas) != 1 {
		t.Fatalf("Expected 1 metadata entry, got %d", len(captured.Metadatas))
	}

	// Arrays must be serialized to JSON strings for ChromaDB
	keywords, ok := captured.Metadatas[0]["keywords"].(string)
	if !ok {
		t.Fatalf("Expected keywords as JSON string, got %T", captured.Metadatas[0]["keywords"])
	}
	if keywords != `["drone","piloting"]` {
		t.Errorf("Unexpected keywords encoding: %s", keywords)
	}

	if captured.Metadatas[0]["name"] != "Basic Drone Piloting Course" {
		t.Errorf("Plain string metadata must pass through unchanged")
	}
}

func TestChromaVectorRepository_StoreDocuments_Empty(t *testing.T) {
	// No server: an empty batch must not make any HTTP call
	client := db.NewChromaDBClient(db.ChromaDBConfig{Host: "localhost", Port: 1})
	repo := NewChromaVectorRepository(client, "services_catalog")

	if err := repo.StoreDocuments(context.Background(), nil); err != nil {
		t.Fatalf("Expected nil error for empty batch, got %v", err)
	}
}

func TestChromaVectorRepository_PingWrapsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	repo := newFakeChromaRepo(t, mux)
	err := repo.Ping(context.Background())
	if err == nil {
		t.Fatal("Expected error from failing heartbeat")
	}

	var repoErr *VectorRepositoryError
	if !errors.As(err, &repoErr) {
		t.Fatalf("Expected VectorRepositoryError, got %T", err)
	}
	if repoErr.Operation != "ping" {
		t.Errorf("Expected operation 'ping', got %q", repoErr.Operation)
	}
}

func TestVectorRepositoryError_Error(t *testing.T) {
	inner := errors.New("boom")

	withMessage := NewVectorRepositoryError("search", inner, "query failed")
	if withMessage.Error() != "query failed" {
		t.Errorf("Expected message to win, got %q", withMessage.Error())
	}

	withoutMessage := NewVectorRepositoryError("search", inner, "")
	if !strings.Contains(withoutMessage.Error(), "boom") {
		t.Errorf("Expected wrapped error text, got %q", withoutMessage.Error())
	}

	if !errors.Is(withMessage, inner) {
		t.Error("Unwrap must expose the inner error")
	}
}
