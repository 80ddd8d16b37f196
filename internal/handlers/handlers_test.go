package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"helpbot/internal/models"
	"helpbot/internal/repositories"
	"helpbot/internal/services"
)

// ============================================================================
// Test Stubs
// ============================================================================

type stubVectorRepo struct {
	pingErr error
}

func (s *stubVectorRepo) EnsureCollection(ctx context.Context) error { return nil }
func (s *stubVectorRepo) Count(ctx context.Context) (int, error)    { return 0, nil }
func (s *stubVectorRepo) Reset(ctx context.Context) error           { return nil }
func (s *stubVectorRepo) StoreDocuments(ctx context.Context, docs []*repositories.CatalogDocument) error {
	return nil
}
func (s *stubVectorRepo) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]*repositories.SearchResult, error) {
	return nil, nil
}
func (s *stubVectorRepo) Ping(ctx context.Context) error { return s.pingErr }
func (s *stubVectorRepo) Close() error                   { return nil }

type stubEmbedder struct {
	healthErr error
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, query string) (*services.EmbeddingResponse, error) {
	return nil, errors.New("not implemented")
}
func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) (*services.EmbedBatchResponse, error) {
	return nil, errors.New("not implemented")
}
func (s *stubEmbedder) HealthCheck(ctx context.Context) error { return s.healthErr }

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// ============================================================================
// Home Handler Tests
// ============================================================================

func TestHomeHandler(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	HomeHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var resp models.BasicResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("Expected status 'success', got %s", resp.Status)
	}
}

// ============================================================================
// Health Handler Tests
// ============================================================================

func TestHealthAllUp(t *testing.T) {
	handler := NewHealthHandler(&stubVectorRepo{}, &stubEmbedder{}, testLogger())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got %s", resp.Status)
	}
	if resp.Components["chromadb"] != "up" || resp.Components["embedding_service"] != "up" {
		t.Errorf("Expected all components up, got %v", resp.Components)
	}
}

func TestHealthChromaDown(t *testing.T) {
	handler := NewHealthHandler(
		&stubVectorRepo{pingErr: errors.New("connection refused")},
		&stubEmbedder{},
		testLogger(),
	)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.Health(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("Expected status 'degraded', got %s", resp.Status)
	}
	if resp.Components["chromadb"] != "down" {
		t.Errorf("Expected chromadb down, got %v", resp.Components)
	}
	if resp.Components["embedding_service"] != "up" {
		t.Errorf("Expected embedding_service up, got %v", resp.Components)
	}
}

func TestHealthEmbedderDown(t *testing.T) {
	handler := NewHealthHandler(
		&stubVectorRepo{},
		&stubEmbedder{healthErr: errors.New("timeout")},
		testLogger(),
	)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.Health(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rec.Code)
	}
}

// ============================================================================
// Search Handler Tests
// ============================================================================

func TestSearchInvalidBody(t *testing.T) {
	handler := NewSearchHandler(nil, testLogger())

	req := httptest.NewRequest("POST", "/api/v1/search", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	handler.Search(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != http.StatusBadRequest {
		t.Errorf("Expected error status 400, got %d", resp.Status)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	handler := NewSearchHandler(nil, testLogger())

	body, _ := json.Marshal(models.SearchDebugRequest{Limit: 5})
	req := httptest.NewRequest("POST", "/api/v1/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Search(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Message != "Field 'query' is required" {
		t.Errorf("Unexpected error message: %s", resp.Message)
	}
}

// ============================================================================
// Stats Handler Tests
// ============================================================================

func TestLLMStatsNoData(t *testing.T) {
	telemetry := services.NewLLMTelemetry(testLogger())
	sessions := repositories.NewSessionRepository(testLogger())
	handler := NewStatsHandler(telemetry, sessions, testLogger())

	req := httptest.NewRequest("GET", "/api/v1/stats/llm", nil)
	rec := httptest.NewRecorder()
	handler.LLMStats(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}
}

func TestSessionStats(t *testing.T) {
	telemetry := services.NewLLMTelemetry(testLogger())
	sessions := repositories.NewSessionRepository(testLogger())
	sessions.Append("user-1", "user", "hello")
	handler := NewStatsHandler(telemetry, sessions, testLogger())

	req := httptest.NewRequest("GET", "/api/v1/stats/sessions", nil)
	rec := httptest.NewRecorder()
	handler.SessionStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var resp models.SessionStats
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.TotalSessions != 1 {
		t.Errorf("Expected 1 session, got %d", resp.TotalSessions)
	}
}
