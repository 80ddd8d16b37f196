package services

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpbot/internal/models"
)

// ============================================================================
// Test Helpers
// ============================================================================

func writeTestPrompt(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "system_prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func setupTestLLMService(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *LLMService, *LLMTelemetry) {
	t.Helper()
	server := httptest.NewServer(handler)

	logger := log.New(io.Discard, "", 0)
	telemetry := NewLLMTelemetry(logger)
	service := NewLLMService("test-key", "test-model", writeTestPrompt(t, "You are a test consultant."), telemetry, logger)
	service.baseURL = server.URL

	return server, service, telemetry
}

func completionHandler(t *testing.T, content string, capture *chatCompletionRequest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Fatalf("Failed to decode request: %v", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "gen-1",
			"model": "test-model",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 50, "completion_tokens": 20, "total_tokens": 70},
		})
	}
}

// ============================================================================
// Generation Tests
// ============================================================================

func TestGenerateSuccess(t *testing.T) {
	var captured chatCompletionRequest
	var authHeader string

	server, service, telemetry := setupTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		completionHandler(t, "  Here is our FPV course.  ", &captured)(w, r)
	})
	defer server.Close()

	result := service.Generate(context.Background(), "tell me about FPV", "", nil, "user-1")

	assert.False(t, result.Degraded)
	assert.Empty(t, result.Reason)
	assert.Equal(t, "Here is our FPV course.", result.Text)

	assert.Equal(t, "Bearer test-key", authHeader)
	assert.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "You are a test consultant.", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "tell me about FPV", captured.Messages[1].Content)

	stats := telemetry.Statistics(24)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.SuccessfulRequests)
	assert.Equal(t, 70, stats.TotalTokensUsed)
}

func TestGenerateAppendsRetrievedContext(t *testing.T) {
	var captured chatCompletionRequest

	server, service, _ := setupTestLLMService(t, completionHandler(t, "ok", &captured))
	defer server.Close()

	service.Generate(context.Background(), "question", "1. FPV Racing — category: Courses\n", nil, "user-1")

	require.NotEmpty(t, captured.Messages)
	assert.Contains(t, captured.Messages[0].Content, "AVAILABLE SERVICES:")
	assert.Contains(t, captured.Messages[0].Content, "FPV Racing")
}

func TestGenerateBlankContextOmitted(t *testing.T) {
	var captured chatCompletionRequest

	server, service, _ := setupTestLLMService(t, completionHandler(t, "ok", &captured))
	defer server.Close()

	service.Generate(context.Background(), "question", "   \n", nil, "user-1")

	require.NotEmpty(t, captured.Messages)
	assert.NotContains(t, captured.Messages[0].Content, "AVAILABLE SERVICES:")
}

func TestGenerateTruncatesHistory(t *testing.T) {
	var captured chatCompletionRequest

	server, service, _ := setupTestLLMService(t, completionHandler(t, "ok", &captured))
	defer server.Close()

	history := make([]models.ChatMessage, 8)
	for i := range history {
		history[i] = models.ChatMessage{Role: "user", Content: "turn " + string(rune('a'+i))}
	}

	service.Generate(context.Background(), "latest question", "", history, "user-1")

	// system + last 5 history turns + current message
	require.Len(t, captured.Messages, 7)
	assert.Equal(t, "turn d", captured.Messages[1].Content)
	assert.Equal(t, "turn h", captured.Messages[5].Content)
	assert.Equal(t, "latest question", captured.Messages[6].Content)
}

// ============================================================================
// Degradation Tests
// ============================================================================

func TestGenerateUpstreamError(t *testing.T) {
	server, service, telemetry := setupTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "provider overloaded"},
		})
	})
	defer server.Close()

	result := service.Generate(context.Background(), "question", "", nil, "user-1")

	assert.True(t, result.Degraded)
	assert.Equal(t, ErrorKindUpstream, result.Reason)
	assert.Equal(t, UpstreamErrorMessage, result.Text)

	telemetry.mu.Lock()
	metric := telemetry.metrics[0]
	telemetry.mu.Unlock()
	assert.Equal(t, ErrorKindUpstream, metric.ErrorKind)
	assert.Contains(t, metric.ErrorMessage, "HTTP 500")
	assert.Contains(t, metric.ErrorMessage, "provider overloaded")
}

func TestGenerateNoChoices(t *testing.T) {
	server, service, _ := setupTestLLMService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "gen-1",
			"choices": []interface{}{},
		})
	})
	defer server.Close()

	result := service.Generate(context.Background(), "question", "", nil, "user-1")

	assert.True(t, result.Degraded)
	assert.Equal(t, ErrorKindUpstream, result.Reason)
	assert.Equal(t, UpstreamErrorMessage, result.Text)
}

func TestGenerateTimeout(t *testing.T) {
	server, service, telemetry := setupTestLLMService(t, completionHandler(t, "too late", nil))
	defer server.Close()

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	result := service.Generate(ctx, "question", "", nil, "user-1")

	assert.True(t, result.Degraded)
	assert.Equal(t, ErrorKindTimeout, result.Reason)
	assert.Equal(t, TimeoutMessage, result.Text)

	telemetry.mu.Lock()
	metric := telemetry.metrics[0]
	telemetry.mu.Unlock()
	assert.Equal(t, ErrorKindTimeout, metric.ErrorKind)
}

func TestGenerateTransportError(t *testing.T) {
	server, service, _ := setupTestLLMService(t, completionHandler(t, "unreachable", nil))
	server.Close()

	result := service.Generate(context.Background(), "question", "", nil, "user-1")

	assert.True(t, result.Degraded)
	assert.Equal(t, ErrorKindUnexpected, result.Reason)
	assert.Equal(t, UnexpectedErrorMessage, result.Text)
}

// ============================================================================
// Prompt Loading Tests
// ============================================================================

func TestLoadSystemPromptFallback(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	telemetry := NewLLMTelemetry(logger)

	service := NewLLMService("test-key", "", "does/not/exist.txt", telemetry, logger)

	assert.Equal(t, fallbackSystemPrompt, service.systemPrompt)
	assert.Equal(t, DefaultModel, service.model)
}

func TestLoadSystemPromptEmptyFile(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	telemetry := NewLLMTelemetry(logger)

	service := NewLLMService("test-key", "test-model", writeTestPrompt(t, "   \n"), telemetry, logger)

	assert.Equal(t, fallbackSystemPrompt, service.systemPrompt)
}

func TestLoadSystemPromptTrimmed(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	telemetry := NewLLMTelemetry(logger)

	service := NewLLMService("test-key", "test-model", writeTestPrompt(t, "\nBe helpful.\n\n"), telemetry, logger)

	assert.Equal(t, "Be helpful.", service.systemPrompt)
}
