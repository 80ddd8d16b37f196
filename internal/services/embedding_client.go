package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EmbeddingClientInterface defines the interface for the embedding backend
type EmbeddingClientInterface interface {
	EmbedQuery(ctx context.Context, query string) (*EmbeddingResponse, error)
	EmbedBatch(ctx context.Context, texts []string) (*EmbedBatchResponse, error)
	HealthCheck(ctx context.Context) error
}

// EmbeddingClient handles communication with the embedding compute service.
// The embedding model stays resident in the backend process, so per-call
// latency is the HTTP round trip, not a model load.
type EmbeddingClient struct {
	baseURL    string
	httpClient *http.Client
	retries    int
}

// NewEmbeddingClient creates a new embedding client with default settings
func NewEmbeddingClient(baseURL string) *EmbeddingClient {
	return NewEmbeddingClientWithOptions(baseURL, 60*time.Second, 3)
}

// NewEmbeddingClientWithOptions creates a client with custom settings
func NewEmbeddingClientWithOptions(baseURL string, timeout time.Duration, retries int) *EmbeddingClient {
	return &EmbeddingClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retries: retries,
	}
}

// EmbeddingResponse represents the response from the embed/query endpoint
type EmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
	Dimension int       `json:"dimension"`
	Model     string    `json:"model"`
	Cached    bool      `json:"cached"`
}

// EmbedBatchResponse represents the response from the embed/batch endpoint
type EmbedBatchResponse struct {
	Embeddings      [][]float32 `json:"embeddings"`
	Dimension       int         `json:"dimension"`
	Model           string      `json:"model"`
	TotalEmbeddings int         `json:"total_embeddings"`
}

// EmbedQuery generates an embedding for a search query
func (c *EmbeddingClient) EmbedQuery(ctx context.Context, query string) (*EmbeddingResponse, error) {
	req := map[string]interface{}{
		"query": query,
	}

	resp, err := c.doRequest(ctx, "POST", "/embed/query", req)
	if err != nil {
		return nil, fmt.Errorf("embed query request failed: %w", err)
	}

	var result EmbeddingResponse
	if err := parseResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// EmbedBatch generates embeddings for multiple texts in one call
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) (*EmbedBatchResponse, error) {
	req := map[string]interface{}{
		"texts": texts,
	}

	resp, err := c.doRequest(ctx, "POST", "/embed/batch", req)
	if err != nil {
		return nil, fmt.Errorf("embed batch request failed: %w", err)
	}

	var result EmbedBatchResponse
	if err := parseResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// HealthCheck verifies the embedding backend is reachable
func (c *EmbeddingClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedding backend not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding backend returned status %d", resp.StatusCode)
	}

	return nil
}

// doRequest performs an HTTP request with retry logic
func (c *EmbeddingClient) doRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := time.Duration(attempt*attempt) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.makeRequest(ctx, method, endpoint, body)
		if err == nil && resp.StatusCode < 500 {
			// Success or client error (don't retry 4xx)
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("server error (status %d): %s", resp.StatusCode, string(respBody))
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.retries+1, lastErr)
}

func (c *EmbeddingClient) makeRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// parseResponse decodes a JSON response and closes the body
func parseResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
