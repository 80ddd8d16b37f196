package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"helpbot/internal/models"
)

const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel      = "qwen/qwen3-14b:free"

	// generateTimeout is the hard cap on one generation call. There is no
	// retry: the fallback ladder answers instead.
	generateTimeout = 30 * time.Second

	// historyLimit caps how many recent transcript turns reach the prompt.
	historyLimit = 5

	temperature = 0.7
	maxTokens   = 800
	topP        = 0.9
)

// Fixed degradation messages. Each failure class has its own text so
// operators can tell failure modes apart from user reports alone.
const (
	UpstreamErrorMessage = "😔 Sorry, my AI assistant is having technical problems right now. " +
		"I can put you in touch with our manager for a consultation."
	TimeoutMessage = "⏰ Sorry, the request is taking too long. " +
		"Try rephrasing your question, or reach out to our manager."
	UnexpectedErrorMessage = "😔 Sorry, a technical error occurred. " +
		"Please contact our manager for assistance."
)

// fallbackSystemPrompt is used when the prompt template file is missing or
// empty.
const fallbackSystemPrompt = "You are a consultant for the Drone Academy. " +
	"You help clients choose suitable courses and services. " +
	"Be friendly and professional. " +
	"Only answer questions about our drone services."

// GenerationResult is the tagged outcome of a generation attempt. Generate
// never fails: Degraded marks a canned message, with Reason naming the
// failure class that produced it.
type GenerationResult struct {
	Text     string
	Degraded bool
	Reason   string
}

// chatCompletionRequest is the OpenRouter chat-completions payload
type chatCompletionRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	TopP        float64              `json:"top_p"`
}

// chatCompletionResponse is the OpenRouter chat-completions response
type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage models.TokenUsage `json:"usage"`
}

// providerError is the error envelope OpenRouter returns on failures
type providerError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// LLMService generates consultation replies through the OpenRouter API,
// degrading to fixed apology messages when the provider fails.
type LLMService struct {
	baseURL      string
	apiKey       string
	model        string
	systemPrompt string
	httpClient   *http.Client
	telemetry    *LLMTelemetry
	logger       *log.Logger
}

// NewLLMService creates a new LLM service instance. The system prompt is
// loaded once from promptPath; a missing or empty template falls back to a
// built-in prompt.
func NewLLMService(apiKey, model, promptPath string, telemetry *LLMTelemetry, logger *log.Logger) *LLMService {
	if model == "" {
		model = DefaultModel
	}

	s := &LLMService{
		baseURL: OpenRouterBaseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: generateTimeout,
		},
		telemetry: telemetry,
		logger:    logger,
	}
	s.systemPrompt = s.loadSystemPrompt(promptPath)

	logger.Printf("🤖 LLM client initialized. Model: %s", s.model)
	logger.Printf("📝 System prompt loaded (%d chars)", len(s.systemPrompt))

	return s
}

func (s *LLMService) loadSystemPrompt(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Printf("❌ Failed to read system prompt %s: %v", path, err)
		return fallbackSystemPrompt
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		s.logger.Printf("❌ System prompt file %s is empty", path)
		return fallbackSystemPrompt
	}

	return prompt
}

// Generate produces a reply for userMessage, conditioned on the retrieved
// catalog context and the recent history. It never returns an error: every
// failure class maps to a fixed user-facing message, and every attempt —
// success or failure — is recorded in telemetry before returning.
func (s *LLMService) Generate(ctx context.Context, userMessage, retrievedContext string, history []models.ChatMessage, userID string) GenerationResult {
	systemPrompt := s.systemPrompt
	if strings.TrimSpace(retrievedContext) != "" {
		systemPrompt += "\n\nAVAILABLE SERVICES:\n" + retrievedContext
	}

	messages := make([]models.ChatMessage, 0, len(history)+2)
	messages = append(messages, models.ChatMessage{Role: "system", Content: systemPrompt})

	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	messages = append(messages, history...)
	messages = append(messages, models.ChatMessage{Role: "user", Content: userMessage})

	token := s.telemetry.Begin(userID, s.model, messages, retrievedContext, history)

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	response, status, body, err := s.complete(ctx, messages)
	if err != nil {
		if isTimeout(err) {
			s.telemetry.RecordError(token, ErrorKindTimeout, "generation timed out")
			return GenerationResult{Text: TimeoutMessage, Degraded: true, Reason: ErrorKindTimeout}
		}

		s.telemetry.RecordError(token, ErrorKindUnexpected, fmt.Sprintf("%T: %v", err, err))
		return GenerationResult{Text: UnexpectedErrorMessage, Degraded: true, Reason: ErrorKindUnexpected}
	}

	if status != http.StatusOK {
		detail := upstreamDetail(body)
		s.telemetry.RecordError(token, ErrorKindUpstream, fmt.Sprintf("HTTP %d: %s", status, detail))
		return GenerationResult{Text: UpstreamErrorMessage, Degraded: true, Reason: ErrorKindUpstream}
	}

	if len(response.Choices) == 0 {
		s.telemetry.RecordError(token, ErrorKindUpstream, "provider returned no choices")
		return GenerationResult{Text: UpstreamErrorMessage, Degraded: true, Reason: ErrorKindUpstream}
	}

	text := strings.TrimSpace(response.Choices[0].Message.Content)
	s.telemetry.RecordSuccess(token, response.Usage, text)

	return GenerationResult{Text: text}
}

// complete runs one chat-completion call. A non-2xx status is returned with
// the raw body so the caller can classify it; only transport-level problems
// come back as errors.
func (s *LLMService) complete(ctx context.Context, messages []models.ChatMessage) (*chatCompletionResponse, int, []byte, error) {
	payload := chatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopP:        topP,
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "https://help-bot-ai.local")
	req.Header.Set("X-Title", "Help Bot AI - Drone Academy Consultant")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, body, nil
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, 0, nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &completion, resp.StatusCode, body, nil
}

// upstreamDetail extracts the provider-reported error message, falling back
// to the raw body.
func upstreamDetail(body []byte) string {
	var envelope providerError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return string(body)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout()
	}
	return false
}
