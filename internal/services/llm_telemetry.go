package services

import (
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"helpbot/internal/models"
)

const (
	// maxMetricsHistory bounds the telemetry ring buffer. Eviction is FIFO
	// regardless of metric age.
	maxMetricsHistory = 100

	slowResponseMs     = 10000
	highTokenThreshold = 3000

	maxErrorDetailChars = 200
)

// Error kinds recorded for failed generation attempts.
const (
	ErrorKindUpstream   = "upstream_error"
	ErrorKindTimeout    = "timeout"
	ErrorKindUnexpected = "unexpected_error"
)

// RequestToken carries the request shape captured at Begin forward to the
// matching RecordSuccess/RecordError call.
type RequestToken struct {
	startTime        time.Time
	timestamp        time.Time
	userID           string
	model            string
	messagesCount    int
	requestSizeChars int
	hasContext       bool
	hasHistory       bool
}

// LLMTelemetry records per-request generation metrics into a bounded
// rolling buffer and aggregates them into a statistics view.
type LLMTelemetry struct {
	mu      sync.Mutex
	metrics []models.RequestMetric
	logger  *log.Logger
}

// NewLLMTelemetry creates a telemetry recorder.
func NewLLMTelemetry(logger *log.Logger) *LLMTelemetry {
	logger.Println("📊 LLM telemetry initialized")
	return &LLMTelemetry{
		metrics: make([]models.RequestMetric, 0, maxMetricsHistory),
		logger:  logger,
	}
}

// Begin captures the static request shape and the start time, and emits a
// compact log line.
func (t *LLMTelemetry) Begin(userID, model string, messages []models.ChatMessage, contextBlock string, history []models.ChatMessage) *RequestToken {
	sizeChars := 0
	for _, msg := range messages {
		sizeChars += len(msg.Content)
	}

	token := &RequestToken{
		startTime:        time.Now(),
		timestamp:        time.Now(),
		userID:           userID,
		model:            model,
		messagesCount:    len(messages),
		requestSizeChars: sizeChars,
		hasContext:       strings.TrimSpace(contextBlock) != "",
		hasHistory:       len(history) > 0,
	}

	var shape []string
	if token.hasContext {
		shape = append(shape, "context")
	}
	if token.hasHistory {
		shape = append(shape, "history")
	}
	shapeInfo := ""
	if len(shape) > 0 {
		shapeInfo = " [" + strings.Join(shape, ",") + "]"
	}

	t.logger.Printf("📤 LLM request %s: %s, %d messages, %d chars%s",
		userID, model, token.messagesCount, token.requestSizeChars, shapeInfo)

	return token
}

// RecordSuccess appends a success metric and warns when the response was
// slow or token-hungry. Thresholds are advisory only.
func (t *LLMTelemetry) RecordSuccess(token *RequestToken, usage models.TokenUsage, responseText string) {
	elapsedMs := float64(time.Since(token.startTime)) / float64(time.Millisecond)

	t.append(models.RequestMetric{
		Timestamp:           token.timestamp,
		UserID:              token.userID,
		Model:               token.model,
		RequestSizeChars:    token.requestSizeChars,
		MessagesCount:       token.messagesCount,
		HasContext:          token.hasContext,
		HasHistory:          token.hasHistory,
		ResponseTimeMs:      elapsedMs,
		Success:             true,
		PromptTokens:        usage.PromptTokens,
		CompletionTokens:    usage.CompletionTokens,
		TotalTokens:         usage.TotalTokens,
		ResponseLengthChars: len(responseText),
	})

	t.logger.Printf("📥 LLM success %s: %.0fms, %d tokens, %d chars",
		token.userID, elapsedMs, usage.CompletionTokens, len(responseText))

	if elapsedMs > slowResponseMs {
		t.logger.Printf("🐌 Slow LLM response: %.1fms for %s", elapsedMs, token.userID)
	}

	if usage.TotalTokens > highTokenThreshold {
		t.logger.Printf("🔥 High token usage: %d for %s", usage.TotalTokens, token.userID)
	}
}

// RecordError appends a failure metric with the detail truncated to 200
// characters and zero token counts.
func (t *LLMTelemetry) RecordError(token *RequestToken, kind, detail string) {
	elapsedMs := float64(time.Since(token.startTime)) / float64(time.Millisecond)

	if len(detail) > maxErrorDetailChars {
		detail = detail[:maxErrorDetailChars]
	}

	t.append(models.RequestMetric{
		Timestamp:        token.timestamp,
		UserID:           token.userID,
		Model:            token.model,
		RequestSizeChars: token.requestSizeChars,
		MessagesCount:    token.messagesCount,
		HasContext:       token.hasContext,
		HasHistory:       token.hasHistory,
		ResponseTimeMs:   elapsedMs,
		Success:          false,
		ErrorKind:        kind,
		ErrorMessage:     detail,
	})

	t.logger.Printf("❌ LLM error %s: %s after %.0fms - %s", token.userID, kind, elapsedMs, detail)
}

func (t *LLMTelemetry) append(metric models.RequestMetric) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics = append(t.metrics, metric)
	if len(t.metrics) > maxMetricsHistory {
		t.metrics = t.metrics[len(t.metrics)-maxMetricsHistory:]
	}
}

// Statistics aggregates buffered metrics newer than now - windowHours.
// It returns nil — the explicit "no data" marker — when the buffer is empty
// or nothing falls inside the window. Note this is a filter over the last
// 100 requests regardless of age, not a true historical query.
func (t *LLMTelemetry) Statistics(windowHours int) *models.UsageStatistics {
	t.mu.Lock()
	buffered := make([]models.RequestMetric, len(t.metrics))
	copy(buffered, t.metrics)
	t.mu.Unlock()

	if len(buffered) == 0 {
		return nil
	}

	cutoff := time.Now().Add(-time.Duration(windowHours) * time.Hour)
	recent := make([]models.RequestMetric, 0, len(buffered))
	for _, metric := range buffered {
		if metric.Timestamp.After(cutoff) {
			recent = append(recent, metric)
		}
	}

	if len(recent) == 0 {
		return nil
	}

	stats := &models.UsageStatistics{
		PeriodHours:    windowHours,
		TotalRequests:  len(recent),
		ErrorBreakdown: make(map[string]int),
	}

	users := make(map[string]bool)
	var latencySum float64
	var tokenSum int
	successCount := 0

	for _, metric := range recent {
		users[metric.UserID] = true

		if metric.Success {
			successCount++
			latencySum += metric.ResponseTimeMs
			tokenSum += metric.TotalTokens
		} else if metric.ErrorKind != "" {
			stats.ErrorBreakdown[metric.ErrorKind]++
		}

		if metric.HasContext {
			stats.RequestsWithContext++
		}
		if metric.HasHistory {
			stats.RequestsWithHistory++
		}
	}

	stats.SuccessfulRequests = successCount
	stats.FailedRequests = stats.TotalRequests - successCount
	stats.SuccessRatePercent = math.Round(float64(successCount)/float64(stats.TotalRequests)*100*10) / 10
	stats.UniqueUsers = len(users)

	if successCount > 0 {
		stats.AvgResponseTimeMs = math.Round(latencySum/float64(successCount)*10) / 10
		stats.AvgTokensPerRequest = math.Round(float64(tokenSum)/float64(successCount)*10) / 10
		stats.TotalTokensUsed = tokenSum
	}

	return stats
}
