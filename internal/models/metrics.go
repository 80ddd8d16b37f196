package models

import "time"

// RequestMetric records one generation attempt, success or failure.
type RequestMetric struct {
	Timestamp        time.Time `json:"timestamp"`
	UserID           string    `json:"user_id"`
	Model            string    `json:"model"`
	RequestSizeChars int       `json:"request_size_chars"`
	MessagesCount    int       `json:"messages_count"`
	HasContext       bool      `json:"has_context"`
	HasHistory       bool      `json:"has_history"`

	ResponseTimeMs   float64 `json:"response_time_ms"`
	Success          bool    `json:"success"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`

	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"` // truncated to 200 chars

	ResponseLengthChars int `json:"response_length_chars"`
}

// UsageStatistics aggregates the telemetry ring over a time window.
type UsageStatistics struct {
	PeriodHours         int            `json:"period_hours"`
	TotalRequests       int            `json:"total_requests"`
	SuccessfulRequests  int            `json:"successful_requests"`
	FailedRequests      int            `json:"failed_requests"`
	SuccessRatePercent  float64        `json:"success_rate_percent"`
	UniqueUsers         int            `json:"unique_users"`
	AvgResponseTimeMs   float64        `json:"avg_response_time_ms"`
	AvgTokensPerRequest float64        `json:"avg_tokens_per_request"`
	TotalTokensUsed     int            `json:"total_tokens_used"`
	ErrorBreakdown      map[string]int `json:"error_breakdown"`
	RequestsWithContext int            `json:"requests_with_context"`
	RequestsWithHistory int            `json:"requests_with_history"`
}
