package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"helpbot/internal/models"
	"helpbot/internal/repositories"
)

// statsWindowHours is the window for the operator stats command.
const statsWindowHours = 24

// EmptyQueryMessage is the fixed prompt sent for blank input; the search
// engine is never reached in that case.
const EmptyQueryMessage = "🤔 Please send a text query so I can search for services."

// FinalApologyMessage is the last rung of the fallback ladder: when both
// generation and the formatted search path failed, the user is pointed at a
// human.
const FinalApologyMessage = "😔 Sorry, an error occurred while processing your request.\n" +
	"Please try again later, or contact our manager directly for help."

// NoStatsMessage is returned by the stats command when the telemetry
// buffer holds nothing for the window.
const NoStatsMessage = "📊 No LLM requests recorded in the last 24 hours."

// Searcher is the retrieval surface the pipeline needs.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []models.SearchMatch
	SearchAndFormat(ctx context.Context, query string, limit int) string
	FormatItemDetails(itemID string) string
}

// Generator produces the natural-language reply.
type Generator interface {
	Generate(ctx context.Context, userMessage, retrievedContext string, history []models.ChatMessage, userID string) GenerationResult
}

// ConsultationService orchestrates one inbound message through retrieval,
// context assembly, generation and session bookkeeping. It is the only
// entry point the transport layer talks to.
type ConsultationService struct {
	search    Searcher
	sessions  *repositories.SessionRepository
	llm       Generator
	telemetry *LLMTelemetry
	logger    *log.Logger
}

// NewConsultationService creates the pipeline composition root.
func NewConsultationService(
	search Searcher,
	sessions *repositories.SessionRepository,
	llm Generator,
	telemetry *LLMTelemetry,
	logger *log.Logger,
) *ConsultationService {
	return &ConsultationService{
		search:    search,
		sessions:  sessions,
		llm:       llm,
		telemetry: telemetry,
		logger:    logger,
	}
}

// HandleStart answers the transport's start command with a welcome message.
func (s *ConsultationService) HandleStart(userID, displayName string) string {
	s.logger.Printf("Start command from user %s (%s)", userID, displayName)

	return "🎯 Hi! I'm Help Bot AI, the Drone Academy assistant.\n\n" +
		"I'll help you find the right courses and services! Just send me something like:\n" +
		"• 'drone courses'\n" +
		"• 'FPV training'\n" +
		"• 'corporate training'\n" +
		"• 'one-on-one lessons'\n" +
		"• or any other request\n\n" +
		"Go ahead, ask me something! 🚁"
}

// HandleMessage runs the full consultation pipeline for one inbound text.
// No failure leaves the message unanswered: generation failures surface as
// canned apologies from the LLM service, and anything unexpected falls back
// to the non-LLM formatted search path, then to a final static apology.
func (s *ConsultationService) HandleMessage(ctx context.Context, userID, displayName, text string) (reply string) {
	s.logger.Printf("Message from user %s (%s): %q", userID, displayName, text)

	if strings.TrimSpace(text) == "" {
		return EmptyQueryMessage
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("❌ Pipeline failure for user %s: %v", userID, r)
			reply = s.fallbackReply(ctx, userID, text)
		}
	}()

	history := s.sessions.History(userID, historyLimit)
	s.sessions.Append(userID, "user", text)

	matches := s.search.Search(ctx, text, DefaultSearchLimit)
	contextBlock := formatRetrievedContext(matches)

	result := s.llm.Generate(ctx, text, contextBlock, history, userID)
	if result.Degraded {
		s.logger.Printf("⚠️  Degraded reply for user %s (%s)", userID, result.Reason)
	}

	s.sessions.Append(userID, "assistant", result.Text)
	return result.Text
}

// fallbackReply is the deterministic two-step ladder below the LLM: retry
// the query through the formatted search path, and if that fails too return
// the final static apology.
func (s *ConsultationService) fallbackReply(ctx context.Context, userID, text string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("❌ Fallback search failed for user %s: %v", userID, r)
			reply = FinalApologyMessage
		}
	}()

	reply = s.search.SearchAndFormat(ctx, text, DefaultSearchLimit)
	s.sessions.Append(userID, "assistant", reply)
	return reply
}

// HandleDetails renders the full card for one catalog item.
func (s *ConsultationService) HandleDetails(itemID string) string {
	return s.search.FormatItemDetails(itemID)
}

// HandleReset clears the user's session.
func (s *ConsultationService) HandleReset(userID string) string {
	s.sessions.Clear(userID)
	return "🗑️ Conversation cleared. Let's start over — what are you looking for?"
}

// HandleStats formats the 24-hour telemetry aggregate plus session counts
// for the operator stats command.
func (s *ConsultationService) HandleStats(userID string) string {
	s.logger.Printf("Stats command from user %s", userID)

	stats := s.telemetry.Statistics(statsWindowHours)
	sessionStats := s.sessions.Stats()

	var b strings.Builder
	if stats == nil {
		b.WriteString(NoStatsMessage)
	} else {
		fmt.Fprintf(&b, "📊 **LLM usage, last %d hours**\n\n", stats.PeriodHours)
		fmt.Fprintf(&b, "Requests: %d (✅ %d / ❌ %d)\n", stats.TotalRequests, stats.SuccessfulRequests, stats.FailedRequests)
		fmt.Fprintf(&b, "Success rate: %.1f%%\n", stats.SuccessRatePercent)
		fmt.Fprintf(&b, "Unique users: %d\n", stats.UniqueUsers)
		fmt.Fprintf(&b, "Avg response time: %.1fms\n", stats.AvgResponseTimeMs)
		fmt.Fprintf(&b, "Avg tokens/request: %.1f\n", stats.AvgTokensPerRequest)
		fmt.Fprintf(&b, "Total tokens: %d\n", stats.TotalTokensUsed)
		fmt.Fprintf(&b, "With context: %d, with history: %d\n", stats.RequestsWithContext, stats.RequestsWithHistory)

		if len(stats.ErrorBreakdown) > 0 {
			b.WriteString("\nFailures by kind:\n")
			for kind, count := range stats.ErrorBreakdown {
				fmt.Fprintf(&b, "• %s: %d\n", kind, count)
			}
		}
	}

	fmt.Fprintf(&b, "\n💬 Active sessions: %d", sessionStats.TotalSessions)
	for state, count := range sessionStats.ByState {
		fmt.Fprintf(&b, "\n• %s: %d", state, count)
	}

	return b.String()
}

// formatRetrievedContext renders matches into the context block appended to
// the system prompt. Empty when nothing matched.
func formatRetrievedContext(matches []models.SearchMatch) string {
	if len(matches) == 0 {
		return ""
	}

	var b strings.Builder
	for i, match := range matches {
		fmt.Fprintf(&b, "%d. %s — category: %s, price: %s, code: %s (relevance: %.1f%%)\n",
			i+1, match.Name, match.Category, match.Price, match.CourseCode, match.RelevanceScore)
	}
	return b.String()
}
