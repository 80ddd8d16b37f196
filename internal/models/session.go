package models

import "time"

// DialogState tags where a user's conversation currently is.
type DialogState string

const (
	StateConsultation   DialogState = "consultation"
	StatePaymentRequest DialogState = "payment_request"
	StateManagerRequest DialogState = "manager_request"
	StateError          DialogState = "error"
)

// MaxTranscriptLength caps the per-session transcript; the oldest entries
// are dropped first once the cap is reached.
const MaxTranscriptLength = 20

// TranscriptEntry is one message in a session transcript.
type TranscriptEntry struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the per-user conversational state. It lives only in process
// memory and is never persisted.
type Session struct {
	UserID         string            `json:"user_id"`
	Transcript     []TranscriptEntry `json:"transcript"`
	State          DialogState       `json:"state"`
	SelectedCourse *SearchMatch      `json:"selected_course,omitempty"`
	ContactName    string            `json:"contact_name,omitempty"`
	ContactPhone   string            `json:"contact_phone,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	LastActivity   time.Time         `json:"last_activity"`
}

// SessionStats is an operational snapshot of the session store.
type SessionStats struct {
	TotalSessions int                 `json:"total_sessions"`
	ByState       map[DialogState]int `json:"states_distribution"`
}
