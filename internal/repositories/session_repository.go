package repositories

import (
	"log"
	"sync"
	"time"

	"helpbot/internal/models"
)

// SessionRepository holds per-user dialog sessions in process memory.
// Sessions are created lazily on first reference and survive until an
// explicit Clear, an idle prune, or process exit; the store itself does no
// TTL eviction.
//
// A store-level mutex guards the map; each session carries its own mutex so
// concurrent messages from one user serialize against each other without
// blocking other users.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	logger   *log.Logger
}

type sessionEntry struct {
	mu      sync.Mutex
	session models.Session
}

// NewSessionRepository creates an empty in-memory session store.
func NewSessionRepository(logger *log.Logger) *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*sessionEntry),
		logger:   logger,
	}
}

// getOrCreate returns the entry for userID, creating it if needed. The
// double-checked write path keeps first-touch idempotent under concurrency:
// two racing callers always end up sharing one session.
func (r *SessionRepository) getOrCreate(userID string) *sessionEntry {
	r.mu.RLock()
	entry, ok := r.sessions[userID]
	r.mu.RUnlock()
	if ok {
		return entry
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok = r.sessions[userID]; ok {
		return entry
	}

	now := time.Now()
	entry = &sessionEntry{
		session: models.Session{
			UserID:       userID,
			Transcript:   []models.TranscriptEntry{},
			State:        models.StateConsultation,
			CreatedAt:    now,
			LastActivity: now,
		},
	}
	r.sessions[userID] = entry
	r.logger.Printf("👤 Created new session for user %s", userID)
	return entry
}

// Append pushes a transcript entry, trimming to the most recent
// MaxTranscriptLength entries, and bumps last_activity.
func (r *SessionRepository) Append(userID, role, content string) {
	entry := r.getOrCreate(userID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.session.Transcript = append(entry.session.Transcript, models.TranscriptEntry{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})

	if n := len(entry.session.Transcript); n > models.MaxTranscriptLength {
		entry.session.Transcript = entry.session.Transcript[n-models.MaxTranscriptLength:]
		r.logger.Printf("📝 Transcript trimmed for user %s", userID)
	}

	entry.session.LastActivity = time.Now()
}

// History returns the most recent limit transcript entries as chat messages
// with timestamps stripped, oldest first. A never-seen user gets an empty
// slice (and an empty session).
func (r *SessionRepository) History(userID string, limit int) []models.ChatMessage {
	entry := r.getOrCreate(userID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	transcript := entry.session.Transcript
	if limit > 0 && len(transcript) > limit {
		transcript = transcript[len(transcript)-limit:]
	}

	messages := make([]models.ChatMessage, len(transcript))
	for i, msg := range transcript {
		messages[i] = models.ChatMessage{Role: msg.Role, Content: msg.Content}
	}
	return messages
}

// State returns the user's current dialog state.
func (r *SessionRepository) State(userID string) models.DialogState {
	entry := r.getOrCreate(userID)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.State
}

// SetState transitions the dialog state unconditionally; any state may
// follow any other.
func (r *SessionRepository) SetState(userID string, state models.DialogState) {
	entry := r.getOrCreate(userID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	old := entry.session.State
	entry.session.State = state
	entry.session.LastActivity = time.Now()
	r.logger.Printf("🔄 User %s state: %s → %s", userID, old, state)
}

// SetContact updates contact details; nil means leave unchanged.
func (r *SessionRepository) SetContact(userID string, name, phone *string) {
	entry := r.getOrCreate(userID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if name != nil {
		entry.session.ContactName = *name
	}
	if phone != nil {
		entry.session.ContactPhone = *phone
	}
	entry.session.LastActivity = time.Now()
}

// Contact returns the stored contact name and phone.
func (r *SessionRepository) Contact(userID string) (name, phone string) {
	entry := r.getOrCreate(userID)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.ContactName, entry.session.ContactPhone
}

// SetSelectedCourse records the course a user settled on.
func (r *SessionRepository) SetSelectedCourse(userID string, course *models.SearchMatch) {
	entry := r.getOrCreate(userID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.session.SelectedCourse = course
	entry.session.LastActivity = time.Now()
	if course != nil {
		r.logger.Printf("📚 User %s selected course: %s", userID, course.Name)
	}
}

// SelectedCourse returns the course a user settled on, or nil.
func (r *SessionRepository) SelectedCourse(userID string) *models.SearchMatch {
	entry := r.getOrCreate(userID)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.SelectedCourse
}

// Clear deletes a session entirely; the next access recreates it fresh.
func (r *SessionRepository) Clear(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[userID]; ok {
		delete(r.sessions, userID)
		r.logger.Printf("🗑️ Session cleared for user %s", userID)
	}
}

// PruneIdle deletes sessions whose last activity is older than maxIdle and
// returns how many were removed.
func (r *SessionRepository) PruneIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for userID, entry := range r.sessions {
		entry.mu.Lock()
		idle := entry.session.LastActivity.Before(cutoff)
		entry.mu.Unlock()
		if idle {
			delete(r.sessions, userID)
			removed++
		}
	}

	if removed > 0 {
		r.logger.Printf("🗑️ Pruned %d idle sessions", removed)
	}
	return removed
}

// Stats counts active sessions grouped by dialog state.
func (r *SessionRepository) Stats() models.SessionStats {
	r.mu.RLock()
	entries := make([]*sessionEntry, 0, len(r.sessions))
	for _, entry := range r.sessions {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	stats := models.SessionStats{
		TotalSessions: len(entries),
		ByState:       make(map[models.DialogState]int),
	}
	for _, entry := range entries {
		entry.mu.Lock()
		stats.ByState[entry.session.State]++
		entry.mu.Unlock()
	}
	return stats
}
