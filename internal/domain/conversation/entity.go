// internal/domain/conversation/entity.go
package conversation

import (
	"strings"
	"time"
)

// DefaultInactivityTTL is the window after which an idle conversation
// becomes eligible for eviction, bounding memory per session.
const DefaultInactivityTTL = 30 * time.Minute

// State is the per-session conversation memory: which catalog entries were
// already surfaced to this shopper. ShownEntryIDs only grows within the
// session's lifetime and is never shared across sessions.
type State struct {
	SessionID     string              `json:"sessionId"`
	ShownEntryIDs map[string]struct{} `json:"shownEntryIds"`
	LastActiveAt  time.Time           `json:"lastActiveAt"`
}

// NewState creates the conversation state for a first message.
func NewState(sessionID string, now time.Time) *State {
	return &State{
		SessionID:     strings.TrimSpace(sessionID),
		ShownEntryIDs: map[string]struct{}{},
		LastActiveAt:  now,
	}
}

// MarkShown records surfaced entry ids and refreshes the activity clock.
func (s *State) MarkShown(ids []string, now time.Time) {
	if s.ShownEntryIDs == nil {
		s.ShownEntryIDs = map[string]struct{}{}
	}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			s.ShownEntryIDs[id] = struct{}{}
		}
	}
	s.LastActiveAt = now
}

// Expired reports whether the session has been idle past ttl.
func (s *State) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultInactivityTTL
	}
	return now.Sub(s.LastActiveAt) > ttl
}
