// internal/adapters/out/memory/conversation_repository_mem.go
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	convdom "chatbridge/internal/domain/conversation"
)

// ConversationRepositoryMem is the default session-keyed store: a mutexed
// map with inactivity eviction. One process, many concurrent sessions; a
// single session is only touched by its own conversation, but the map
// itself needs the lock.
type ConversationRepositoryMem struct {
	mu       sync.Mutex
	sessions map[string]*convdom.State
	ttl      time.Duration
	now      func() time.Time
}

func NewConversationRepositoryMem(ttl time.Duration) *ConversationRepositoryMem {
	if ttl <= 0 {
		ttl = convdom.DefaultInactivityTTL
	}
	return &ConversationRepositoryMem{
		sessions: map[string]*convdom.State{},
		ttl:      ttl,
		now:      time.Now,
	}
}

// NewConversationRepositoryMemWithNow is useful for tests.
func NewConversationRepositoryMemWithNow(ttl time.Duration, now func() time.Time) *ConversationRepositoryMem {
	r := NewConversationRepositoryMem(ttl)
	if now != nil {
		r.now = now
	}
	return r
}

// Get returns (nil, nil) for unknown or expired sessions (nil policy).
func (r *ConversationRepositoryMem) Get(_ context.Context, sessionID string) (*convdom.State, error) {
	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return nil, errors.New("conversation_repository_mem: sessionID is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sid]
	if !ok {
		return nil, nil
	}
	if s.Expired(r.now(), r.ttl) {
		delete(r.sessions, sid)
		return nil, nil
	}
	return s, nil
}

func (r *ConversationRepositoryMem) Upsert(_ context.Context, s *convdom.State) error {
	if s == nil || strings.TrimSpace(s.SessionID) == "" {
		return errors.New("conversation_repository_mem: state requires a sessionID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.SessionID] = s
	return nil
}

func (r *ConversationRepositoryMem) Delete(_ context.Context, sessionID string) error {
	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return errors.New("conversation_repository_mem: sessionID is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sid)
	return nil
}

// Sweep evicts every session idle past the TTL and reports how many were
// dropped. Run periodically from the container.
func (r *ConversationRepositoryMem) Sweep() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for sid, s := range r.sessions {
		if s.Expired(now, r.ttl) {
			delete(r.sessions, sid)
			n++
		}
	}
	return n
}
