// internal/domain/conversation/repository_port.go
package conversation

import "context"

// Repository persists conversation state keyed by session id.
//
// Get returns (nil, nil) when the session is unknown (nil policy).
// Implementations must be safe for concurrent sessions; a single session
// is only ever mutated by the conversation that owns it.
type Repository interface {
	Get(ctx context.Context, sessionID string) (*State, error)
	Upsert(ctx context.Context, s *State) error
	Delete(ctx context.Context, sessionID string) error
}
