// internal/adapters/out/firestore/conversation_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	convdom "chatbridge/internal/domain/conversation"
)

// ConversationRepositoryFS implements conversation.Repository on Firestore
// for multi-replica deployments, where an in-process map cannot give every
// replica the same view of which products a session has already seen.
//
// Collection design:
// - collection: conversations
// - docId: sessionId
// - fields: shownEntryIds([]string), lastActiveAt, expiresAt
//
// TTL:
// - Configure Firestore TTL on "expiresAt".
type ConversationRepositoryFS struct {
	Client *firestore.Client
	ttl    time.Duration
}

func NewConversationRepositoryFS(client *firestore.Client, ttl time.Duration) *ConversationRepositoryFS {
	if ttl <= 0 {
		ttl = convdom.DefaultInactivityTTL
	}
	return &ConversationRepositoryFS{Client: client, ttl: ttl}
}

func (r *ConversationRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection("conversations")
}

// Get returns (nil, nil) if not found or already past its TTL (nil policy).
func (r *ConversationRepositoryFS) Get(ctx context.Context, sessionID string) (*convdom.State, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("conversation_repository_fs: firestore client is nil")
	}

	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return nil, errors.New("conversation_repository_fs: sessionID is empty")
	}

	snap, err := r.col().Doc(sid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc conversationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}

	s := doc.toDomain(sid)
	if s.Expired(time.Now().UTC(), r.ttl) {
		return nil, nil
	}
	return s, nil
}

func (r *ConversationRepositoryFS) Upsert(ctx context.Context, s *convdom.State) error {
	if r == nil || r.Client == nil {
		return errors.New("conversation_repository_fs: firestore client is nil")
	}
	if s == nil || strings.TrimSpace(s.SessionID) == "" {
		return errors.New("conversation_repository_fs: state requires a sessionID")
	}

	doc := conversationDocFromDomain(s, r.ttl)

	// Overwrite full doc (simple & predictable).
	_, err := r.col().Doc(s.SessionID).Set(ctx, doc)
	return err
}

func (r *ConversationRepositoryFS) Delete(ctx context.Context, sessionID string) error {
	if r == nil || r.Client == nil {
		return errors.New("conversation_repository_fs: firestore client is nil")
	}

	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return errors.New("conversation_repository_fs: sessionID is empty")
	}

	_, err := r.col().Doc(sid).Delete(ctx)
	return err
}

// -----------------------------------------
// Firestore DTO
// -----------------------------------------

type conversationDoc struct {
	ShownEntryIDs []string  `firestore:"shownEntryIds"`
	LastActiveAt  time.Time `firestore:"lastActiveAt"`
	ExpiresAt     time.Time `firestore:"expiresAt"`
}

func conversationDocFromDomain(s *convdom.State, ttl time.Duration) conversationDoc {
	ids := make([]string, 0, len(s.ShownEntryIDs))
	for id := range s.ShownEntryIDs {
		ids = append(ids, id)
	}
	return conversationDoc{
		ShownEntryIDs: ids,
		LastActiveAt:  s.LastActiveAt,
		ExpiresAt:     s.LastActiveAt.Add(ttl),
	}
}

func (d conversationDoc) toDomain(sessionID string) *convdom.State {
	shown := make(map[string]struct{}, len(d.ShownEntryIDs))
	for _, id := range d.ShownEntryIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			shown[id] = struct{}{}
		}
	}
	return &convdom.State{
		// docId is the source of truth for the session id.
		SessionID:     sessionID,
		ShownEntryIDs: shown,
		LastActiveAt:  d.LastActiveAt,
	}
}
