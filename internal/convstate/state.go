// Package convstate implements the Conversation State Manager (C7): an
// in-process concurrent map of per-conversation history, lazily loaded
// from a repository on first touch and swept for idle eviction.
// Grounded in the teacher's pkg/session package (Manager's map+mutex
// store, Session's per-object lock discipline) and pkg/queue/orphan.go's
// ticker-driven background sweep idiom.
package convstate

import (
	"context"
	"sync"
	"time"

	"github.com/riverfold/querymind/internal/model"
)

// MessageRepository loads prior conversation history on a cache miss. The
// core depends on this seam; persistence is an external collaborator.
type MessageRepository interface {
	LoadHistory(ctx context.Context, conversationID int64) ([]model.ChatTurn, error)
}

// State is one conversation's in-memory history. The Manager is the only
// component permitted to mutate it — callers only ever read a Snapshot.
type State struct {
	mu             sync.RWMutex
	conversationID int64
	history        []model.ChatTurn
	lastResponse   *model.AIResponse
	createdAt      time.Time
	lastActiveAt   time.Time
}

// Snapshot is a read-only copy of a State, safe to hand to a caller
// outside the manager's lock.
type Snapshot struct {
	ConversationID int64
	History        []model.ChatTurn
	LastResponse   *model.AIResponse
	CreatedAt      time.Time
	LastActiveAt   time.Time
}

func (s *State) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]model.ChatTurn, len(s.history))
	copy(history, s.history)
	return Snapshot{
		ConversationID: s.conversationID,
		History:        history,
		LastResponse:   s.lastResponse,
		CreatedAt:      s.createdAt,
		LastActiveAt:   s.lastActiveAt,
	}
}

func (s *State) idleSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastActiveAt)
}
