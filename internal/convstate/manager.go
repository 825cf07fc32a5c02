package convstate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/riverfold/querymind/internal/model"
)

// DefaultIdleTimeout is spec.md §4.7's eviction threshold: a conversation
// untouched for this long is swept on the next cleanup pass.
const DefaultIdleTimeout = time.Hour

// Manager owns every conversation's State, keyed by conversation ID.
type Manager struct {
	repo        MessageRepository
	idleTimeout time.Duration

	mu     sync.Mutex
	states map[int64]*State

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates a Manager backed by repo, which is consulted on a
// getOrCreate cache miss to seed history.
func NewManager(repo MessageRepository) *Manager {
	return &Manager{
		repo:        repo,
		idleTimeout: DefaultIdleTimeout,
		states:      make(map[int64]*State),
		stopCh:      make(chan struct{}),
	}
}

// GetOrCreate returns a Snapshot of the cached State for conversationID,
// lazily loading prior history from the repository on first access.
func (m *Manager) GetOrCreate(ctx context.Context, conversationID int64) (Snapshot, error) {
	m.mu.Lock()
	s, ok := m.states[conversationID]
	if ok {
		m.mu.Unlock()
		return s.snapshot(), nil
	}
	m.mu.Unlock()

	history, err := m.repo.LoadHistory(ctx, conversationID)
	if err != nil {
		return Snapshot{}, err
	}

	now := time.Now()
	s = &State{
		conversationID: conversationID,
		history:        history,
		createdAt:      now,
		lastActiveAt:   now,
	}

	m.mu.Lock()
	if existing, raced := m.states[conversationID]; raced {
		m.mu.Unlock()
		return existing.snapshot(), nil
	}
	m.states[conversationID] = s
	m.mu.Unlock()

	return s.snapshot(), nil
}

// AddUserMessage appends a user turn to conversationID's history and
// touches its activity timestamp.
func (m *Manager) AddUserMessage(conversationID int64, content string) {
	m.mu.Lock()
	s, ok := m.states[conversationID]
	m.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	s.history = append(s.history, model.ChatTurn{Role: model.ChatRoleUser, Content: content})
	s.lastActiveAt = time.Now()
	s.mu.Unlock()
}

// UpdateState records the AI's response as the new last turn, appends it
// to history, and touches the activity timestamp.
func (m *Manager) UpdateState(conversationID int64, resp model.AIResponse) {
	m.mu.Lock()
	s, ok := m.states[conversationID]
	m.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	s.lastResponse = &resp
	s.history = append(s.history, model.ChatTurn{Role: model.ChatRoleAssistant, Content: resp.Content})
	s.lastActiveAt = time.Now()
	s.mu.Unlock()
}

// StartEvictionSweep launches the background cleanup loop on the given
// interval. It runs until ctx is cancelled or Stop is called.
func (m *Manager) StartEvictionSweep(ctx context.Context, interval time.Duration) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.cleanup()
			}
		}
	}()
}

// Stop signals the eviction sweep to exit and waits for it to finish.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

// cleanup removes every State idle longer than idleTimeout.
func (m *Manager) cleanup() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.states {
		if s.idleSince(now) > m.idleTimeout {
			delete(m.states, id)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Debug("evicted idle conversation states", "count", evicted)
	}
}
