package convstate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverfold/querymind/internal/model"
)

type fakeRepo struct {
	history map[int64][]model.ChatTurn
	calls   int
}

func (f *fakeRepo) LoadHistory(ctx context.Context, conversationID int64) ([]model.ChatTurn, error) {
	f.calls++
	return f.history[conversationID], nil
}

func TestGetOrCreate_LazyLoadsOnce(t *testing.T) {
	repo := &fakeRepo{history: map[int64][]model.ChatTurn{
		1: {{Role: model.ChatRoleUser, Content: "hi"}},
	}}
	m := NewManager(repo)

	snap, err := m.GetOrCreate(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, snap.History, 1)
	assert.Equal(t, 1, repo.calls)

	_, err = m.GetOrCreate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls, "second getOrCreate must not reload from the repository")
}

func TestAddUserMessage_AppendsAndTouches(t *testing.T) {
	repo := &fakeRepo{history: map[int64][]model.ChatTurn{}}
	m := NewManager(repo)

	_, err := m.GetOrCreate(context.Background(), 1)
	require.NoError(t, err)

	m.AddUserMessage(1, "how many orders?")

	snap, err := m.GetOrCreate(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, snap.History, 1)
	assert.Equal(t, model.ChatRoleUser, snap.History[0].Role)
	assert.Equal(t, "how many orders?", snap.History[0].Content)
}

func TestUpdateState_RecordsLastResponseAndHistory(t *testing.T) {
	repo := &fakeRepo{history: map[int64][]model.ChatTurn{}}
	m := NewManager(repo)

	_, err := m.GetOrCreate(context.Background(), 1)
	require.NoError(t, err)

	m.UpdateState(1, model.AIResponse{Type: model.AIResponseDirectAnswer, Content: "42 orders"})

	snap, err := m.GetOrCreate(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, snap.LastResponse)
	assert.Equal(t, "42 orders", snap.LastResponse.Content)
	require.Len(t, snap.History, 1)
	assert.Equal(t, model.ChatRoleAssistant, snap.History[0].Role)
}

func TestCleanup_EvictsOnlyIdleStates(t *testing.T) {
	repo := &fakeRepo{history: map[int64][]model.ChatTurn{}}
	m := NewManager(repo)
	m.idleTimeout = 10 * time.Millisecond

	_, err := m.GetOrCreate(context.Background(), 1)
	require.NoError(t, err)
	_, err = m.GetOrCreate(context.Background(), 2)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	m.AddUserMessage(2, "still active") // touches conversation 2's lastActiveAt

	m.cleanup()

	m.mu.Lock()
	_, stillHasOne := m.states[1]
	_, stillHasTwo := m.states[2]
	m.mu.Unlock()

	assert.False(t, stillHasOne, "idle conversation 1 should have been evicted")
	assert.True(t, stillHasTwo, "recently-touched conversation 2 should survive")
}

func TestStartEvictionSweep_StopsCleanly(t *testing.T) {
	repo := &fakeRepo{history: map[int64][]model.ChatTurn{}}
	m := NewManager(repo)

	ctx, cancel := context.Background(), func() {}
	_ = cancel
	m.StartEvictionSweep(ctx, 5*time.Millisecond)
	time.Sleep(15 * time.Millisecond)
	m.Stop()
}
