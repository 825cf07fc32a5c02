package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverfold/querymind/internal/model"
)

func TestRateLimited_DelegatesNameAndConfigured(t *testing.T) {
	base := &stubProvider{name: "gemini", configured: true}
	rl := NewRateLimited(base, 60)

	assert.Equal(t, "gemini", rl.Name())
	assert.True(t, rl.IsConfigured())
	assert.True(t, rl.SupportsClarification())
}

func TestRateLimited_ChatDelegatesToWrapped(t *testing.T) {
	base := &stubProvider{name: "gemini", configured: true}
	rl := NewRateLimited(base, 6000) // high enough that Wait never blocks the test

	resp, err := rl.Chat(context.Background(), model.AIRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.AIResponse{}, resp)
}

func TestRateLimited_StreamChatAbortsOnCancelledContext(t *testing.T) {
	base := &stubProvider{name: "gemini", configured: true}
	// One request per minute with a burst of one means the second call must wait;
	// a pre-cancelled context makes that wait fail immediately.
	rl := NewRateLimited(base, 1)
	_, err := rl.Chat(context.Background(), model.AIRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rl.StreamChat(ctx, model.AIRequest{}, func(model.StreamChunk) {})
	assert.Error(t, err)
}

func TestRateLimited_ImplementsProviderInterface(t *testing.T) {
	var _ Provider = NewRateLimited(&stubProvider{}, 60)
}

func TestRateLimited_ZeroRPMStillConstructs(t *testing.T) {
	rl := NewRateLimited(&stubProvider{name: "p"}, 0)
	require.NotNil(t, rl)
}
