package pgnotify

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riverfold/querymind/internal/transport/channel"
)

func TestUserChannel(t *testing.T) {
	assert.Equal(t, "querymind_user_alice", UserChannel("alice"))
}

func TestTruncateIfNeeded(t *testing.T) {
	t.Run("passes through a normal payload", func(t *testing.T) {
		env := channel.Envelope{Channel: channel.ChannelActivity, Payload: json.RawMessage(`{"message":"hello"}`)}
		raw, err := json.Marshal(env)
		assert.NoError(t, err)

		result := truncateIfNeeded(string(raw))
		assert.Contains(t, result, "hello")
	})

	t.Run("truncates an oversized payload down to a discriminator envelope", func(t *testing.T) {
		env := channel.Envelope{
			Channel: channel.ChannelResponse,
			Payload: json.RawMessage(`"` + strings.Repeat("a", maxNotifyPayloadBytes+500) + `"`),
		}
		raw, err := json.Marshal(env)
		assert.NoError(t, err)
		assert.Greater(t, len(raw), maxNotifyPayloadBytes)

		result := truncateIfNeeded(string(raw))
		assert.Less(t, len(result), maxNotifyPayloadBytes)
		assert.Contains(t, result, channel.ChannelResponse)
		assert.Contains(t, result, "truncated")
	})

	t.Run("falls back to an unknown envelope on malformed input", func(t *testing.T) {
		oversized := strings.Repeat("x", maxNotifyPayloadBytes+100)
		result := truncateIfNeeded(oversized)
		assert.Contains(t, result, "unknown")
		assert.Contains(t, result, "truncated")
	})
}
