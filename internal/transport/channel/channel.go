// Package channel implements the C10 Progress/Message Transport's five
// logical per-user channels as plain in-process Go channels, the minimal
// backend the core depends on through orchestrator.Publisher. Grounded in
// pkg/events.ConnectionManager's per-connection channel-subscription map,
// simplified from per-WebSocket-connection fanout to per-user delivery.
package channel

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/riverfold/querymind/internal/model"
)

// Envelope wraps one message with the logical channel it was published on,
// so a single subscription can multiplex all five kinds, matching the
// "one WebSocket connection, many logical channels" shape of pkg/events.
type Envelope struct {
	Channel string // "activity", "clarification", "response", "error", "pong"
	Payload json.RawMessage
}

const (
	ChannelActivity      = "activity"
	ChannelClarification = "clarification"
	ChannelResponse      = "response"
	ChannelError         = "error"
	ChannelPong          = "pong"
)

// Hub fans published messages out to every subscriber currently registered
// for a user. Hub implements orchestrator.Publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string][]chan Envelope // userID -> subscriber channels

	bufferSize int
}

// NewHub creates a Hub. bufferSize sets each subscriber channel's buffer;
// a slow subscriber drops messages past this depth rather than blocking
// the publisher (the teacher's WSHub.broadcast uses the same bounded-queue
// discipline via a buffered channel).
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Hub{subs: make(map[string][]chan Envelope), bufferSize: bufferSize}
}

// Subscribe registers a new subscriber for userID and returns a channel of
// Envelopes plus an unsubscribe function. The returned channel is closed by
// unsubscribe, never by the hub directly, so a caller mid-read never sees a
// surprise close from another goroutine.
func (h *Hub) Subscribe(userID string) (<-chan Envelope, func()) {
	ch := make(chan Envelope, h.bufferSize)

	h.mu.Lock()
	h.subs[userID] = append(h.subs[userID], ch)
	h.mu.Unlock()

	once := sync.Once{}
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			subs := h.subs[userID]
			for i, c := range subs {
				if c == ch {
					h.subs[userID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsubscribe
}

func (h *Hub) publish(userID, kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	h.Republish(userID, Envelope{Channel: kind, Payload: raw})
	return nil
}

// Republish fans out an already-built Envelope to userID's subscribers
// without re-marshaling it, the entry point pgnotify.Listener uses to
// redeliver a notification it received from another process.
func (h *Hub) Republish(userID string, env Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[userID] {
		select {
		case ch <- env:
		default:
			// Subscriber's buffer is full; drop rather than block the
			// publisher, matching the teacher's broadcast discipline.
		}
	}
}

func (h *Hub) PublishActivity(ctx context.Context, userID string, ev model.ActivityEvent) error {
	return h.publish(userID, ChannelActivity, ev)
}

func (h *Hub) PublishClarification(ctx context.Context, userID string, ev model.ClarificationEvent) error {
	return h.publish(userID, ChannelClarification, ev)
}

func (h *Hub) PublishResponse(ctx context.Context, userID string, resp model.AnalyzeResponse) error {
	return h.publish(userID, ChannelResponse, resp)
}

func (h *Hub) PublishError(ctx context.Context, userID string, resp model.AnalyzeResponse) error {
	return h.publish(userID, ChannelError, resp)
}

// Ping publishes the activity-shaped pong message of spec.md §4.10.
func (h *Hub) Ping(ctx context.Context, userID, message string) error {
	return h.publish(userID, ChannelPong, model.ActivityEvent{
		Phase:     model.PhasePing,
		Status:    model.ActivityStatusOK,
		Message:   message,
		Timestamp: time.Now(),
	})
}
