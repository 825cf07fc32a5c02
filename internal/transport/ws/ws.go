// Package ws relays channel.Hub envelopes to browser clients over
// gorilla/websocket, the alternate C10 delivery mechanism named in
// SPEC_FULL.md alongside the SSE httpapi stream. Grounded in the
// teacher's pkg/api/websocket.go WSHub (register/unregister/broadcast
// channel loop, per-connection write goroutine), retargeted from a single
// global broadcast hub to per-user relay sourced from channel.Hub's
// existing per-user subscription.
package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/riverfold/querymind/internal/transport/channel"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checking is an external-collaborator concern (reverse proxy /
	// auth layer, per spec.md §1); this reference transport accepts any
	// origin, matching the teacher's own PoC-grade CheckOrigin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades an HTTP connection to a WebSocket and relays every
// envelope published on the hub for userID until the client disconnects.
type Handler struct {
	hub *channel.Hub
}

// NewHandler creates a Handler bound to hub.
func NewHandler(hub *channel.Hub) *Handler {
	return &Handler{hub: hub}
}

// ServeHTTP implements http.Handler, upgrading the connection and relaying
// hub.Subscribe(userID)'s envelopes as JSON frames, grounded in the
// teacher's WSHub.broadcast write loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub, unsubscribe := h.hub.Subscribe(userID)
	defer unsubscribe()

	// Drain and discard inbound frames so a client disconnect surfaces as a
	// read error, which unsubscribes; this transport is delivery-only.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				unsubscribe()
				return
			}
		}
	}()

	for env := range sub {
		if err := conn.WriteJSON(map[string]any{
			"type": env.Channel,
			"data": env.Payload,
		}); err != nil {
			slog.Debug("ws: write failed, closing connection", "user_id", userID, "error", err)
			return
		}
	}
}
