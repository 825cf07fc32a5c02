// Package provider defines the AI Provider Adapter contract (C4) and hosts
// the four concrete providers (gemini, claude, openai, eren) behind it.
package provider

import (
	"context"

	"github.com/riverfold/querymind/internal/model"
)

// OnChunk receives one streamed text delta as it arrives.
type OnChunk func(chunk model.StreamChunk)

// Provider is the uniform contract every AI backend implements.
type Provider interface {
	Name() string
	IsConfigured() bool
	SupportsClarification() bool

	Chat(ctx context.Context, req model.AIRequest) (model.AIResponse, error)

	// StreamChat delivers text deltas to onChunk as they arrive and
	// returns the same parsed AIResponse Chat would. A provider with no
	// native streaming transport may implement this by calling Chat and
	// delivering the full content as a single chunk.
	StreamChat(ctx context.Context, req model.AIRequest, onChunk OnChunk) (model.AIResponse, error)
}
