package provider

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/riverfold/querymind/internal/model"
)

// RateLimited wraps a Provider with a process-local token-bucket limiter,
// grounded on goadesign-goa-ai's runtime/agent/model/middleware
// AdaptiveRateLimiter (a rate.Limiter sitting at the provider client
// boundary, blocking callers until capacity is available) but simplified to
// a fixed requests-per-minute budget rather than that middleware's AIMD
// backoff/probe adjustment — this engine has no provider-side throttling
// signal to adapt to, so a static limit is the honest subset to implement.
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimited wraps p with a limiter allowing at most requestsPerMinute
// calls to Chat/StreamChat, with a burst of one so a freshly started process
// can serve its first request immediately.
func NewRateLimited(p Provider, requestsPerMinute float64) *RateLimited {
	return &RateLimited{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), 1),
	}
}

// Chat blocks until the limiter admits the call, then delegates to the
// wrapped Provider.
func (r *RateLimited) Chat(ctx context.Context, req model.AIRequest) (model.AIResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return model.AIResponse{}, err
	}
	return r.Provider.Chat(ctx, req)
}

// StreamChat blocks until the limiter admits the call, then delegates to the
// wrapped Provider.
func (r *RateLimited) StreamChat(ctx context.Context, req model.AIRequest, onChunk OnChunk) (model.AIResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return model.AIResponse{}, err
	}
	return r.Provider.StreamChat(ctx, req, onChunk)
}
