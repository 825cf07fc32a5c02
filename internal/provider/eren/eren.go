// Package eren implements the "eren" AI Provider Adapter (C4) as an
// OpenAI-compatible REST client, grounded in gavlooth-codeloom's
// internal/llm/openai.go "openai-compatible" branch (a custom BaseURL
// pointed at a self-hosted or third-party chat-completions endpoint).
//
// The teacher's own fourth provider (pkg/llm/client.go) talks to an
// internal LLM microservice over gRPC using a generated protobuf client
// that is not present anywhere in this codebase's reference material — no
// .proto source or generated pb.go exists to ground it on, so it is not
// reproduced here; see DESIGN.md.
package eren

import (
	"time"

	"github.com/riverfold/querymind/internal/provider"
	"github.com/riverfold/querymind/internal/provider/openai"
)

// New creates the eren Provider: an openai.Provider pointed at a
// self-hosted OpenAI-compatible endpoint via cfg.BaseURL.
func New(cfg provider.Config, builder provider.PromptBuilder, timeout time.Duration) *erenProvider {
	return &erenProvider{Provider: openai.New(cfg, builder, timeout)}
}

// erenProvider renames openai.Provider's identity so the registry reports
// "eren" rather than "openai" while reusing its entire transport.
type erenProvider struct {
	*openai.Provider
}

func (p *erenProvider) Name() string { return "eren" }
