// Package claude implements the "claude" AI Provider Adapter (C4) over
// anthropic-sdk-go, grounded in gavlooth-codeloom's internal/llm/anthropic.go
// message construction, adapted to the current (non-F-wrapped) SDK surface.
package claude

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/riverfold/querymind/internal/model"
	"github.com/riverfold/querymind/internal/provider"
	"github.com/riverfold/querymind/internal/provider/respparse"
)

const defaultModel = "claude-3-5-sonnet-latest"
const defaultMaxTokens = 4096

// Provider is the claude AI Provider Adapter.
type Provider struct {
	client  anthropic.Client
	cfg     provider.Config
	builder provider.PromptBuilder
}

// New creates a claude Provider bound to cfg and the prompt builder used
// to render non-raw prompts.
func New(cfg provider.Config, builder provider.PromptBuilder) *Provider {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey())}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Provider{client: anthropic.NewClient(opts...), cfg: cfg, builder: builder}
}

func (p *Provider) Name() string                { return "claude" }
func (p *Provider) IsConfigured() bool          { return p.cfg.APIKey() != "" }
func (p *Provider) SupportsClarification() bool { return true }

func (p *Provider) Chat(ctx context.Context, req model.AIRequest) (model.AIResponse, error) {
	prompt := provider.ResolvePrompt(req, p.builder)

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.cfg.Model,
		MaxTokens: int64(p.cfg.MaxTokensOrDefault(defaultMaxTokens)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return provider.ErrorResponse(p.Name(), fmt.Errorf("claude completion error: %w", err)), nil
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	resp, _ := respparse.Parse(text)
	return resp, nil
}

func (p *Provider) StreamChat(ctx context.Context, req model.AIRequest, onChunk provider.OnChunk) (model.AIResponse, error) {
	prompt := provider.ResolvePrompt(req, p.builder)

	stream := p.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     p.cfg.Model,
		MaxTokens: int64(p.cfg.MaxTokensOrDefault(defaultMaxTokens)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})

	var full string
	for stream.Next() {
		event := stream.Current()
		if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if textDelta, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok {
				full += textDelta.Text
				onChunk(model.StreamChunk{Content: textDelta.Text})
			}
		}
	}
	if err := stream.Err(); err != nil {
		return provider.ErrorResponse(p.Name(), fmt.Errorf("claude stream error: %w", err)), nil
	}

	resp, _ := respparse.Parse(full)
	return resp, nil
}
