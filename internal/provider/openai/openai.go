// Package openai implements the "openai" AI Provider Adapter (C4) over
// sashabaranov/go-openai, grounded in gavlooth-codeloom's
// internal/llm/openai.go request construction and streaming loop.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/riverfold/querymind/internal/model"
	"github.com/riverfold/querymind/internal/provider"
	"github.com/riverfold/querymind/internal/provider/respparse"
)

const defaultModel = "gpt-4o"

// Provider is the openai AI Provider Adapter. It also serves as the base
// for any OpenAI-compatible endpoint reachable by overriding cfg.BaseURL.
type Provider struct {
	client  *openai.Client
	cfg     provider.Config
	builder provider.PromptBuilder
}

// New creates an openai Provider bound to cfg and the prompt builder used
// to render non-raw prompts.
func New(cfg provider.Config, builder provider.PromptBuilder, timeout time.Duration) *Provider {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey())
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &Provider{client: openai.NewClientWithConfig(clientCfg), cfg: cfg, builder: builder}
}

func (p *Provider) Name() string                { return "openai" }
func (p *Provider) IsConfigured() bool          { return p.cfg.APIKey() != "" }
func (p *Provider) SupportsClarification() bool { return true }

func (p *Provider) Chat(ctx context.Context, req model.AIRequest) (model.AIResponse, error) {
	prompt := provider.ResolvePrompt(req, p.builder)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokensOrDefault(0),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return provider.ErrorResponse(p.Name(), fmt.Errorf("openai completion error: %w", err)), nil
	}
	if len(resp.Choices) == 0 {
		return provider.ErrorResponse(p.Name(), fmt.Errorf("openai returned no choices")), nil
	}

	parsed, _ := respparse.Parse(resp.Choices[0].Message.Content)
	return parsed, nil
}

func (p *Provider) StreamChat(ctx context.Context, req model.AIRequest, onChunk provider.OnChunk) (model.AIResponse, error) {
	prompt := provider.ResolvePrompt(req, p.builder)

	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokensOrDefault(0),
		Stream:      true,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return provider.ErrorResponse(p.Name(), fmt.Errorf("openai stream error: %w", err)), nil
	}
	defer stream.Close()

	var full string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return provider.ErrorResponse(p.Name(), fmt.Errorf("openai stream error: %w", err)), nil
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full += delta
		onChunk(model.StreamChunk{Content: delta})
	}

	resp, _ := respparse.Parse(full)
	return resp, nil
}
