// Package gemini implements the "gemini" AI Provider Adapter (C4) over
// google/generative-ai-go, grounded in gavlooth-codeloom's
// internal/llm/google.go chat-session construction.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/riverfold/querymind/internal/model"
	"github.com/riverfold/querymind/internal/provider"
	"github.com/riverfold/querymind/internal/provider/respparse"
)

const defaultModel = "gemini-1.5-flash"

// Provider is the gemini AI Provider Adapter.
type Provider struct {
	cfg     provider.Config
	builder provider.PromptBuilder
}

// New creates a gemini Provider. The genai client is constructed lazily
// per call since genai.Client holds its own HTTP transport and the
// registry does not pool provider clients the way it pools data source
// connections.
func New(cfg provider.Config, builder provider.PromptBuilder) *Provider {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Provider{cfg: cfg, builder: builder}
}

func (p *Provider) Name() string               { return "gemini" }
func (p *Provider) IsConfigured() bool         { return p.cfg.APIKey() != "" }
func (p *Provider) SupportsClarification() bool { return true }

func (p *Provider) Chat(ctx context.Context, req model.AIRequest) (model.AIResponse, error) {
	client, err := p.newClient(ctx)
	if err != nil {
		return provider.ErrorResponse(p.Name(), err), nil
	}
	defer client.Close()

	text, err := p.generate(ctx, client, req)
	if err != nil {
		return provider.ErrorResponse(p.Name(), err), nil
	}

	resp, _ := respparse.Parse(text)
	return resp, nil
}

func (p *Provider) StreamChat(ctx context.Context, req model.AIRequest, onChunk provider.OnChunk) (model.AIResponse, error) {
	client, err := p.newClient(ctx)
	if err != nil {
		return provider.ErrorResponse(p.Name(), err), nil
	}
	defer client.Close()

	gm := client.GenerativeModel(p.cfg.Model)
	gm.SetTemperature(p.cfg.Temperature)
	if p.cfg.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(p.cfg.MaxTokens))
	}

	prompt := p.prompt(req)
	iter := gm.GenerateContentStream(ctx, genai.Text(prompt))

	var full string
	for {
		chunk, err := iter.Next()
		if err != nil {
			break
		}
		for _, cand := range chunk.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					full += string(text)
					onChunk(model.StreamChunk{Content: string(text)})
				}
			}
		}
	}

	if full == "" {
		return provider.ErrorResponse(p.Name(), fmt.Errorf("gemini stream produced no content")), nil
	}
	resp, _ := respparse.Parse(full)
	return resp, nil
}

func (p *Provider) newClient(ctx context.Context) (*genai.Client, error) {
	key := p.cfg.APIKey()
	if key == "" {
		return nil, fmt.Errorf("gemini API key not configured")
	}
	return genai.NewClient(ctx, option.WithAPIKey(key))
}

func (p *Provider) generate(ctx context.Context, client *genai.Client, req model.AIRequest) (string, error) {
	gm := client.GenerativeModel(p.cfg.Model)
	gm.SetTemperature(p.cfg.Temperature)
	if p.cfg.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(p.cfg.MaxTokens))
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(p.prompt(req)))
	if err != nil {
		return "", fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out += string(text)
		}
	}
	return out, nil
}

func (p *Provider) prompt(req model.AIRequest) string {
	return provider.ResolvePrompt(req, p.builder)
}
