package provider

import "github.com/riverfold/querymind/internal/model"

// PromptBuilder is the seam onto C5: every provider resolves its outbound
// prompt text through this interface rather than formatting it itself.
type PromptBuilder interface {
	BuildDecisionPrompt(req model.AIRequest) string
}

// ResolvePrompt returns req.Prompt verbatim when RawPrompt is set (used for
// the analysis and dashboard phases), otherwise delegates to builder.
func ResolvePrompt(req model.AIRequest, builder PromptBuilder) string {
	if req.RawPrompt {
		return req.Prompt
	}
	return builder.BuildDecisionPrompt(req)
}

// ErrorResponse converts a transport/HTTP failure into a DIRECT_ANSWER per
// §4.4: the orchestrator must always get a usable response back. name
// identifies the provider in the message so a multi-provider orchestrator
// log line is traceable back to its source.
func ErrorResponse(name string, err error) model.AIResponse {
	return model.AIResponse{
		Type:    model.AIResponseDirectAnswer,
		Content: name + ": " + err.Error(),
	}
}
