package prompt

import (
	"strings"

	"github.com/riverfold/querymind/internal/model"
)

// Builder assembles all three C5 prompts. Stateless and thread-safe, like
// the teacher's PromptBuilder — every method derives its output solely
// from its arguments.
type Builder struct {
	includeHistory bool
}

// NewBuilder creates a Builder. includeHistory controls whether the
// decision prompt embeds ConversationHistory; some deployments disable
// this to bound prompt size on long-running conversations.
func NewBuilder(includeHistory bool) *Builder {
	return &Builder{includeHistory: includeHistory}
}

// BuildDecisionPrompt implements provider.PromptBuilder (§4.5 #1): role
// statement, optional history, the user's message, every available
// schema, the decision procedure, critical rules, response schema,
// worked example, and chaining rules, in that fixed order.
func (b *Builder) BuildDecisionPrompt(req model.AIRequest) string {
	var sb strings.Builder

	sb.WriteString(roleStatement)
	sb.WriteString("\n\n")

	if b.includeHistory {
		if history := FormatConversationHistory(req.ConversationHistory); history != "" {
			sb.WriteString(history)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("## User Message\n\n")
	sb.WriteString(req.UserMessage)
	sb.WriteString("\n\n")

	sb.WriteString("## Available Data Sources\n\n")
	for _, schema := range req.AvailableSchemas {
		sb.WriteString(FormatSourceSchema(schema))
		sb.WriteString("\n")
	}

	sb.WriteString(decisionProcedure)
	sb.WriteString("\n\n")
	sb.WriteString(criticalRules)
	sb.WriteString("\n\n")
	sb.WriteString(jsonResponseSchema)
	sb.WriteString("\n\n")
	sb.WriteString(workedExample)
	sb.WriteString("\n\n")
	sb.WriteString(chainingRules)

	return sb.String()
}

// BuildAnalysisPrompt implements §4.5 #2: a structural summary plus the
// user's question, with an explicit prohibition on referencing redacted
// columns. summary is expected to already be the rendered output of
// internal/summarize, never raw row data.
func (b *Builder) BuildAnalysisPrompt(userQuestion, summary string) string {
	var sb strings.Builder
	sb.WriteString(analysisInstructions)
	sb.WriteString("\n\n## User Question\n\n")
	sb.WriteString(userQuestion)
	sb.WriteString("\n\n## Data Summary\n\n")
	sb.WriteString(summary)
	return sb.String()
}

// BuildDashboardPrompt implements §4.5 #3: the analysis result plus the
// same structural summary, asking only for chart/metric/theme JSON.
func (b *Builder) BuildDashboardPrompt(analysisResult, summary string) string {
	var sb strings.Builder
	sb.WriteString(dashboardInstructions)
	sb.WriteString("\n\n## Analysis Result\n\n")
	sb.WriteString(analysisResult)
	sb.WriteString("\n\n## Data Summary\n\n")
	sb.WriteString(summary)
	return sb.String()
}
