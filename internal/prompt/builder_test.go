package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riverfold/querymind/internal/model"
)

func TestFormatSourceSchema_Table(t *testing.T) {
	schema := model.SourceSchema{
		SourceID:   "1",
		SourceName: "analytics",
		SourceKind: model.SourceKindPostgreSQL,
		Tables: []model.Table{
			{
				Name:    "users",
				Columns: []model.Column{{Name: "id", DataType: "int"}, {Name: "email", DataType: "text"}},
				SampleRows: []map[string]any{
					{"id": 1, "email": "a@b.com"},
				},
			},
		},
	}
	out := FormatSourceSchema(schema)
	assert.Contains(t, out, "table users")
	assert.Contains(t, out, "id:int")
	assert.Contains(t, out, "email:text")
	assert.Contains(t, out, "1 | a@b.com")
}

func TestFormatSourceSchema_MCPToolsAndResources(t *testing.T) {
	schema := model.SourceSchema{
		SourceID:   "3",
		SourceName: "github-mcp",
		SourceKind: model.SourceKindMCP,
		Tools:      []model.MCPTool{{Name: "search_issues", Description: "search GitHub issues"}},
		Resources:  []model.MCPResource{{URI: "repo://owner/name", Description: "repo metadata", MimeType: "application/json"}},
	}
	out := FormatSourceSchema(schema)
	assert.Contains(t, out, "tool search_issues: search GitHub issues")
	assert.Contains(t, out, "resource repo://owner/name")
}

func TestFormatConversationHistory_Empty(t *testing.T) {
	assert.Equal(t, "", FormatConversationHistory(nil))
}

func TestFormatConversationHistory_RendersTurns(t *testing.T) {
	out := FormatConversationHistory([]model.ChatTurn{
		{Role: model.ChatRoleUser, Content: "how many users signed up last week?"},
		{Role: model.ChatRoleAssistant, Content: "42 users signed up last week."},
	})
	assert.Contains(t, out, "## Conversation History")
	assert.Contains(t, out, "user: how many users signed up last week?")
	assert.Contains(t, out, "assistant: 42 users signed up last week.")
}

func TestBuildDecisionPrompt_IncludesAllSections(t *testing.T) {
	b := NewBuilder(true)
	req := model.AIRequest{
		UserMessage: "how many orders last month?",
		AvailableSchemas: []model.SourceSchema{
			{SourceID: "1", SourceName: "shop", SourceKind: model.SourceKindPostgreSQL,
				Tables: []model.Table{{Name: "orders", Columns: []model.Column{{Name: "id", DataType: "int"}}}}},
		},
		ConversationHistory: []model.ChatTurn{{Role: model.ChatRoleUser, Content: "hi"}},
	}
	out := b.BuildDecisionPrompt(req)

	assert.Contains(t, out, "## Conversation History")
	assert.Contains(t, out, "how many orders last month?")
	assert.Contains(t, out, "table orders")
	assert.Contains(t, out, "## Decision Procedure")
	assert.Contains(t, out, "## Critical Rules")
	assert.Contains(t, out, "## Response Schema")
	assert.Contains(t, out, "## Worked Example")
	assert.Contains(t, out, "## Cross-Source Chaining Rules")

	// sections appear in the mandated order
	idxHistory := strings.Index(out, "## Conversation History")
	idxUser := strings.Index(out, "## User Message")
	idxSchemas := strings.Index(out, "## Available Data Sources")
	idxProcedure := strings.Index(out, "## Decision Procedure")
	assert.Less(t, idxHistory, idxUser)
	assert.Less(t, idxUser, idxSchemas)
	assert.Less(t, idxSchemas, idxProcedure)
}

func TestBuildDecisionPrompt_HistoryOmittedWhenDisabled(t *testing.T) {
	b := NewBuilder(false)
	req := model.AIRequest{
		UserMessage:         "hi",
		ConversationHistory: []model.ChatTurn{{Role: model.ChatRoleUser, Content: "should not appear"}},
	}
	out := b.BuildDecisionPrompt(req)
	assert.NotContains(t, out, "should not appear")
}

func TestBuildAnalysisPrompt_ForbidsRedactedMention(t *testing.T) {
	b := NewBuilder(true)
	out := b.BuildAnalysisPrompt("what's the average order value?", "columns: total (numeric)")
	assert.Contains(t, out, "redacted")
	assert.Contains(t, out, "what's the average order value?")
	assert.Contains(t, out, "columns: total (numeric)")
}

func TestBuildDashboardPrompt_IncludesAnalysisAndSummary(t *testing.T) {
	b := NewBuilder(true)
	out := b.BuildDashboardPrompt("orders trending up 12%", "columns: total (numeric)")
	assert.Contains(t, out, "orders trending up 12%")
	assert.Contains(t, out, "columns: total (numeric)")
}
