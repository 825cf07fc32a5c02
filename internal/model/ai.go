package model

// AIResponseType discriminates the AI Provider Adapter's response union
// (§4.4): a plan ready to run, a clarifying question, or a plain answer.
type AIResponseType string

const (
	AIResponseClarificationNeeded AIResponseType = "CLARIFICATION_NEEDED"
	AIResponseReadyToExecute      AIResponseType = "READY_TO_EXECUTE"
	AIResponseDirectAnswer        AIResponseType = "DIRECT_ANSWER"
)

// ChatRole identifies the speaker of one ConversationHistory entry.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatTurn is one turn of prior conversation, supplied to the provider for
// context when the decision prompt includes history.
type ChatTurn struct {
	Role    ChatRole
	Content string
}

// AIRequest is the uniform input to every Provider. When RawPrompt is
// true, the adapter sends Prompt verbatim (used for the analysis and
// dashboard phases); otherwise the provider builds the prompt itself via
// the prompt builder.
type AIRequest struct {
	UserMessage         string
	AvailableSchemas    []SourceSchema
	ConversationHistory []ChatTurn
	UserID              string
	ConversationID      int64
	FirstMessage        bool
	RawPrompt           bool
	Prompt              string
}

// AIResponse is the uniform, parsed output of every Provider.
type AIResponse struct {
	Type                  AIResponseType
	Content               string
	Intent                string
	ClarificationQuestion string
	SuggestedOptions      []string
	DataRequests          []DataRequest
}

// StreamChunk is one text delta delivered during streaming chat.
type StreamChunk struct {
	Content string
}
