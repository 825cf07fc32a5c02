package model

import "time"

// AnalyzeRequest is the inbound message described in spec.md §6.
type AnalyzeRequest struct {
	UserMessage             string
	ConversationID          *int64
	ConnectionIDs           []string
	AIProvider              string
	IsClarificationResponse bool
	ClarificationAnswer     string
	OwnerID                 string

	// RequestID correlates every log line and activity event an
	// invocation of Handle produces. Transports that accept an inbound
	// request ID (e.g. a client-supplied header) may set it; otherwise
	// the transport generates one, mirroring the teacher's
	// pkg/middleware request-ID-per-call convention.
	RequestID string
}

// ErrorInfo is the structured error attached to a failed AnalyzeResponse.
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// AnalyzeResponse is the C8 output described in spec.md §3.
type AnalyzeResponse struct {
	Success               bool        `json:"success"`
	ConversationID         int64       `json:"conversationId"`
	Summary                string      `json:"summary,omitempty"`
	QueryResults           []QueryResult `json:"queryResults,omitempty"`
	SuggestedVisualization any         `json:"suggestedVisualization,omitempty"`
	Error                  *ErrorInfo  `json:"error,omitempty"`
	Timestamp              time.Time   `json:"timestamp"`
}

// Phases of an orchestrator run, in their normal emission order, per
// spec.md §4.10. Each working phase opens with an in_progress activity.
// executing_queries emits one completed or error activity per query
// result; every other phase emits at most one terminal (completed or error)
// activity, and the completed and error phases consist of that activity
// alone.
const (
	PhaseUnderstandingIntent  = "understanding_intent"
	PhaseMappingDataSources   = "mapping_data_sources"
	PhaseAnalyzingSchemas     = "analyzing_schemas"
	PhaseGeneratingQueries    = "generating_queries"
	PhaseAIThinking           = "ai_thinking"
	PhaseExecutingQueries     = "executing_queries"
	PhaseAnalyzingData        = "analyzing_data"
	PhaseGeneratingDashboard  = "generating_dashboard"
	PhasePreparingResponse    = "preparing_response"
	PhaseCompleted            = "completed"
	PhaseError                = "error"
	PhasePing                 = "ping"
)

// Activity status values, per spec.md §4.10.
const (
	ActivityStatusInProgress = "in_progress"
	ActivityStatusCompleted  = "completed"
	ActivityStatusError      = "error"
	ActivityStatusOK         = "ok"
)

// ActivityEvent is one message on the `activity` channel.
type ActivityEvent struct {
	Phase          string    `json:"phase"`
	Status         string    `json:"status"`
	Message        string    `json:"message"`
	ConversationID *int64    `json:"conversationId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// ClarificationEvent is the sole message on the `clarification` channel.
type ClarificationEvent struct {
	ConversationID   int64     `json:"conversationId"`
	Question         string    `json:"question"`
	SuggestedOptions []string  `json:"suggestedOptions,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Known error codes, per spec.md §6/§7.
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNoConnections    = "NO_CONNECTIONS"
	ErrCodeSchemaError      = "SCHEMA_ERROR"
	ErrCodeQueryGenFailed   = "QUERY_GENERATION_FAILED"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeInvalidReqKind   = "INVALID_REQUEST_KIND"
	ErrCodeQueryTimeout     = "QUERY_TIMEOUT"
	ErrCodeConnectionError  = "CONNECTION_ERROR"
	ErrCodeUnknownSourceKind = "UNKNOWN_SOURCE_KIND"
)
