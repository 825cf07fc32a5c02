// Package orchestrator implements the Chat Orchestrator (C8): the
// per-message state machine that drives intent understanding, data source
// mapping, AI-driven query planning, plan execution, and data analysis,
// publishing progress on the way. Grounded in pkg/queue/chat_executor.go's
// ChatMessageExecutor — the same phase-by-phase "update status, publish
// event, bail out on failure" shape, retargeted from a DB-backed async
// agent run to an in-memory, streamed AI query pipeline.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/riverfold/querymind/internal/convstate"
	"github.com/riverfold/querymind/internal/datasource"
	"github.com/riverfold/querymind/internal/model"
	"github.com/riverfold/querymind/internal/planexec"
	"github.com/riverfold/querymind/internal/provider"
	"github.com/riverfold/querymind/internal/summarize"
	"github.com/riverfold/querymind/internal/telemetry"
)

// Registry is the subset of datasource.Registry the orchestrator needs:
// resolving a connection by (id, ownerID) to a borrowed adapter. Declared
// locally, mirroring planexec.Registry, so tests can supply a fake without
// constructing a full datasource.Registry.
type Registry interface {
	GetDataSourceByConnectionID(ctx context.Context, connectionID, ownerID string) (datasource.Adapter, error)
}

// ConversationStore resolves, creates, and persists conversations and
// their messages. This is the seam the core depends on; durable storage
// of conversations is an external collaborator (see internal/storage).
type ConversationStore interface {
	// OwnedConversation reports whether conversationID exists and is
	// owned by ownerID.
	OwnedConversation(ctx context.Context, conversationID int64, ownerID string) (bool, error)
	// CreateConversation creates a new conversation owned by ownerID,
	// titled from titleSeed (already truncated by the caller), and
	// returns its ID.
	CreateConversation(ctx context.Context, ownerID, titleSeed string) (int64, error)
	// SaveMessage persists one turn of a conversation.
	SaveMessage(ctx context.Context, conversationID int64, role model.ChatRole, content string) error
}

// Publisher delivers the five C10 channels. Implementations live in
// internal/transport; this package only depends on the interface.
type Publisher interface {
	PublishActivity(ctx context.Context, userID string, ev model.ActivityEvent) error
	PublishClarification(ctx context.Context, userID string, ev model.ClarificationEvent) error
	PublishResponse(ctx context.Context, userID string, resp model.AnalyzeResponse) error
	PublishError(ctx context.Context, userID string, resp model.AnalyzeResponse) error
}

// titleSeedLen caps the auto-generated conversation title at the first 50
// characters of the triggering message, per spec.md §4.8 step 1.
const titleSeedLen = 50

// Orchestrator wires C3 (via Registry), C4 (via provider.Registry), C5,
// C6, C7, C9, and a Publisher into the ten-step flow of spec.md §4.8.
type Orchestrator struct {
	registry   Registry
	providers  *provider.Registry
	builder    PromptBuilder
	executor   *planexec.Executor
	convStore  ConversationStore
	conv       ConversationManager
	publisher  Publisher

	enableDashboard bool
}

// PromptBuilder is the subset of *prompt.Builder used here, declared
// locally so tests can substitute a stub without importing internal/prompt.
type PromptBuilder interface {
	provider.PromptBuilder
	BuildAnalysisPrompt(userQuestion, summary string) string
	BuildDashboardPrompt(analysisResult, summary string) string
}

// ConversationManager is the subset of *convstate.Manager used here.
type ConversationManager interface {
	GetOrCreate(ctx context.Context, conversationID int64) (convstate.Snapshot, error)
	AddUserMessage(conversationID int64, content string)
	UpdateState(conversationID int64, resp model.AIResponse)
}

// New creates an Orchestrator. enableDashboard toggles step 9 (dashboard
// generation), which spec.md §4.8 marks optional.
func New(
	registry Registry,
	providers *provider.Registry,
	builder PromptBuilder,
	executor *planexec.Executor,
	convStore ConversationStore,
	conv ConversationManager,
	publisher Publisher,
	enableDashboard bool,
) *Orchestrator {
	return &Orchestrator{
		registry:        registry,
		providers:       providers,
		builder:         builder,
		executor:        executor,
		convStore:       convStore,
		conv:            conv,
		publisher:       publisher,
		enableDashboard: enableDashboard,
	}
}

// Handle runs the full C8 flow for one inbound message and returns the
// final AnalyzeResponse, having published every intermediate activity,
// clarification, response, or error event along the way. A panic anywhere
// in the flow is recovered and converted to an INTERNAL_ERROR response,
// per spec.md §4.8's closing invariant.
func (o *Orchestrator) Handle(ctx context.Context, req model.AnalyzeRequest) (resp model.AnalyzeResponse) {
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	var convID int64
	defer func() {
		if r := recover(); r != nil {
			slog.Error("orchestrator: recovered panic", "request_id", req.RequestID, "panic", r)
			resp = o.fail(ctx, req.OwnerID, convID, model.ErrCodeInternal, fmt.Sprintf("internal error: %v", r), "retry the request")
		}
	}()
	slog.Debug("orchestrator: handling request", "request_id", req.RequestID, "owner_id", req.OwnerID)

	if strings.TrimSpace(req.UserMessage) == "" {
		return o.fail(ctx, req.OwnerID, convID, model.ErrCodeValidation, "user message must not be empty or whitespace-only", "provide a question to analyze")
	}
	if len(req.ConnectionIDs) == 0 {
		return o.fail(ctx, req.OwnerID, convID, model.ErrCodeValidation, "connectionIds must not be empty", "specify at least one connection id")
	}

	convID = o.resolveConversationID(ctx, req)

	o.emit(ctx, req.OwnerID, model.PhaseUnderstandingIntent, model.ActivityStatusInProgress, "reading your message", &convID)
	if err := o.convStore.SaveMessage(ctx, convID, model.ChatRoleUser, req.UserMessage); err != nil {
		slog.Warn("orchestrator: failed to persist user message", "error", err)
	}
	priorHistory := o.historyBefore(ctx, convID)
	o.conv.AddUserMessage(convID, req.UserMessage)
	o.emit(ctx, req.OwnerID, model.PhaseUnderstandingIntent, model.ActivityStatusCompleted, "understood the request", &convID)

	o.emit(ctx, req.OwnerID, model.PhaseMappingDataSources, model.ActivityStatusInProgress, "resolving data sources", &convID)
	resolvedConnIDs, schemasBySource := o.resolveConnections(ctx, req)
	if len(resolvedConnIDs) == 0 {
		return o.fail(ctx, req.OwnerID, convID, model.ErrCodeNoConnections, "none of the requested connections could be resolved", "check the connection ids and try again")
	}

	o.emit(ctx, req.OwnerID, model.PhaseAnalyzingSchemas, model.ActivityStatusInProgress, "inspecting schemas", &convID)
	schemas := o.extractSchemas(ctx, resolvedConnIDs, schemasBySource)
	if len(schemas) == 0 {
		return o.fail(ctx, req.OwnerID, convID, model.ErrCodeSchemaError, "no schema could be extracted from any resolved connection", "verify the connections are reachable")
	}
	o.emit(ctx, req.OwnerID, model.PhaseAnalyzingSchemas, model.ActivityStatusCompleted, fmt.Sprintf("inspected %d source(s)", len(schemas)), &convID)

	o.emit(ctx, req.OwnerID, model.PhaseGeneratingQueries, model.ActivityStatusInProgress, "choosing an AI provider", &convID)
	prov, err := o.providers.Get(req.AIProvider)
	if err != nil {
		return o.fail(ctx, req.OwnerID, convID, model.ErrCodeInternal, err.Error(), "configure at least one AI provider")
	}

	aiReq := model.AIRequest{
		UserMessage:         req.UserMessage,
		AvailableSchemas:    schemas,
		ConversationHistory: priorHistory,
		UserID:              req.OwnerID,
		ConversationID:      convID,
		FirstMessage:        len(priorHistory) == 0,
	}
	o.emit(ctx, req.OwnerID, model.PhaseAIThinking, model.ActivityStatusInProgress, "thinking", &convID)
	spanCtx, span := telemetry.StartProviderCall(ctx, prov.Name(), true)
	aiResp, err := prov.StreamChat(spanCtx, aiReq, func(chunk model.StreamChunk) {
		o.emit(ctx, req.OwnerID, model.PhaseAIThinking, model.ActivityStatusInProgress, chunk.Content, &convID)
	})
	telemetry.EndWithError(span, err)
	if err != nil {
		return o.fail(ctx, req.OwnerID, convID, model.ErrCodeInternal, err.Error(), "try rephrasing the request")
	}

	switch aiResp.Type {
	case model.AIResponseClarificationNeeded:
		return o.handleClarification(ctx, req.OwnerID, convID, aiResp)
	case model.AIResponseDirectAnswer:
		return o.handleDirectAnswer(ctx, req.OwnerID, convID, aiResp)
	case model.AIResponseReadyToExecute:
		if err := planexec.ValidatePlan(aiResp.DataRequests); err != nil {
			return o.fail(ctx, req.OwnerID, convID, model.ErrCodeQueryGenFailed, err.Error(), "ask the AI to try again")
		}
		return o.handlePlan(ctx, req, convID, aiResp, resolvedConnIDs)
	default:
		return o.fail(ctx, req.OwnerID, convID, model.ErrCodeInternal, fmt.Sprintf("unknown AI response type %q", aiResp.Type), "")
	}
}

func (o *Orchestrator) handleClarification(ctx context.Context, ownerID string, convID int64, aiResp model.AIResponse) model.AnalyzeResponse {
	if err := o.convStore.SaveMessage(ctx, convID, model.ChatRoleAssistant, aiResp.ClarificationQuestion); err != nil {
		slog.Warn("orchestrator: failed to persist clarification turn", "error", err)
	}
	o.conv.UpdateState(convID, aiResp)
	if pubErr := o.publisher.PublishClarification(ctx, ownerID, model.ClarificationEvent{
		ConversationID:   convID,
		Question:         aiResp.ClarificationQuestion,
		SuggestedOptions: aiResp.SuggestedOptions,
		Timestamp:        time.Now(),
	}); pubErr != nil {
		slog.Warn("orchestrator: failed to publish clarification", "error", pubErr)
	}
	return model.AnalyzeResponse{Success: true, ConversationID: convID, Timestamp: time.Now()}
}

func (o *Orchestrator) handleDirectAnswer(ctx context.Context, ownerID string, convID int64, aiResp model.AIResponse) model.AnalyzeResponse {
	if err := o.convStore.SaveMessage(ctx, convID, model.ChatRoleAssistant, aiResp.Content); err != nil {
		slog.Warn("orchestrator: failed to persist direct answer", "error", err)
	}
	o.conv.UpdateState(convID, aiResp)

	resp := model.AnalyzeResponse{
		Success:        true,
		ConversationID: convID,
		Summary:        aiResp.Content,
		Timestamp:      time.Now(),
	}
	o.emit(ctx, ownerID, model.PhaseCompleted, model.ActivityStatusCompleted, "done", &convID)
	o.publishResponse(ctx, ownerID, resp)
	return resp
}

func (o *Orchestrator) handlePlan(ctx context.Context, req model.AnalyzeRequest, convID int64, aiResp model.AIResponse, connIDs []string) model.AnalyzeResponse {
	ownerID := req.OwnerID

	o.emit(ctx, ownerID, model.PhaseExecutingQueries, model.ActivityStatusInProgress, "running queries", &convID)
	results := o.executor.Execute(ctx, aiResp.DataRequests, connIDs, ownerID)
	for _, r := range results {
		status := model.ActivityStatusCompleted
		msg := fmt.Sprintf("%s: %d row(s) in %dms", r.ConnectionName, r.RowCount, r.ElapsedMs)
		if !r.Success {
			status = model.ActivityStatusError
			msg = fmt.Sprintf("%s: %s", r.ConnectionName, r.ErrorMessage)
		}
		o.emit(ctx, ownerID, model.PhaseExecutingQueries, status, msg, &convID)
	}

	successful := make([]model.QueryResult, 0, len(results))
	for _, r := range results {
		if r.Success {
			successful = append(successful, r)
		}
	}

	o.emit(ctx, ownerID, model.PhaseAnalyzingData, model.ActivityStatusInProgress, "analyzing results", &convID)
	analysis := o.analyze(ctx, ownerID, convID, req.UserMessage, successful)

	var dashboard any
	if o.enableDashboard {
		o.emit(ctx, ownerID, model.PhaseGeneratingDashboard, model.ActivityStatusInProgress, "building a dashboard", &convID)
		dashboard = o.buildDashboard(ctx, ownerID, convID, analysis, successful)
	}

	resp := model.AnalyzeResponse{
		Success:                true,
		ConversationID:         convID,
		Summary:                analysis.Analysis,
		QueryResults:           results,
		SuggestedVisualization: dashboard,
		Timestamp:              time.Now(),
	}

	aiResp.Content = analysis.Analysis
	if err := o.convStore.SaveMessage(ctx, convID, model.ChatRoleAssistant, analysis.Analysis); err != nil {
		slog.Warn("orchestrator: failed to persist analysis turn", "error", err)
	}
	o.conv.UpdateState(convID, aiResp)

	o.emit(ctx, ownerID, model.PhaseCompleted, model.ActivityStatusCompleted, "done", &convID)
	o.publishResponse(ctx, ownerID, resp)
	return resp
}

// analysisResult is the JSON shape the analysis-phase AI call is asked to
// produce, per spec.md §4.8 step 8.
type analysisResult struct {
	Analysis         string `json:"analysis"`
	Title            string `json:"title"`
	KeyMetrics       []any  `json:"keyMetrics"`
	ChartSuggestions []any  `json:"chartSuggestions"`
}

func (o *Orchestrator) analyze(ctx context.Context, ownerID string, convID int64, userMessage string, successful []model.QueryResult) analysisResult {
	if len(successful) == 0 {
		return analysisResult{Analysis: "no data returned", Title: "Data Analysis", KeyMetrics: []any{}, ChartSuggestions: []any{}}
	}

	summary := summarize.Render(summarize.Summarize(successful))
	analysisPrompt := model.AIRequest{RawPrompt: true, Prompt: o.builder.BuildAnalysisPrompt(userMessage, summary)}

	prov, err := o.providers.Get("")
	if err != nil {
		return analysisResult{Analysis: "analysis unavailable: no AI provider configured", Title: "Data Analysis", KeyMetrics: []any{}, ChartSuggestions: []any{}}
	}

	aiResp, err := prov.StreamChat(ctx, analysisPrompt, func(chunk model.StreamChunk) {
		o.emit(ctx, ownerID, model.PhaseAnalyzingData, model.ActivityStatusInProgress, chunk.Content, &convID)
	})
	if err != nil {
		return analysisResult{Analysis: fmt.Sprintf("analysis failed: %v", err), Title: "Data Analysis", KeyMetrics: []any{}, ChartSuggestions: []any{}}
	}

	var parsed analysisResult
	if jsonErr := json.Unmarshal([]byte(aiResp.Content), &parsed); jsonErr != nil {
		return analysisResult{Analysis: aiResp.Content, Title: "Data Analysis", KeyMetrics: []any{}, ChartSuggestions: []any{}}
	}
	return parsed
}

func (o *Orchestrator) buildDashboard(ctx context.Context, ownerID string, convID int64, analysis analysisResult, successful []model.QueryResult) any {
	summary := summarize.Render(summarize.Summarize(successful))
	dashboardPrompt := model.AIRequest{RawPrompt: true, Prompt: o.builder.BuildDashboardPrompt(analysis.Analysis, summary)}

	prov, err := o.providers.Get("")
	if err != nil {
		return nil
	}

	aiResp, err := prov.StreamChat(ctx, dashboardPrompt, func(chunk model.StreamChunk) {
		o.emit(ctx, ownerID, model.PhaseGeneratingDashboard, model.ActivityStatusInProgress, chunk.Content, &convID)
	})
	if err != nil {
		slog.Warn("orchestrator: dashboard generation failed", "error", err)
		return nil
	}

	var chartConfig any
	if jsonErr := json.Unmarshal([]byte(aiResp.Content), &chartConfig); jsonErr != nil {
		slog.Warn("orchestrator: dashboard response was not valid JSON", "error", jsonErr)
		return nil
	}
	return chartConfig
}

func (o *Orchestrator) resolveConversationID(ctx context.Context, req model.AnalyzeRequest) int64 {
	if req.ConversationID != nil {
		owned, err := o.convStore.OwnedConversation(ctx, *req.ConversationID, req.OwnerID)
		if err == nil && owned {
			return *req.ConversationID
		}
	}

	seed := req.UserMessage
	if r := []rune(seed); len(r) > titleSeedLen {
		seed = string(r[:titleSeedLen])
	}
	id, err := o.convStore.CreateConversation(ctx, req.OwnerID, seed)
	if err != nil {
		slog.Error("orchestrator: failed to create conversation, falling back to zero id", "error", err)
		return 0
	}
	return id
}

func (o *Orchestrator) historyBefore(ctx context.Context, convID int64) []model.ChatTurn {
	snap, err := o.conv.GetOrCreate(ctx, convID)
	if err != nil {
		slog.Warn("orchestrator: failed to load conversation state", "error", err)
		return nil
	}
	return snap.History
}

func (o *Orchestrator) resolveConnections(ctx context.Context, req model.AnalyzeRequest) ([]string, map[string]datasource.Adapter) {
	resolved := make([]string, 0, len(req.ConnectionIDs))
	adapters := make(map[string]datasource.Adapter, len(req.ConnectionIDs))
	for _, connID := range req.ConnectionIDs {
		adapter, err := o.registry.GetDataSourceByConnectionID(ctx, connID, req.OwnerID)
		if err != nil || adapter == nil {
			continue
		}
		resolved = append(resolved, connID)
		adapters[connID] = adapter
	}
	return resolved, adapters
}

func (o *Orchestrator) extractSchemas(ctx context.Context, connIDs []string, adapters map[string]datasource.Adapter) []model.SourceSchema {
	schemas := make([]model.SourceSchema, 0, len(connIDs))
	for _, connID := range connIDs {
		adapter := adapters[connID]
		schema, err := adapter.ExtractSchema(ctx)
		if err != nil {
			slog.Warn("orchestrator: schema extraction failed, skipping connection", "connection_id", connID, "error", err)
			continue
		}
		if schema != nil {
			schemas = append(schemas, *schema)
		}
	}
	return schemas
}

func (o *Orchestrator) fail(ctx context.Context, ownerID string, convID int64, code, message, suggestion string) model.AnalyzeResponse {
	resp := model.AnalyzeResponse{
		Success:        false,
		ConversationID: convID,
		Error:          &model.ErrorInfo{Code: code, Message: message, Suggestion: suggestion},
		Timestamp:      time.Now(),
	}
	o.emit(ctx, ownerID, model.PhaseError, model.ActivityStatusError, message, &convID)
	if err := o.publisher.PublishError(ctx, ownerID, resp); err != nil {
		slog.Warn("orchestrator: failed to publish error response", "error", err)
	}
	return resp
}

func (o *Orchestrator) publishResponse(ctx context.Context, ownerID string, resp model.AnalyzeResponse) {
	if err := o.publisher.PublishResponse(ctx, ownerID, resp); err != nil {
		slog.Warn("orchestrator: failed to publish response", "error", err)
	}
}

func (o *Orchestrator) emit(ctx context.Context, ownerID, phase, status, message string, convID *int64) {
	if err := o.publisher.PublishActivity(ctx, ownerID, model.ActivityEvent{
		Phase:          phase,
		Status:         status,
		Message:        message,
		ConversationID: convID,
		Timestamp:      time.Now(),
	}); err != nil {
		slog.Warn("orchestrator: failed to publish activity", "phase", phase, "error", err)
	}
}
