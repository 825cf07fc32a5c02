// Package planexec implements the Query Plan Executor (C6): step ordering,
// inter-step variable substitution, and heterogeneous routing across data
// source adapters. Grounded in the teacher's pkg/agent/orchestrator
// concurrency idioms (collector.go's per-step result aggregation,
// runner.go's bounded dispatch), retargeted from sub-agent fan-out to
// data-request fan-out.
package planexec

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/riverfold/querymind/internal/datasource"
	"github.com/riverfold/querymind/internal/model"
	"github.com/riverfold/querymind/internal/telemetry"
)

// Registry is the subset of datasource.Registry the executor depends on.
type Registry interface {
	GetDataSourceByConnectionID(ctx context.Context, connectionID, ownerID string) (datasource.Adapter, error)
}

// Executor runs a validated plan against a Registry.
type Executor struct {
	registry Registry
}

// NewExecutor creates an Executor bound to a Registry.
func NewExecutor(registry Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute runs requests for ownerID, scoped to connectionIDs. It selects
// chained mode when any request carries a Step, otherwise parallel mode,
// per spec.md §4.6. Results are always returned in plan order.
func (e *Executor) Execute(ctx context.Context, requests []model.DataRequest, connectionIDs []string, ownerID string) []model.QueryResult {
	anyStep := false
	for _, r := range requests {
		if r.Step != nil {
			anyStep = true
			break
		}
	}
	if anyStep {
		return e.executeChained(ctx, requests, connectionIDs, ownerID)
	}
	return e.executeParallel(ctx, requests, connectionIDs, ownerID)
}

// executeParallel groups requests by resolved connection ID and runs each
// group's requests sequentially; groups may run concurrently.
func (e *Executor) executeParallel(ctx context.Context, requests []model.DataRequest, connectionIDs []string, ownerID string) []model.QueryResult {
	results := make([]model.QueryResult, len(requests))
	type job struct {
		idx int
		req model.DataRequest
	}

	groups := make(map[string][]job)
	order := make([]string, 0)
	for i, r := range requests {
		connID := resolveConnectionID(r, connectionIDs)
		if _, ok := groups[connID]; !ok {
			order = append(order, connID)
		}
		groups[connID] = append(groups[connID], job{idx: i, req: r})
	}

	done := make(chan struct{}, len(order))
	for _, connID := range order {
		connID := connID
		go func() {
			defer func() { done <- struct{}{} }()
			for _, j := range groups[connID] {
				results[j.idx] = e.runOne(ctx, j.req, connID, ownerID)
			}
		}()
	}
	for range order {
		<-done
	}
	return results
}

// executeChained sorts requests by step ascending and runs them in strict
// order, threading resolved `$name` values between dependent steps.
func (e *Executor) executeChained(ctx context.Context, requests []model.DataRequest, connectionIDs []string, ownerID string) []model.QueryResult {
	ordered := make([]model.DataRequest, len(requests))
	copy(ordered, requests)
	sortByStep(ordered)

	results := make([]model.QueryResult, len(ordered))
	vars := make(map[string]string)

	for i, r := range ordered {
		req := r
		if req.DependsOn != nil && len(vars) > 0 && req.Kind == model.RequestKindSQLQuery {
			req.SQL = ReplaceVariables(req.SQL, vars)
		}

		connID := resolveConnectionID(req, connectionIDs)
		qr := e.runOne(ctx, req, connID, ownerID)
		results[i] = qr

		if req.OutputAs != "" && req.OutputField != "" && qr.Success && len(qr.Rows) > 0 {
			if value, ok := extractOutputValue(qr.Rows, req.OutputField); ok {
				vars[req.OutputAs] = value
			}
		}
	}
	return results
}

func sortByStep(requests []model.DataRequest) {
	for i := 1; i < len(requests); i++ {
		for j := i; j > 0 && *requests[j].Step < *requests[j-1].Step; j-- {
			requests[j], requests[j-1] = requests[j-1], requests[j]
		}
	}
}

// resolveConnectionID prefers a request's SourceID (parsed as an integer,
// and present in connectionIDs); otherwise, per the REDESIGN FLAGS
// guidance in spec.md §9, it refuses to silently guess when more than one
// connection is available, falling back to "the first connection" only
// when exactly one was supplied.
// resolveConnectionID prefers r.SourceID when it parses as an integer and
// appears in connectionIDs. Otherwise it falls back to "the first
// connection" only when exactly one was supplied; with zero or several
// candidates and no matching sourceId, it refuses to guess and returns ""
// (the caller reports this as an unresolved-connection error rather than
// silently picking among ambiguous candidates).
func resolveConnectionID(r model.DataRequest, connectionIDs []string) string {
	if r.SourceID != "" {
		if _, err := strconv.Atoi(r.SourceID); err == nil {
			for _, id := range connectionIDs {
				if id == r.SourceID {
					return id
				}
			}
		}
	}
	if len(connectionIDs) == 1 {
		return connectionIDs[0]
	}
	return ""
}

func (e *Executor) runOne(ctx context.Context, req model.DataRequest, connID, ownerID string) model.QueryResult {
	ctx, span := telemetry.StartStep(ctx, connID, string(req.Kind))
	var stepErr error
	defer func() { telemetry.EndWithError(span, stepErr) }()

	if connID == "" {
		stepErr = fmt.Errorf("no connection could be resolved for this request")
		return errorResult(req, connID, stepErr.Error())
	}

	adapter, err := e.registry.GetDataSourceByConnectionID(ctx, connID, ownerID)
	if err != nil {
		stepErr = err
		return errorResult(req, connID, fmt.Sprintf("failed to resolve connection: %v", err))
	}
	if adapter == nil {
		stepErr = fmt.Errorf("connection not found or not owned by the caller")
		return errorResult(req, connID, stepErr.Error())
	}
	if !adapter.IsAvailable(ctx) {
		stepErr = fmt.Errorf("data source is not available")
		return errorResult(req, connID, stepErr.Error())
	}

	start := time.Now()
	execResult, err := adapter.Execute(ctx, req)
	execResult.ElapsedMs = time.Since(start).Milliseconds()
	if err != nil {
		execResult.Success = false
		if execResult.ErrorMessage == "" {
			execResult.ErrorMessage = err.Error()
		}
		stepErr = err
	}

	return model.QueryResult{
		ExecutionResult: execResult,
		ConnectionID:    connID,
		ConnectionName:  adapter.Name(),
		Explanation:     req.Explanation,
		Query:           requestText(req),
	}
}

func errorResult(req model.DataRequest, connID, msg string) model.QueryResult {
	return model.QueryResult{
		ExecutionResult: model.ExecutionResult{Success: false, ErrorMessage: msg},
		ConnectionID:    connID,
		Explanation:     req.Explanation,
		Query:           requestText(req),
	}
}

func requestText(req model.DataRequest) string {
	switch req.Kind {
	case model.RequestKindSQLQuery:
		return req.SQL
	case model.RequestKindMongoQuery:
		return fmt.Sprintf("%s.%s(%s)", req.Collection, req.Operation, req.FilterJSON)
	case model.RequestKindESQuery:
		return fmt.Sprintf("%s: %s", req.Index, req.QueryDSL)
	case model.RequestKindMCPToolCall:
		return req.ToolName
	case model.RequestKindMCPResourceRead:
		return req.URI
	default:
		return ""
	}
}

// extractOutputValue resolves outputField from row 0 of rows using exact
// then case-insensitive column match. If rows has more than one row, the
// values from every row are joined with ", " so the caller can build a
// SQL IN (...) list.
func extractOutputValue(rows []map[string]any, field string) (string, bool) {
	if len(rows) == 0 {
		return "", false
	}
	if len(rows) == 1 {
		return stringifyField(rows[0], field)
	}
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		v, ok := stringifyField(row, field)
		if !ok {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return "", false
	}
	joined := ""
	for i, v := range values {
		if i > 0 {
			joined += ", "
		}
		joined += v
	}
	return joined, true
}

func stringifyField(row map[string]any, field string) (string, bool) {
	if v, ok := row[field]; ok {
		return fmt.Sprintf("%v", v), true
	}
	for k, v := range row {
		if equalFold(k, field) {
			return fmt.Sprintf("%v", v), true
		}
	}
	return "", false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
