// Package respparse implements the response-parsing contract shared by
// every Provider (§4.4): code-fence stripping, brace extraction, JSON
// decoding with a DIRECT_ANSWER default, and tagged dataRequests parsing.
// Centralising this here means every provider is bound to the same
// parsing law and is covered by one shared test suite instead of four
// divergent ones.
package respparse

import (
	"encoding/json"
	"strings"

	"github.com/riverfold/querymind/internal/model"
)

// rawDataRequest mirrors the JSON shape the AI emits for one data request:
// every field from every DataRequest variant, all optional, disambiguated
// by kind.
type rawDataRequest struct {
	Kind        string         `json:"kind"`
	SourceID    string         `json:"sourceId"`
	Step        *int           `json:"step"`
	DependsOn   *int           `json:"dependsOn"`
	OutputAs    string         `json:"outputAs"`
	OutputField string         `json:"outputField"`
	Description string         `json:"description"`
	Explanation string         `json:"explanation"`
	SQL         string         `json:"sql"`
	Collection  string         `json:"collection"`
	Operation   string         `json:"operation"`
	Filter      any            `json:"filter"`
	Limit       *int           `json:"limit"`
	Index       string         `json:"index"`
	Query       any            `json:"query"`
	Size        *int           `json:"size"`
	ToolName    string         `json:"toolName"`
	Arguments   map[string]any `json:"arguments"`
	URI         string         `json:"uri"`
}

type rawResponse struct {
	Type                  string           `json:"type"`
	Content               string           `json:"content"`
	Intent                string           `json:"intent"`
	ClarificationQuestion string           `json:"clarificationQuestion"`
	SuggestedOptions      []string         `json:"suggestedOptions"`
	DataRequests          []rawDataRequest `json:"dataRequests"`
}

// Parse applies the shared response-parsing pipeline to raw model output:
// strip code fences, isolate the JSON object, decode it, and default an
// unrecognised or missing type to DIRECT_ANSWER.
func Parse(raw string) (model.AIResponse, error) {
	cleaned := stripCodeFences(raw)
	cleaned = extractJSONObject(cleaned)

	var parsed rawResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return model.AIResponse{
			Type:    model.AIResponseDirectAnswer,
			Content: raw,
		}, err
	}

	resp := model.AIResponse{
		Type:                  normalizeType(parsed.Type),
		Content:               parsed.Content,
		Intent:                parsed.Intent,
		ClarificationQuestion: parsed.ClarificationQuestion,
		SuggestedOptions:      parsed.SuggestedOptions,
	}

	if resp.Type == model.AIResponseReadyToExecute {
		resp.DataRequests = make([]model.DataRequest, 0, len(parsed.DataRequests))
		for _, r := range parsed.DataRequests {
			resp.DataRequests = append(resp.DataRequests, toDataRequest(r))
		}
	}

	return resp, nil
}

func normalizeType(t string) model.AIResponseType {
	switch model.AIResponseType(t) {
	case model.AIResponseClarificationNeeded, model.AIResponseReadyToExecute, model.AIResponseDirectAnswer:
		return model.AIResponseType(t)
	default:
		return model.AIResponseDirectAnswer
	}
}

func toDataRequest(r rawDataRequest) model.DataRequest {
	req := model.DataRequest{
		Kind:        model.RequestKind(r.Kind),
		SourceID:    r.SourceID,
		Step:        r.Step,
		DependsOn:   r.DependsOn,
		OutputAs:    r.OutputAs,
		OutputField: r.OutputField,
		Description: r.Description,
		Explanation: r.Explanation,
		SQL:         r.SQL,
		Collection:  r.Collection,
		Operation:   model.MongoOperation(r.Operation),
		Limit:       r.Limit,
		Index:       r.Index,
		Size:        r.Size,
		ToolName:    r.ToolName,
		Arguments:   r.Arguments,
		URI:         r.URI,
	}
	if r.Filter != nil {
		if b, err := json.Marshal(r.Filter); err == nil {
			req.FilterJSON = string(b)
		}
	}
	if r.Query != nil {
		if b, err := json.Marshal(r.Query); err == nil {
			req.QueryDSL = string(b)
		}
	}
	return req
}

// stripCodeFences removes a single leading/trailing markdown code fence,
// with or without a language tag (```json ... ``` or ``` ... ```).
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 && !strings.ContainsAny(s[:nl], "{}\"") {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the substring from the first '{' to the last
// '}' when s does not already start with '{'. This tolerates a model that
// prefaces its JSON with prose despite instructions not to.
func extractJSONObject(s string) string {
	if strings.HasPrefix(s, "{") {
		return s
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
