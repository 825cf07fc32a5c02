package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverfold/querymind/internal/model"
	"github.com/riverfold/querymind/internal/transport/channel"
)

func newTestServer(handle HandleFunc) *Server {
	return NewServer(channel.NewHub(4), handle)
}

func TestAnalyzeHandler_RejectsBlankMessage(t *testing.T) {
	s := newTestServer(func(ctx context.Context, req model.AnalyzeRequest) model.AnalyzeResponse {
		t.Fatal("handler should not have been invoked")
		return model.AnalyzeResponse{}
	})

	body, _ := json.Marshal(analyzeRequestBody{UserMessage: "   ", ConnectionIDs: []string{"conn-1"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeHandler_RejectsNoConnections(t *testing.T) {
	s := newTestServer(func(ctx context.Context, req model.AnalyzeRequest) model.AnalyzeResponse {
		t.Fatal("handler should not have been invoked")
		return model.AnalyzeResponse{}
	})

	body, _ := json.Marshal(analyzeRequestBody{UserMessage: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeHandler_SuccessDelegatesAndEchoesRequestID(t *testing.T) {
	var captured model.AnalyzeRequest
	s := newTestServer(func(ctx context.Context, req model.AnalyzeRequest) model.AnalyzeResponse {
		captured = req
		return model.AnalyzeResponse{Success: true, ConversationID: 42}
	})

	body, _ := json.Marshal(analyzeRequestBody{UserMessage: "how many users signed up today", ConnectionIDs: []string{"conn-1"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "alice")
	req.Header.Set("X-Request-Id", "fixed-request-id")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", captured.OwnerID)
	assert.Equal(t, "fixed-request-id", captured.RequestID)
	assert.Equal(t, "fixed-request-id", rec.Header().Get("X-Request-Id"))

	var resp model.AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.ConversationID)
}

func TestAnalyzeHandler_FailureReportsUnprocessable(t *testing.T) {
	s := newTestServer(func(ctx context.Context, req model.AnalyzeRequest) model.AnalyzeResponse {
		return model.AnalyzeResponse{Success: false, Error: &model.ErrorInfo{Code: model.ErrCodeInternal}}
	})

	body, _ := json.Marshal(analyzeRequestBody{UserMessage: "hi", ConnectionIDs: []string{"conn-1"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID_GeneratesWhenHeaderAbsent(t *testing.T) {
	var captured model.AnalyzeRequest
	s := newTestServer(func(ctx context.Context, req model.AnalyzeRequest) model.AnalyzeResponse {
		captured = req
		return model.AnalyzeResponse{Success: true}
	})

	body, _ := json.Marshal(analyzeRequestBody{UserMessage: "hi", ConnectionIDs: []string{"conn-1"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)
	assert.NotEmpty(t, captured.RequestID)
}

func TestTrimSpace(t *testing.T) {
	assert.Equal(t, "hello", trimSpace("  hello  "))
	assert.Equal(t, "", trimSpace("   \t\n "))
	assert.Equal(t, "a b", trimSpace("a b"))
}
