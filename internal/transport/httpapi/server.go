// Package httpapi is the echo-based HTTP surface over the orchestration
// core: the inbound AnalyzeRequest endpoint (§6) and an SSE activity
// stream. Grounded in the teacher's pkg/api/server.go (Echo v5 server
// struct wrapping service dependencies, setupRoutes composition) and
// pkg/api/handler_chat.go (bind-validate-submit handler shape), retargeted
// from session/chat-message submission to AnalyzeRequest submission. This
// package is explicitly out of the core per spec.md §1 ("CLI/HTTP
// framework glue... out of scope") — it exists only as the reference
// external collaborator the spec's Non-goals describe.
package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/riverfold/querymind/internal/model"
	"github.com/riverfold/querymind/internal/transport/channel"
)

// HandleFunc is the subset of *orchestrator.Orchestrator the HTTP layer
// needs, declared as a function type so this package never imports
// internal/orchestrator directly (keeping the dependency direction
// core -> transport interfaces, not transport -> core concrete types).
type HandleFunc func(ctx context.Context, req model.AnalyzeRequest) model.AnalyzeResponse

// Server is the HTTP API server, grounded in pkg/api/server.go's Server
// struct (Echo instance + service dependencies + setupRoutes on
// construction).
type Server struct {
	echo *echo.Echo
	hub  *channel.Hub
	run  HandleFunc
}

// NewServer creates a Server wired to hub (for the SSE activity stream)
// and handle (the orchestrator entry point), and registers routes.
func NewServer(hub *channel.Hub, handle HandleFunc) *Server {
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	s := &Server{echo: e, hub: hub, run: handle}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api/v1")
	api.POST("/analyze", s.analyzeHandler)
	api.GET("/stream/:userId", s.streamHandler)
	s.echo.GET("/healthz", func(c *echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}

// analyzeRequestBody is the wire shape of spec.md §6's AnalyzeRequest.
type analyzeRequestBody struct {
	UserMessage             string   `json:"userMessage"`
	ConversationID          *int64   `json:"conversationId,omitempty"`
	ConnectionIDs           []string `json:"connectionIds"`
	AIProvider              string   `json:"aiProvider,omitempty"`
	IsClarificationResponse bool     `json:"isClarificationResponse,omitempty"`
	ClarificationAnswer     string   `json:"clarificationAnswer,omitempty"`
}

// analyzeHandler handles POST /api/v1/analyze, grounded in
// pkg/api/handler_chat.go's bind-validate-submit shape.
func (s *Server) analyzeHandler(c *echo.Context) error {
	var body analyzeRequestBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	trimmed := trimSpace(body.UserMessage)
	if trimmed == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userMessage must not be blank")
	}
	if len(body.ConnectionIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "connectionIds must contain at least one id")
	}

	ownerID := extractAuthor(c)
	req := model.AnalyzeRequest{
		UserMessage:             body.UserMessage,
		ConversationID:          body.ConversationID,
		ConnectionIDs:           body.ConnectionIDs,
		AIProvider:              body.AIProvider,
		IsClarificationResponse: body.IsClarificationResponse,
		ClarificationAnswer:     body.ClarificationAnswer,
		OwnerID:                 ownerID,
		RequestID:               requestID(c),
	}

	resp := s.run(c.Request().Context(), req)
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusUnprocessableEntity
	}
	c.Response().Header().Set("X-Request-Id", req.RequestID)
	return c.JSON(status, resp)
}

// streamHandler serves Server-Sent Events carrying every channel.Hub
// envelope for one user, with the logical channel as the SSE event name,
// grounded in pkg/events' per-connection channel subscription model but
// delivered over SSE rather than a raw WebSocket frame.
func (s *Server) streamHandler(c *echo.Context) error {
	userID := c.Param("userId")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	sub, unsubscribe := s.hub.Subscribe(userID)
	defer unsubscribe()

	ctx := c.Request().Context()
	flusher, _ := c.Response().Writer.(http.Flusher)
	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-sub:
			if !ok {
				return nil
			}
			if _, err := c.Response().Write([]byte("event: " + env.Channel + "\ndata: " + string(env.Payload) + "\n\n")); err != nil {
				return nil
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// extractAuthor reads the caller identity from a trusted upstream header,
// grounded in pkg/api/auth.go's extractAuthor — authentication itself is
// an external collaborator per spec.md §1; this layer only trusts
// whatever identity the upstream auth proxy already established.
func extractAuthor(c *echo.Context) string {
	if uid := c.Request().Header.Get("X-User-Id"); uid != "" {
		return uid
	}
	return "anonymous"
}

// requestID returns the caller-supplied correlation id if present,
// otherwise mints one, mirroring the teacher's uuid.New().String()
// per-call ID convention (see e.g. pkg/services/chat_service.go).
func requestID(c *echo.Context) string {
	if rid := c.Request().Header.Get("X-Request-Id"); rid != "" {
		return rid
	}
	return uuid.New().String()
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// Start runs the HTTP server on addr until Shutdown stops it.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server by calling echo's Close.
func (s *Server) Shutdown() error {
	return s.echo.Close()
}
