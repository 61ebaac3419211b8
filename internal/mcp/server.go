// Package mcp exposes the registered tools over the Model Context Protocol.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/radutopala/milvus-mcp/internal/dispatch"
)

// Server binds a dispatcher to an MCP server: every registered tool becomes an
// MCP tool whose calls are routed through Dispatch.
type Server struct {
	server     *mcp.Server
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// NewServer creates the MCP server and registers one MCP tool per dispatcher tool.
func NewServer(name, version string, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    name,
			Version: version,
		},
		&mcp.ServerOptions{
			Logger: logger,
		},
	)

	s := &Server{
		server:     server,
		dispatcher: dispatcher,
		logger:     logger,
	}

	for _, tool := range dispatcher.Tools().List() {
		server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Params.JSONSchema(dispatcher.Strict()),
		}, s.handleCall(tool.Name))
	}
	logger.Info("MCP server ready", "name", name, "version", version, "tools", len(dispatcher.Tools().List()))

	return s
}

func (s *Server) handleCall(toolName string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		resp := s.dispatcher.Dispatch(ctx, dispatch.Request{
			ID:        uuid.NewString(),
			Tool:      toolName,
			Arguments: args,
		})
		return toResult(resp), nil
	}
}

// toResult converts a dispatch response. Strings become plain text; other results
// are sent as JSON text, and JSON objects are also attached as structured content.
// Failures carry {"error":{"kind":...,"message":...}} with IsError set.
func toResult(resp dispatch.Response) *mcp.CallToolResult {
	if resp.Error != nil {
		return errorResult(resp.Error)
	}

	switch v := resp.Result.(type) {
	case string:
		return textResult(v)
	case nil:
		return textResult("")
	}

	data, err := json.Marshal(resp.Result)
	if err != nil {
		return errorResult(dispatch.NewError(dispatch.KindHandlerError, fmt.Sprintf("result is not serializable: %v", err)))
	}
	result := textResult(string(data))
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		result.StructuredContent = json.RawMessage(data)
	}
	return result
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(e *dispatch.Error) *mcp.CallToolResult {
	body, _ := json.Marshal(map[string]any{"error": e})
	result := textResult(string(body))
	result.IsError = true
	return result
}

// Run serves a single session on transport until the client disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// Connect starts a session on transport without blocking.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, transport, nil)
}

// HTTPHandler returns a Streamable HTTP handler serving this server.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// ListenAndServe serves Streamable HTTP on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening for Streamable HTTP", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
