package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/radutopala/milvus-mcp/internal/dispatch"
)

// MCPClient is a client session with a milvus-mcp server.
type MCPClient struct {
	name    string
	session *mcp.ClientSession
	logger  *slog.Logger
}

// ServerConfig says how to reach a server.
// - Command transport (stdio): provide Command
// - Streamable HTTP transport: provide URL
type ServerConfig struct {
	Command string            `json:"command,omitempty"` // Command to execute (for stdio transport)
	Args    []string          `json:"args,omitempty"`    // Command arguments
	URL     string            `json:"url,omitempty"`     // HTTP URL (for Streamable HTTP transport)
	Env     map[string]string `json:"env,omitempty"`     // Environment variables (stdio only)
}

// Tool is a tool advertised by the server.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Result is a successful tool call.
type Result struct {
	Text       string         // Text content, JSON for non-string results
	Structured map[string]any // Set when the tool returned a JSON object
}

// NewMCPClient connects to a server described by config.
func NewMCPClient(ctx context.Context, name string, config ServerConfig, logger *slog.Logger) (*MCPClient, error) {
	var transport mcp.Transport

	switch {
	case config.URL != "":
		transport = &mcp.StreamableClientTransport{
			Endpoint:   config.URL,
			MaxRetries: 5,
		}
		logger.Info("Using Streamable HTTP transport", "name", name, "endpoint", config.URL)
	case config.Command != "":
		cmd := exec.Command(config.Command, config.Args...)
		if len(config.Env) > 0 {
			env := os.Environ()
			for k, v := range config.Env {
				env = append(env, fmt.Sprintf("%s=%s", k, v))
			}
			cmd.Env = env
		}
		transport = &mcp.CommandTransport{Command: cmd}
		logger.Info("Using stdio transport", "name", name, "command", config.Command)
	default:
		return nil, fmt.Errorf("no transport configured: must provide either 'command' or 'url'")
	}

	return Connect(ctx, name, transport, logger)
}

// Connect opens a session over an existing transport, e.g. an in-memory one.
func Connect(ctx context.Context, name string, transport mcp.Transport, logger *slog.Logger) (*MCPClient, error) {
	client := mcp.NewClient(
		&mcp.Implementation{
			Name:    "milvus-mcp-client",
			Version: "1.0.0",
		},
		nil,
	)

	// Connect also performs the initialize handshake.
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server %s: %w", name, err)
	}

	logger.Info("Connected to MCP server", "name", name)
	return &MCPClient{
		name:    name,
		session: session,
		logger:  logger,
	}, nil
}

// ListTools retrieves all tools from the server.
func (c *MCPClient) ListTools(ctx context.Context) ([]Tool, error) {
	result, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("tools/list failed: %w", err)
	}

	tools := make([]Tool, len(result.Tools))
	for i, t := range result.Tools {
		schemaMap := make(map[string]any)
		if s, ok := t.InputSchema.(map[string]any); ok {
			schemaMap = s
		}
		tools[i] = Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schemaMap,
		}
	}

	c.logger.Debug("Listed tools", "name", c.name, "count", len(tools))
	return tools, nil
}

// CallTool executes a tool. A tool-level failure is returned as a *dispatch.Error
// carrying the server's error kind; transport failures are returned wrapped.
func (c *MCPClient) CallTool(ctx context.Context, toolName string, arguments map[string]any) (*Result, error) {
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: arguments,
	})
	if err != nil {
		return nil, fmt.Errorf("tools/call failed: %w", err)
	}

	text := firstText(result)
	if result.IsError {
		return nil, parseError(text)
	}

	out := &Result{Text: text}
	if structured, ok := result.StructuredContent.(map[string]any); ok {
		out.Structured = structured
	}
	return out, nil
}

func firstText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if textContent, ok := content.(*mcp.TextContent); ok {
			return textContent.Text
		}
	}
	return ""
}

func parseError(text string) *dispatch.Error {
	var body struct {
		Error *dispatch.Error `json:"error"`
	}
	if err := json.Unmarshal([]byte(text), &body); err == nil && body.Error != nil && body.Error.Kind != "" {
		return body.Error
	}
	if text == "" {
		text = "unknown error"
	}
	return dispatch.NewError(dispatch.KindHandlerError, text)
}

// Close terminates the session.
func (c *MCPClient) Close() error {
	if err := c.session.Close(); err != nil {
		c.logger.Warn("MCP session close error", "name", c.name, "error", err)
		return err
	}

	c.logger.Debug("Closed MCP session", "name", c.name)
	return nil
}
