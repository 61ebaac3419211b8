package tools

import (
	"context"
	"fmt"

	"github.com/radutopala/milvus-mcp/internal/namespace"
	"github.com/radutopala/milvus-mcp/internal/schema"
)

// Handler executes a tool. args have already been validated against the tool's
// parameter schema; scope hands out request-scoped resources.
type Handler func(ctx context.Context, args schema.Args, scope *namespace.Scope) (any, error)

// Tool represents a single executable tool with its metadata and handler.
type Tool struct {
	Name        string        // Tool name
	Category    string        // Category for organizing tools (e.g., "milvus")
	Description string        // Tool description
	Params      schema.Schema // Declared parameters
	Handler     Handler       // Handler function
}

// DuplicateError is returned when a tool name is registered twice.
type DuplicateError struct {
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("tool %s already registered", e.Name)
}

// Metadata is the listing form of a tool, used by the tools subcommand.
type Metadata struct {
	Name        string        `json:"name"`
	Category    string        `json:"category,omitempty"`
	Description string        `json:"description"`
	Parameters  []ParamDetail `json:"parameters,omitempty"`
}

// ParamDetail describes one declared parameter for listings.
type ParamDetail struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required,omitempty"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// Metadata returns the listing form of the tool.
func (t *Tool) Metadata() Metadata {
	md := Metadata{
		Name:        t.Name,
		Category:    t.Category,
		Description: t.Description,
	}
	for _, name := range t.Params.Names() {
		p := t.Params[name]
		md.Parameters = append(md.Parameters, ParamDetail{
			Name:        name,
			Type:        p.TypeString(),
			Required:    p.Required,
			Default:     p.Default,
			Description: p.Description,
		})
	}
	return md
}
