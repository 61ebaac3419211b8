package tools

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/radutopala/milvus-mcp/internal/schema"
)

// ErrSealed is returned by Register after Seal.
var ErrSealed = errors.New("tool registry is sealed")

// Registry manages all available tools.
// Tools are registered during startup; after Seal the registry is read-only.
type Registry struct {
	mu     sync.RWMutex
	sealed atomic.Bool
	tools  map[string]*Tool
	logger *slog.Logger
}

// NewRegistry creates a new tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: logger,
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool *Tool) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s: handler cannot be nil", tool.Name)
	}
	if tool.Params == nil {
		tool.Params = schema.Schema{}
	}
	if err := tool.Params.Check(); err != nil {
		return fmt.Errorf("tool %s: %w", tool.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return ErrSealed
	}
	if _, exists := r.tools[tool.Name]; exists {
		return &DuplicateError{Name: tool.Name}
	}

	r.tools[tool.Name] = tool
	r.logger.Info("Registered tool", "name", tool.Name, "category", tool.Category, "params", len(tool.Params))
	return nil
}

// Lookup retrieves a tool by name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	tool, exists := r.tools[name]
	return tool, exists
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []*Tool {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	tools := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name < tools[j].Name
	})
	return tools
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	list := r.List()
	names := make([]string, len(list))
	for i, tool := range list {
		names[i] = tool.Name
	}
	return names
}

// Suggest returns the registered tool name closest to name, or "" if none is close.
func (r *Registry) Suggest(name string) string {
	return schema.Suggest(name, r.Names())
}

// Seal ends the registration phase. It is safe to call more than once.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed.Store(true)
}
