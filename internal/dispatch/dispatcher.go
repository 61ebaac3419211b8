// Package dispatch routes tool requests through validation into handlers, each
// running inside its own namespace scope.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/radutopala/milvus-mcp/internal/namespace"
	"github.com/radutopala/milvus-mcp/internal/schema"
	"github.com/radutopala/milvus-mcp/internal/tools"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds every handler invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		dp.timeout = d
	}
}

// WithMaxConcurrency limits the number of requests Serve runs at once. Zero means unlimited.
func WithMaxConcurrency(n int) Option {
	return func(dp *Dispatcher) {
		dp.maxConcurrency = n
	}
}

// WithStrictParams controls whether undeclared arguments are rejected (the default) or dropped.
func WithStrictParams(strict bool) Option {
	return func(dp *Dispatcher) {
		dp.strict = strict
	}
}

// Dispatcher executes requests against a sealed tool and namespace registry.
type Dispatcher struct {
	tools          *tools.Registry
	namespaces     *namespace.Registry
	logger         *slog.Logger
	timeout        time.Duration
	maxConcurrency int
	strict         bool
}

// New creates a Dispatcher. Both registries are sealed; nothing may be registered afterwards.
func New(toolRegistry *tools.Registry, namespaces *namespace.Registry, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		tools:      toolRegistry,
		namespaces: namespaces,
		logger:     logger,
		strict:     true,
	}
	for _, opt := range opts {
		opt(d)
	}

	toolRegistry.Seal()
	namespaces.Seal()
	return d
}

// Strict reports whether undeclared arguments are rejected.
func (d *Dispatcher) Strict() bool {
	return d.strict
}

// Tools returns the registry requests are resolved against.
func (d *Dispatcher) Tools() *tools.Registry {
	return d.tools
}

// Dispatch runs a single request to completion and always returns a response
// carrying the request's ID. The request's scope is closed before Dispatch returns.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	logger := d.logger.With("request_id", req.ID, "tool", req.Tool)
	logger.DebugContext(ctx, "Request received")

	tool, ok := d.tools.Lookup(req.Tool)
	if !ok {
		logger.DebugContext(ctx, "Request failed", "kind", KindUnknownTool)
		return failure(req.ID, unknownTool(req.Tool, d.tools.Suggest(req.Tool)))
	}
	logger.DebugContext(ctx, "Tool resolved")

	raw, derr := decodeArguments(req.Arguments)
	if derr != nil {
		logger.DebugContext(ctx, "Request failed", "kind", derr.Kind)
		return failure(req.ID, derr)
	}
	args, err := schema.Validate(tool.Params, raw, schema.WithStrict(d.strict))
	if err != nil {
		verr := validationFailure(err)
		logger.DebugContext(ctx, "Request failed", "kind", verr.Kind, "error", verr.Message)
		return failure(req.ID, verr)
	}
	logger.DebugContext(ctx, "Arguments validated")

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	logger.DebugContext(ctx, "Executing tool")
	result, err := d.execute(ctx, tool, args)
	executionTime := time.Since(start).Milliseconds()

	if err != nil {
		herr := handlerFailure(tool.Name, err)
		logger.ErrorContext(ctx, "Tool execution failed", "kind", herr.Kind, "error", err, "execution_time_ms", executionTime)
		return failure(req.ID, herr)
	}

	logger.InfoContext(ctx, "Tool execution successful", "execution_time_ms", executionTime)
	return Response{ID: req.ID, Result: result}
}

// execute invokes the handler inside a fresh scope. The deferred recover runs
// before the scope is closed, so a panicking handler still releases its resources.
func (d *Dispatcher) execute(ctx context.Context, tool *tools.Tool, args schema.Args) (result any, err error) {
	scope := d.namespaces.NewScope()
	defer scope.Close(context.WithoutCancel(ctx))
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, &panicError{value: r}
		}
	}()

	result, err = tool.Handler(ctx, args, scope)
	if err == nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return result, err
}

func decodeArguments(data json.RawMessage) (map[string]any, *Error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, &Error{
			Kind:    KindTypeMismatch,
			Message: `parameter "arguments": expected object, got malformed JSON`,
			cause:   err,
		}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &Error{
			Kind:    KindTypeMismatch,
			Message: `parameter "arguments": expected object, got ` + schema.TypeName(v),
		}
	}
	return obj, nil
}
