package dispatch

import (
	"errors"
	"fmt"

	"github.com/radutopala/milvus-mcp/internal/namespace"
	"github.com/radutopala/milvus-mcp/internal/schema"
)

// Kind classifies a failed request. It is part of the wire format.
type Kind string

const (
	KindUnknownTool      Kind = "UnknownTool"
	KindMissingParameter Kind = Kind(schema.KindMissingParameter)
	KindTypeMismatch     Kind = Kind(schema.KindTypeMismatch)
	KindUnknownParameter Kind = Kind(schema.KindUnknownParameter)
	KindUnknownNamespace Kind = "UnknownNamespace"
	KindHandlerError     Kind = "HandlerError"
)

// Error is the structured failure carried by a Response.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError builds an Error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func unknownTool(name, suggestion string) *Error {
	msg := fmt.Sprintf("unknown tool %q", name)
	if suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}
	return &Error{Kind: KindUnknownTool, Message: msg}
}

func validationFailure(err error) *Error {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return &Error{Kind: Kind(verr.Kind), Message: verr.Error(), cause: err}
	}
	return &Error{Kind: KindTypeMismatch, Message: err.Error(), cause: err}
}

// handlerFailure maps a handler error to HandlerError. Only UnknownNamespace,
// raised by Scope.Use, keeps its own kind; a *Error from elsewhere, e.g. a
// downstream server, is reported as the cause.
func handlerFailure(tool string, err error) *Error {
	var unknown *namespace.UnknownError
	if errors.As(err, &unknown) {
		return &Error{Kind: KindUnknownNamespace, Message: unknown.Error(), cause: err}
	}
	return &Error{
		Kind:    KindHandlerError,
		Message: fmt.Sprintf("tool %s failed: %v", tool, err),
		cause:   err,
	}
}

// panicError wraps a value recovered from a handler panic.
type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}
