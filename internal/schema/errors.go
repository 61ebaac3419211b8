package schema

import "fmt"

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	KindMissingParameter ErrorKind = "MissingParameter"
	KindTypeMismatch     ErrorKind = "TypeMismatch"
	KindUnknownParameter ErrorKind = "UnknownParameter"
)

// ValidationError is returned by Validate when arguments do not satisfy a schema.
type ValidationError struct {
	Kind       ErrorKind
	Param      string // Parameter name, or element path such as "vectors[2][0]"
	Expected   string // Declared type (TypeMismatch only)
	Actual     string // Runtime type or offending value (TypeMismatch only)
	Suggestion string // Closest declared name (UnknownParameter only)
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindMissingParameter:
		return fmt.Sprintf("missing required parameter %q", e.Param)
	case KindTypeMismatch:
		return fmt.Sprintf("parameter %q: expected %s, got %s", e.Param, e.Expected, e.Actual)
	case KindUnknownParameter:
		if e.Suggestion != "" {
			return fmt.Sprintf("unknown parameter %q (did you mean %q?)", e.Param, e.Suggestion)
		}
		return fmt.Sprintf("unknown parameter %q", e.Param)
	default:
		return fmt.Sprintf("invalid parameter %q", e.Param)
	}
}

func missing(name string) *ValidationError {
	return &ValidationError{Kind: KindMissingParameter, Param: name}
}

func mismatch(path, expected, actual string) *ValidationError {
	return &ValidationError{Kind: KindTypeMismatch, Param: path, Expected: expected, Actual: actual}
}
