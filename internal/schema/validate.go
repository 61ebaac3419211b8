package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strconv"
)

type options struct {
	strict bool
}

// Option tunes Validate.
type Option func(*options)

// WithStrict controls rejection of arguments the schema does not declare.
// Validation is strict unless WithStrict(false) is passed; relaxed validation
// drops undeclared keys instead of reporting UnknownParameter.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// Validate checks raw arguments against the schema and returns the typed arguments
// a handler may rely on. Parameters are visited in sorted name order and the first
// failure is returned as a *ValidationError. raw is never modified.
//
// Numbers are normalized to float64 and arrays to []any, so handlers see one
// representation regardless of how the caller encoded the value.
func Validate(s Schema, raw map[string]any, opts ...Option) (Args, error) {
	o := options{strict: true}
	for _, opt := range opts {
		opt(&o)
	}

	if o.strict {
		if err := checkUnknown(s, raw); err != nil {
			return nil, err
		}
	}

	args := make(Args, len(s))
	for _, name := range s.Names() {
		p := s[name]
		v, present := raw[name]
		// An explicit null on an optional parameter reads as "not supplied".
		if present && v == nil && !p.Required {
			present = false
		}

		if !present {
			if p.Required {
				return nil, missing(name)
			}
			if p.Default != nil {
				def, err := p.coerce(name, p.Default)
				if err != nil {
					return nil, err
				}
				args[name] = def
			}
			continue
		}

		val, err := p.coerce(name, v)
		if err != nil {
			return nil, err
		}
		args[name] = val
	}
	return args, nil
}

func checkUnknown(s Schema, raw map[string]any) error {
	var unknown []string
	for key := range raw {
		if _, ok := s[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &ValidationError{
		Kind:       KindUnknownParameter,
		Param:      unknown[0],
		Suggestion: Suggest(unknown[0], s.Names()),
	}
}

// coerce checks v against the declared type and returns its normalized form.
func (p Param) coerce(path string, v any) (any, error) {
	switch p.Type {
	case TypeString:
		str, ok := v.(string)
		if !ok {
			return nil, mismatch(path, p.expected(), TypeName(v))
		}
		return str, nil

	case TypeNumber:
		f, ok := toFloat(v)
		if !ok {
			return nil, mismatch(path, p.expected(), TypeName(v))
		}
		return f, nil

	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(path, p.expected(), TypeName(v))
		}
		return b, nil

	case TypeEnum:
		str, ok := v.(string)
		if !ok {
			return nil, mismatch(path, p.expected(), TypeName(v))
		}
		if !slices.Contains(p.Enum, str) {
			return nil, mismatch(path, p.expected(), strconv.Quote(str))
		}
		return str, nil

	case TypeArray:
		rv := reflect.ValueOf(v)
		if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return nil, mismatch(path, p.expected(), TypeName(v))
		}
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			elem, err := p.Items.coerce(fmt.Sprintf("%s[%d]", path, i), rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return out, nil

	default:
		return nil, fmt.Errorf("parameter %s: unknown type %q", path, p.Type)
	}
}

// TypeName returns the JSON type name of a decoded value.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Pointer:
		rv := reflect.ValueOf(v)
		if rv.IsNil() {
			return "null"
		}
		return TypeName(rv.Elem().Interface())
	}
	return fmt.Sprintf("%T", v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
