package schema

import (
	"fmt"
	"slices"
	"sort"
)

// Type is the declared type tag of a tool parameter.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeEnum    Type = "enum"  // String restricted to Param.Enum
	TypeArray   Type = "array" // Elements described by Param.Items
)

// Param describes a single named tool parameter.
type Param struct {
	Type        Type     // Declared type tag
	Required    bool     // Whether the caller must supply the parameter
	Default     any      // Substituted when an optional parameter is absent (nil means no default)
	Description string   // Human-readable description shown to clients
	Enum        []string // Allowed values for TypeEnum
	Items       *Param   // Element description for TypeArray
}

// Schema maps parameter names to their declarations.
type Schema map[string]Param

// Names returns the declared parameter names in sorted order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check reports the first definition error in the schema, if any.
// It is run once at tool registration so that Validate can assume a sane schema.
func (s Schema) Check() error {
	for _, name := range s.Names() {
		if name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		p := s[name]
		if err := p.check(name); err != nil {
			return err
		}
		if p.Default == nil {
			continue
		}
		if p.Required {
			return fmt.Errorf("parameter %s: required parameter cannot declare a default", name)
		}
		if _, err := p.coerce(name, p.Default); err != nil {
			return fmt.Errorf("parameter %s: invalid default: %w", name, err)
		}
	}
	return nil
}

func (p Param) check(path string) error {
	switch p.Type {
	case TypeString, TypeNumber, TypeBoolean:
		return nil
	case TypeEnum:
		if len(p.Enum) == 0 {
			return fmt.Errorf("parameter %s: enum declares no values", path)
		}
		if slices.Contains(p.Enum, "") {
			return fmt.Errorf("parameter %s: enum values cannot be empty", path)
		}
		return nil
	case TypeArray:
		if p.Items == nil {
			return fmt.Errorf("parameter %s: array declares no item type", path)
		}
		return p.Items.check(path + "[]")
	case "":
		return fmt.Errorf("parameter %s: missing type", path)
	default:
		return fmt.Errorf("parameter %s: unknown type %q", path, p.Type)
	}
}

// expected renders the declared type the way it appears in TypeMismatch errors.
func (p Param) expected() string {
	switch p.Type {
	case TypeEnum:
		return fmt.Sprintf("enum%v", p.Enum)
	case TypeArray:
		if p.Items != nil {
			return "array<" + p.Items.expected() + ">"
		}
		return "array"
	default:
		return string(p.Type)
	}
}

// TypeString renders the declared type, e.g. "number", "enum[L2 IP]" or "array<number>".
func (p Param) TypeString() string {
	return p.expected()
}
