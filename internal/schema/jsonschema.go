package schema

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// JSONSchema renders the schema as the object schema advertised to MCP clients.
// With strict set, undeclared properties are forbidden to mirror Validate.
func (s Schema) JSONSchema(strict bool) *jsonschema.Schema {
	out := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(s)),
	}
	for _, name := range s.Names() {
		p := s[name]
		out.Properties[name] = p.jsonSchema()
		if p.Required {
			out.Required = append(out.Required, name)
		}
	}
	if strict {
		// {"not": {}} is the schema that matches nothing, i.e. additionalProperties: false.
		out.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}
	}
	return out
}

func (p Param) jsonSchema() *jsonschema.Schema {
	js := &jsonschema.Schema{Description: p.Description}

	switch p.Type {
	case TypeEnum:
		js.Type = "string"
		js.Enum = make([]any, len(p.Enum))
		for i, v := range p.Enum {
			js.Enum[i] = v
		}
	case TypeArray:
		js.Type = "array"
		if p.Items != nil {
			js.Items = p.Items.jsonSchema()
		}
	default:
		js.Type = string(p.Type)
	}

	if p.Default != nil {
		if raw, err := json.Marshal(p.Default); err == nil {
			js.Default = raw
		}
	}
	return js
}
