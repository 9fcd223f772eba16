package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Field type literals used by operation input declarations.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeFloat   = "float"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
	TypeAny     = "any"
)

// FieldSpec describes one operation input.
type FieldSpec struct {
	Type        string               `json:"type"`
	Required    bool                 `json:"required,omitempty"`
	Description string               `json:"description,omitempty"`
	Default     any                  `json:"default,omitempty"`
	Items       *FieldSpec           `json:"items,omitempty"`
	Properties  map[string]FieldSpec `json:"properties,omitempty"`
}

// InputSchema renders input declarations as a JSON Schema object.
func InputSchema(inputs map[string]FieldSpec) map[string]any {
	properties := make(map[string]any, len(inputs))
	required := make([]string, 0)
	for _, name := range sortedFieldNames(inputs) {
		spec := inputs[name]
		properties[name] = fieldJSONSchema(spec)
		if spec.Required {
			required = append(required, name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func fieldJSONSchema(spec FieldSpec) map[string]any {
	out := map[string]any{}
	switch spec.Type {
	case TypeString, TypeInteger, TypeBoolean, TypeArray, TypeObject:
		out["type"] = spec.Type
	case TypeFloat:
		out["type"] = "number"
	}
	if spec.Description != "" {
		out["description"] = spec.Description
	}
	if spec.Default != nil {
		out["default"] = spec.Default
	}
	if spec.Type == TypeArray {
		item := FieldSpec{Type: TypeAny}
		if spec.Items != nil {
			item = *spec.Items
		}
		out["items"] = fieldJSONSchema(item)
	}
	if spec.Type == TypeObject && len(spec.Properties) > 0 {
		props := make(map[string]any, len(spec.Properties))
		for _, name := range sortedFieldNames(spec.Properties) {
			props[name] = fieldJSONSchema(spec.Properties[name])
		}
		out["properties"] = props
	}
	return out
}

// validateInputs checks required presence and top-level types. Object and
// array fields also accept a JSON-encoded string; handlers decode those.
func validateInputs(inputs map[string]FieldSpec, args Args) error {
	for _, name := range sortedFieldNames(inputs) {
		spec := inputs[name]
		value, present := args[name]
		if !present || value == nil {
			if spec.Required {
				return InputError("missing required parameter: %s", name)
			}
			continue
		}
		if !valueMatchesType(spec.Type, value) {
			return InputError("parameter %s must be of type %s", name, spec.Type)
		}
	}
	return nil
}

func valueMatchesType(fieldType string, value any) bool {
	switch fieldType {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeInteger:
		_, ok := toInt(value)
		return ok
	case TypeFloat:
		_, ok := toFloat(value)
		return ok
	case TypeBoolean:
		_, ok := value.(bool)
		return ok
	case TypeArray:
		switch value.(type) {
		case []any, []string, []map[string]any, string:
			return true
		}
		return false
	case TypeObject:
		switch value.(type) {
		case map[string]any, string:
			return true
		}
		return false
	default:
		return true
	}
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func sortedFieldNames(fields map[string]FieldSpec) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func describeType(value any) string {
	if value == nil {
		return "null"
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", value), "*")
}
