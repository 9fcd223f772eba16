package tool

import (
	"encoding/json"
	"strings"
)

// Args holds the named parameters of one invocation.
type Args map[string]any

// String returns a required, non-blank string parameter.
func (a Args) String(name string) (string, error) {
	value, ok, err := a.OptionalString(name)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(value) == "" {
		return "", InputError("missing required parameter: %s", name)
	}
	return value, nil
}

// OptionalString returns a string parameter and whether it was supplied non-empty.
func (a Args) OptionalString(name string) (string, bool, error) {
	raw, present := a[name]
	if !present || raw == nil {
		return "", false, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", false, InputError("parameter %s must be a string, got %s", name, describeType(raw))
	}
	return value, value != "", nil
}

// Bool returns a boolean parameter, or fallback when absent.
func (a Args) Bool(name string, fallback bool) (bool, error) {
	raw, present := a[name]
	if !present || raw == nil {
		return fallback, nil
	}
	value, ok := raw.(bool)
	if !ok {
		return false, InputError("parameter %s must be a boolean, got %s", name, describeType(raw))
	}
	return value, nil
}

// Int returns an integer parameter, or fallback when absent.
func (a Args) Int(name string, fallback int) (int, error) {
	value, ok, err := a.OptionalInt(name)
	if err != nil || !ok {
		return fallback, err
	}
	return value, nil
}

// OptionalInt returns an integer parameter and whether it was supplied.
func (a Args) OptionalInt(name string) (int, bool, error) {
	raw, present := a[name]
	if !present || raw == nil {
		return 0, false, nil
	}
	value, ok := toInt(raw)
	if !ok {
		return 0, false, InputError("parameter %s must be an integer, got %s", name, describeType(raw))
	}
	return value, true, nil
}

// StringSlice returns a list-of-strings parameter. A JSON-encoded array is accepted.
func (a Args) StringSlice(name string) ([]string, error) {
	raw, present := a[name]
	if !present || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, InputError("parameter %s must be a list of strings", name)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		var out []string
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, InputError("parameter %s must be a list of strings or a JSON array string", name)
		}
		return out, nil
	}
	return nil, InputError("parameter %s must be a list of strings, got %s", name, describeType(raw))
}

// Object returns a structured parameter supplied either as a mapping or as a
// JSON-encoded string.
func (a Args) Object(name string) (map[string]any, error) {
	raw, present := a[name]
	if !present || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, InputError("%s must be valid JSON string or an object", name)
		}
		return out, nil
	}
	return nil, InputError("%s must be valid JSON string or an object, got %s", name, describeType(raw))
}

// ObjectSlice returns a list of mappings, supplied either directly or as a
// JSON-encoded array.
func (a Args) ObjectSlice(name string) ([]map[string]any, error) {
	raw, present := a[name]
	if !present || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []map[string]any:
		return v, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, InputError("%s must be a list of objects", name)
			}
			out = append(out, obj)
		}
		return out, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var out []map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, InputError("%s must be a list of objects or a JSON array string", name)
		}
		return out, nil
	}
	return nil, InputError("%s must be a list of objects, got %s", name, describeType(raw))
}

// NormalizeID reduces an identifier that may be a full URL to its canonical
// form: the final path segment with any query string removed.
func NormalizeID(raw string) string {
	id := strings.TrimSpace(raw)
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	if i := strings.Index(id, "?"); i >= 0 {
		id = id[:i]
	}
	return id
}
