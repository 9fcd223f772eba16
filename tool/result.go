package tool

import (
	"encoding/json"
	"errors"
	"strings"
)

// Result is the envelope every operation returns. A successful result carries
// a payload and no error; a failed result carries an error and no payload.
// Construct values with Success or Failure.
type Result struct {
	Success bool
	Error   string
	Payload map[string]any

	err *ToolError
}

// Success builds a successful result. The reserved keys "success" and "error"
// are dropped from the payload.
func Success(payload map[string]any) Result {
	clean := make(map[string]any, len(payload))
	for key, value := range payload {
		if key == "success" || key == "error" {
			continue
		}
		clean[key] = value
	}
	return Result{Success: true, Payload: clean}
}

// Failure builds a failed result from err. A nil err still yields a non-empty
// error string.
func Failure(err error) Result {
	if err == nil {
		err = NewToolError(ToolErrorCodeInvocationFailed, "operation failed", false, nil)
	}
	toolErr, ok := AsToolError(err)
	if !ok {
		toolErr = NewToolError(ToolErrorCodeInvocationFailed, err.Error(), false, err)
	}
	msg := strings.TrimSpace(messageOf(err))
	if msg == "" {
		msg = toolErr.Error()
	}
	return Result{Error: msg, err: toolErr}
}

// Err returns the structured error behind a failed result.
func (r Result) Err() *ToolError {
	if r.Success {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return NewToolError(ToolErrorCodeInvocationFailed, r.Error, false, nil)
}

// Code returns the error code of a failed result, or "".
func (r Result) Code() string {
	if r.Success {
		return ""
	}
	return r.Err().Code
}

// Map flattens the envelope into a single map.
func (r Result) Map() map[string]any {
	out := make(map[string]any, len(r.Payload)+2)
	if r.Success {
		for key, value := range r.Payload {
			out[key] = value
		}
		out["success"] = true
		return out
	}
	out["success"] = false
	out["error"] = r.Error
	return out
}

// MarshalJSON encodes the flat envelope shape {"success":..., "error"?:..., ...payload}.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// UnmarshalJSON decodes the flat envelope shape.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	success, ok := raw["success"].(bool)
	if !ok {
		return errors.New("tool: result is missing boolean success field")
	}
	if !success {
		msg, _ := raw["error"].(string)
		*r = Failure(errors.New(msg))
		return nil
	}
	delete(raw, "success")
	*r = Success(raw)
	return nil
}
