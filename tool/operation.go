package tool

import (
	"context"
	"fmt"
	"time"
)

// HandlerFunc performs one operation's upstream action and returns its payload.
type HandlerFunc func(ctx context.Context, args Args) (map[string]any, error)

// Operation is one named callable exposed to the orchestrator.
type Operation struct {
	Name        string
	Description string
	Integration string
	Inputs      map[string]FieldSpec
	Gate        *Gate
	Handler     HandlerFunc
}

// Invoke runs the operation and always returns an envelope. The gate is
// consulted first; an unavailable integration never reaches the handler.
func (op Operation) Invoke(ctx context.Context, args Args) (result Result) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = Failure(NewToolError(ToolErrorCodeInvocationFailed, fmt.Sprintf("%s panicked: %v", op.Name, r), false, nil))
		}
		emitInvokeObservation(InvokeObservation{
			Operation:   op.Name,
			Integration: op.Integration,
			DurationMS:  time.Since(started).Milliseconds(),
			Success:     result.Success,
			ErrorCode:   result.Code(),
		})
	}()

	if op.Gate != nil {
		if err := op.Gate.Err(); err != nil {
			return Failure(err)
		}
	}
	if op.Handler == nil {
		return Failure(NewToolError(ToolErrorCodeInvocationFailed, op.Name+" has no handler", false, nil))
	}
	if args == nil {
		args = Args{}
	}
	if err := validateInputs(op.Inputs, args); err != nil {
		return Failure(err)
	}
	if err := ctx.Err(); err != nil {
		return Failure(NewToolError(ToolErrorCodeInvocationFailed, "", false, err))
	}

	payload, err := op.Handler(ctx, args)
	if err != nil {
		return Failure(err)
	}
	return Success(payload)
}

// Schema returns the JSON Schema describing the operation's inputs.
func (op Operation) Schema() map[string]any {
	return InputSchema(op.Inputs)
}
