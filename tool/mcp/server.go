// Package mcp serves registered operations to an orchestrator as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/petal-labs/petaltools/tool"
)

// DefaultServerName is reported in serverInfo.
const DefaultServerName = "petaltools"

// ServerConfig wires a Server.
type ServerConfig struct {
	Registry *tool.Registry
	Name     string
	Version  string
	Logger   *slog.Logger
}

// Server exposes one registry's operations as MCP tools. The tool set is
// fixed when the server is created.
type Server struct {
	registry *tool.Registry
	server   *sdk.Server
	logger   *slog.Logger
}

// NewServer validates cfg and adds every registered operation as a tool.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("mcp: registry is nil")
	}
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = DefaultServerName
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		registry: cfg.Registry,
		server:   sdk.NewServer(&sdk.Implementation{Name: cfg.Name, Version: cfg.Version}, nil),
		logger:   cfg.Logger,
	}
	s.server.AddReceivingMiddleware(s.unknownTools)
	for _, op := range cfg.Registry.Operations() {
		s.server.AddTool(&sdk.Tool{
			Name:        op.Name,
			Description: op.Description,
			InputSchema: InputSchema(op.Inputs),
		}, s.callTool(op.Name))
	}
	return s, nil
}

// Run serves one session on transport until the peer disconnects or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	err := s.server.Run(ctx, transport)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Serve speaks newline-delimited JSON-RPC on in and out. Neither stream is
// closed when the session ends.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return s.Run(ctx, &sdk.IOTransport{
		Reader: io.NopCloser(in),
		Writer: nopWriteCloser{out},
	})
}

func (s *Server) callTool(name string) sdk.ToolHandler {
	return func(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		var args tool.Args
		if raw := req.Params.Arguments; len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return resultOf(tool.Failure(tool.InputError("arguments must be a JSON object: %v", err)))
			}
		}
		result := s.registry.Invoke(ctx, name, args)
		if !result.Success {
			s.logger.Debug("mcp tool call failed", "operation", name, "code", result.Code())
		}
		return resultOf(result)
	}
}

// unknownTools answers calls for names the server does not carry with the
// ACTION_NOT_FOUND envelope instead of a protocol error.
func (s *Server) unknownTools(next sdk.MethodHandler) sdk.MethodHandler {
	return func(ctx context.Context, method string, req sdk.Request) (sdk.Result, error) {
		call, ok := req.(*sdk.CallToolRequest)
		if !ok || method != "tools/call" || call.Params == nil {
			return next(ctx, method, req)
		}
		if _, known := s.registry.Get(call.Params.Name); known {
			return next(ctx, method, req)
		}
		result, err := resultOf(s.registry.Invoke(ctx, call.Params.Name, nil))
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

func resultOf(result tool.Result) (*sdk.CallToolResult, error) {
	text, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("mcp: encode result: %w", err)
	}
	return &sdk.CallToolResult{
		Content:           []sdk.Content{&sdk.TextContent{Text: string(text)}},
		StructuredContent: result.Map(),
		IsError:           !result.Success,
	}, nil
}

// InputSchema renders operation inputs as the tool's JSON Schema.
func InputSchema(inputs map[string]tool.FieldSpec) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(inputs)),
	}
	for name, spec := range inputs {
		schema.Properties[name] = fieldSchema(spec)
		if spec.Required {
			schema.Required = append(schema.Required, name)
		}
	}
	slices.Sort(schema.Required)
	return schema
}

func fieldSchema(spec tool.FieldSpec) *jsonschema.Schema {
	schema := &jsonschema.Schema{Description: spec.Description}
	switch spec.Type {
	case tool.TypeString, tool.TypeInteger, tool.TypeBoolean, tool.TypeArray, tool.TypeObject:
		schema.Type = spec.Type
	case tool.TypeFloat:
		schema.Type = "number"
	}
	if spec.Default != nil {
		if data, err := json.Marshal(spec.Default); err == nil {
			schema.Default = data
		}
	}
	if spec.Type == tool.TypeArray {
		item := tool.FieldSpec{Type: tool.TypeAny}
		if spec.Items != nil {
			item = *spec.Items
		}
		schema.Items = fieldSchema(item)
	}
	if spec.Type == tool.TypeObject && len(spec.Properties) > 0 {
		schema.Properties = make(map[string]*jsonschema.Schema, len(spec.Properties))
		for name, property := range spec.Properties {
			schema.Properties[name] = fieldSchema(property)
		}
	}
	return schema
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
