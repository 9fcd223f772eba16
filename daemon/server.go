// Package daemon exposes the registered operations and integration status
// over HTTP.
package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/petal-labs/petaltools/tool"
)

// DefaultMaxBodyBytes caps invoke request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// RequestIDHeader carries the per-invocation ID.
const RequestIDHeader = "X-Request-ID"

// ServerConfig controls daemon HTTP server dependencies.
type ServerConfig struct {
	Coordinator *tool.Coordinator
	// History is optional; without it /api/registrations lists nothing.
	History tool.HistoryStore
	// Monitor is optional; its latest snapshot is included in /api/integrations.
	Monitor      *tool.Monitor
	Logger       *slog.Logger
	MaxBodyBytes int64
}

// Server serves the operation registry and integration status.
type Server struct {
	coordinator *tool.Coordinator
	registry    *tool.Registry
	history     tool.HistoryStore
	monitor     *tool.Monitor
	logger      *slog.Logger
	maxBody     int64
}

// NewServer constructs a daemon API server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Coordinator == nil {
		return nil, errors.New("daemon: coordinator is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Server{
		coordinator: cfg.Coordinator,
		registry:    cfg.Coordinator.Registry(),
		history:     cfg.History,
		monitor:     cfg.Monitor,
		logger:      cfg.Logger,
		maxBody:     cfg.MaxBodyBytes,
	}, nil
}

// Handler returns an http.Handler exposing daemon APIs.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/tools", s.handleListTools)
	mux.HandleFunc("GET /api/tools/{name}", s.handleGetTool)
	mux.HandleFunc("POST /api/tools/{name}/invoke", s.handleInvokeTool)

	mux.HandleFunc("GET /api/integrations", s.handleIntegrations)
	mux.HandleFunc("GET /api/registrations", s.handleRegistrations)

	return mux
}

// ToolView is the HTTP shape of one registered operation.
type ToolView struct {
	Name        string                    `json:"name"`
	Integration string                    `json:"integration"`
	Description string                    `json:"description,omitempty"`
	Inputs      map[string]tool.FieldSpec `json:"inputs"`
	InputSchema map[string]any            `json:"input_schema"`
}

// NewToolView describes an operation for catalog responses.
func NewToolView(op tool.Operation) ToolView {
	inputs := op.Inputs
	if inputs == nil {
		inputs = map[string]tool.FieldSpec{}
	}
	return ToolView{
		Name:        op.Name,
		Integration: op.Integration,
		Description: op.Description,
		Inputs:      inputs,
		InputSchema: op.Schema(),
	}
}

type invokeRequest struct {
	Args map[string]any `json:"args,omitempty"`
}

type apiErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type apiErrorResponse struct {
	Error apiErrorDetail `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	integration := strings.TrimSpace(r.URL.Query().Get("integration"))

	ops := s.registry.Operations()
	tools := make([]ToolView, 0, len(ops))
	for _, op := range ops {
		if integration != "" && op.Integration != integration {
			continue
		}
		tools = append(tools, NewToolView(op))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tools": tools,
	})
}

func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	op, ok := s.registry.Get(name)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("tool %q not found", name), nil)
		return
	}
	writeJSON(w, http.StatusOK, NewToolView(op))
}

func (s *Server) handleInvokeTool(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if _, ok := s.registry.Get(name); !ok {
		writeJSONError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("tool %q not found", name), nil)
		return
	}

	var req invokeRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := decodeJSONBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)

	result := s.registry.Invoke(r.Context(), name, tool.Args(req.Args))
	if result.Success {
		s.logger.Debug("operation invoked", "operation", name, "request_id", requestID)
	} else {
		s.logger.Info("operation failed",
			"operation", name,
			"request_id", requestID,
			"code", result.Code(),
			"error", result.Error,
		)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIntegrations(w http.ResponseWriter, _ *http.Request) {
	response := map[string]any{
		"integrations": s.coordinator.Statuses(),
	}
	if s.monitor != nil {
		response["monitor"] = s.monitor.Snapshot()
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleRegistrations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw, ok := queryParam(r, "limit"); ok {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSONError(w, http.StatusBadRequest, "INVALID_QUERY", "limit must be a non-negative integer", nil)
			return
		}
		limit = parsed
	}

	registrations := []tool.Summary{}
	if s.history != nil {
		listed, err := s.history.List(r.Context(), limit)
		if err != nil {
			s.logger.Error("listing registration history failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "HISTORY_UNAVAILABLE", err.Error(), nil)
			return
		}
		if listed != nil {
			registrations = listed
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"registrations": registrations,
	})
}

func queryParam(r *http.Request, key string) (string, bool) {
	values, ok := r.URL.Query()[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func decodeJSONBody(r *http.Request, target any) error {
	if target == nil {
		return errors.New("decode target is nil")
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, apiErrorResponse{
		Error: apiErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
