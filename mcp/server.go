package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"go-agentcommerce/logger"
	"go-agentcommerce/metrics"
)

type Server struct {
	name    string
	version string

	mu    sync.RWMutex
	tools map[string]Tool

	sessions  *sessions
	keepAlive time.Duration
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithKeepAlive sets the ping interval of SSE sessions.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.keepAlive = d
		}
	}
}

func NewServer(name, version string, opts ...Option) *Server {
	s := &Server{
		name:      name,
		version:   version,
		tools:     make(map[string]Tool),
		sessions:  newSessions(),
		keepAlive: 25 * time.Second,
		log:       logger.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Register(tools ...Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tools {
		if t.Name == "" || t.Handler == nil {
			return fmt.Errorf("tool needs a name and a handler")
		}
		if _, ok := s.tools[t.Name]; ok {
			return fmt.Errorf("tool %s already registered", t.Name)
		}
		if t.InputSchema == nil {
			t.InputSchema = Object(nil)
		}
		s.tools[t.Name] = t
	}
	return nil
}

func (s *Server) Tools() []ToolInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ToolInfo, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, ToolInfo{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Handle processes a single request or a batch and returns the encoded
// response. It returns nil when nothing needs to be sent back.
func (s *Server) Handle(ctx context.Context, body []byte) []byte {
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return encode(errorResponse(nil, CodeParseError, "parse error"))
	}

	if len(body) > 0 && body[0] == '[' {
		var batch []json.RawMessage
		if err := json.Unmarshal(body, &batch); err != nil || len(batch) == 0 {
			return encode(errorResponse(nil, CodeInvalidRequest, "invalid batch"))
		}
		var out []*Response
		for _, raw := range batch {
			if resp := s.handleOne(ctx, raw); resp != nil {
				out = append(out, resp)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return encode(out)
	}

	resp := s.handleOne(ctx, body)
	if resp == nil {
		return nil
	}
	return encode(resp)
}

func (s *Server) handleOne(ctx context.Context, raw json.RawMessage) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse(nil, CodeInvalidRequest, "invalid request")
	}
	if req.JSONRPC != JSONRPCVersion {
		return errorResponse(req.ID, CodeInvalidRequest, fmt.Sprintf("unsupported jsonrpc version %q", req.JSONRPC))
	}
	if req.Method == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "method is required")
	}
	if req.Notification() {
		if !strings.HasPrefix(req.Method, "notifications/") {
			s.log.Debug().Str("method", req.Method).Msg("ignoring notification")
		}
		return nil
	}

	result, rpcErr := s.dispatch(ctx, &req)
	if rpcErr != nil {
		return &Response{JSONRPC: JSONRPCVersion, ID: req.ID, Error: rpcErr}
	}
	return &Response{JSONRPC: JSONRPCVersion, ID: req.ID, Result: result}
}

func (s *Server) dispatch(ctx context.Context, req *Request) (any, *RPCError) {
	switch req.Method {
	case "initialize":
		return initializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{"listChanged": false}},
			ServerInfo:      serverInfo{Name: s.name, Version: s.version},
		}, nil
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return map[string]any{"tools": s.Tools()}, nil
	case "tools/call":
		return s.call(ctx, req.Params)
	default:
		return nil, &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %s not found", req.Method)}
	}
}

func (s *Server) call(ctx context.Context, params json.RawMessage) (result any, rpcErr *RPCError) {
	var p callParams
	if len(params) == 0 || json.Unmarshal(params, &p) != nil || p.Name == "" {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "tools/call needs a tool name"}
	}

	s.mu.RLock()
	tool, ok := s.tools[p.Name]
	s.mu.RUnlock()
	if !ok {
		s.metrics.ToolCall("unknown", "invalid")
		return nil, &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("unknown tool %s", p.Name)}
	}

	log := s.log.With().Str("tool", p.Name).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("tool panicked")
			s.metrics.ToolCall(p.Name, "panic")
			result, rpcErr = nil, &RPCError{Code: CodeInternal, Message: "internal error"}
		}
	}()

	out, err := tool.Handler(ctx, p.Arguments)
	var argErr *ArgumentError
	var valErr *ValidationError
	switch {
	case errors.As(err, &argErr):
		s.metrics.ToolCall(p.Name, "invalid")
		return nil, &RPCError{Code: CodeInvalidParams, Message: argErr.Error()}
	case errors.As(err, &valErr):
		s.metrics.ToolCall(p.Name, "invalid")
		return CallResult{
			Content:           []Content{{Type: "text", Text: valErr.Error()}},
			StructuredContent: map[string]any{"kind": "validation", "error": valErr.Err.Error()},
			IsError:           true,
		}, nil
	case err != nil:
		log.Debug().Err(err).Msg("tool error")
		s.metrics.ToolCall(p.Name, "error")
		return CallResult{
			Content: []Content{{Type: "text", Text: err.Error()}},
			IsError: true,
		}, nil
	}

	s.metrics.ToolCall(p.Name, "ok")
	text, err := json.Marshal(out)
	if err != nil {
		return nil, &RPCError{Code: CodeInternal, Message: "encode tool result"}
	}
	return CallResult{
		Content:           []Content{{Type: "text", Text: string(text)}},
		StructuredContent: out,
	}, nil
}

func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(errorResponse(nil, CodeInternal, "encode response"))
	}
	return b
}
