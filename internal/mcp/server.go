/*
Package mcp implements the MCP server that exposes promptstruct as tools.

The server uses stdio transport and exposes:
  - extract_json: Pull the JSON payload out of raw model text
  - record_feedback: Record a judgment about a generated output
  - get_recommendations: Recommendations for the next prompt
  - get_stats: Aggregate feedback statistics
  - export_feedback: Full feedback and preferences dump
  - convert_prompt: Convert a prompt to schema JSON (when a provider is configured)
  - search_history: Full-text search over recent conversions (when history is configured)
*/
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/khanglvm/promptstruct/internal/convert"
	"github.com/khanglvm/promptstruct/internal/feedback"
	"github.com/khanglvm/promptstruct/internal/history"
	"github.com/khanglvm/promptstruct/internal/learning"
	"github.com/khanglvm/promptstruct/internal/version"
)

const protocolVersion = "2024-11-05"

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeToolError      = -32000
)

// maxLineSize bounds one JSON-RPC message.
const maxLineSize = 4 << 20

// FeedbackStore is the part of feedback.Store the server uses.
type FeedbackStore interface {
	Collect(ctx context.Context, out *feedback.Output, j *feedback.Judgment) (feedback.Record, error)
	Stats() feedback.Stats
	Export() feedback.ExportData
}

// Recommender supplies prompt recommendations.
type Recommender interface {
	Recommend(prompt, schema string) []learning.Recommendation
}

// Converter runs prompt conversions.
type Converter interface {
	Convert(ctx context.Context, prompt, schema string) (convert.Result, error)
}

// HistorySearcher searches recent conversions.
type HistorySearcher interface {
	Search(ctx context.Context, query string, limit int) ([]history.Result, error)
}

// Deps wires the server. Converter and History are optional.
type Deps struct {
	Store         FeedbackStore
	Engine        Recommender
	Converter     Converter
	History       HistorySearcher
	DefaultSchema string
	Logger        *zap.Logger
}

// Server is the promptstruct MCP server.
type Server struct {
	deps   Deps
	logger *zap.Logger

	outMu sync.Mutex
	out   io.Writer
}

// NewServer creates a server over deps.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.DefaultSchema == "" {
		deps.DefaultSchema = "openai-function"
	}
	return &Server{deps: deps, logger: logger}
}

// Run serves newline-delimited JSON-RPC from in to out until in is closed or
// ctx is cancelled.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	s.out = out

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		response, err := s.handleRequest(ctx, line)
		if err != nil {
			s.sendError(err)
			continue
		}
		if response != nil {
			s.sendResponse(response)
		}
	}

	return scanner.Err()
}

// MCPRequest represents an incoming MCP JSON-RPC request.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing MCP JSON-RPC response.
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents an MCP error.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func errorResponse(id interface{}, code int, msg string) *MCPResponse {
	return &MCPResponse{JSONRPC: "2.0", ID: id, Error: &MCPError{Code: code, Message: msg}}
}

// handleRequest processes one request. Notifications get no response.
func (s *Server) handleRequest(ctx context.Context, data []byte) (*MCPResponse, error) {
	var req MCPRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON-RPC request: %w", err)
	}

	switch {
	case req.Method == "initialize":
		return s.handleInitialize(&req), nil
	case req.Method == "tools/list":
		return s.handleToolsList(&req), nil
	case req.Method == "tools/call":
		return s.handleToolsCall(ctx, &req), nil
	case strings.HasPrefix(req.Method, "notifications/"):
		return nil, nil
	default:
		return errorResponse(req.ID, codeMethodNotFound, "Method not found"), nil
	}
}

// handleInitialize handles the MCP initialize request.
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "promptstruct",
				"version": version.Version,
			},
		},
	}
}

// sendResponse writes one JSON-RPC response line.
func (s *Server) sendResponse(resp *MCPResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		return
	}

	s.outMu.Lock()
	defer s.outMu.Unlock()
	if _, err := fmt.Fprintln(s.out, string(data)); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

// sendError writes a parse error response.
func (s *Server) sendError(err error) {
	s.sendResponse(errorResponse(nil, codeParseError, err.Error()))
}
