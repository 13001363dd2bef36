package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/khanglvm/promptstruct/internal/extract"
	"github.com/khanglvm/promptstruct/internal/feedback"
)

// Tool names.
const (
	ToolExtractJSON        = "extract_json"
	ToolRecordFeedback     = "record_feedback"
	ToolGetRecommendations = "get_recommendations"
	ToolGetStats           = "get_stats"
	ToolExportFeedback     = "export_feedback"
	ToolConvertPrompt      = "convert_prompt"
	ToolSearchHistory      = "search_history"
)

type object = map[string]interface{}

func prop(typ, desc string) object {
	return object{"type": typ, "description": desc}
}

func rating(desc string) object {
	return object{"type": "integer", "minimum": 1, "maximum": 5, "description": desc}
}

// handleToolsList returns the tool catalog.
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	tools := []object{
		{
			"name": ToolExtractJSON,
			"description": `Extract the JSON payload from raw model output.

Strips code fences and leading phrases like "Here's the JSON:", then returns the
first balanced JSON object or array. Reports whether the result parses.`,
			"inputSchema": object{
				"type":       "object",
				"properties": object{"text": prop("string", "Raw model output")},
				"required":   []string{"text"},
			},
		},
		{
			"name": ToolRecordFeedback,
			"description": `Record a user judgment about one generated output.

Unset ratings default to 3. The record is persisted and folded into the learned
preferences used by get_recommendations.`,
			"inputSchema": object{
				"type": "object",
				"properties": object{
					"prompt":       prop("string", "Prompt that produced the output"),
					"json":         prop("string", "Generated output text"),
					"schema":       prop("string", "Target schema key, e.g. openai-function"),
					"provider":     prop("string", "Provider that generated the output"),
					"model":        prop("string", "Model that generated the output"),
					"rating":       rating("Overall rating"),
					"thumbsUp":     prop("boolean", "Quick approval"),
					"accuracy":     rating("Accuracy score"),
					"completeness": rating("Completeness score"),
					"structure":    rating("Structure score"),
					"relevance":    rating("Relevance score"),
					"textFeedback": prop("string", "Free-text comments"),
					"isPreferred":  prop("boolean", "Mark as a preferred output"),
				},
				"required": []string{"prompt", "json"},
			},
		},
		{
			"name":        ToolGetRecommendations,
			"description": "Get recommendations for a prompt, based on similar rated prompts, feedback themes and preferred structures.",
			"inputSchema": object{
				"type": "object",
				"properties": object{
					"prompt": prop("string", "Prompt about to be converted"),
					"schema": prop("string", "Target schema key"),
				},
				"required": []string{"prompt"},
			},
		},
		{
			"name":        ToolGetStats,
			"description": "Aggregate feedback statistics: counts, average ratings, aspect averages, tag frequencies and the 30-day trend.",
			"inputSchema": object{"type": "object", "properties": object{}},
		},
		{
			"name":        ToolExportFeedback,
			"description": "Export every feedback record, the learned preferences and current statistics.",
			"inputSchema": object{"type": "object", "properties": object{}},
		},
	}

	if s.deps.Converter != nil {
		tools = append(tools, object{
			"name":        ToolConvertPrompt,
			"description": "Convert a natural language prompt into JSON for the given schema using the configured provider.",
			"inputSchema": object{
				"type": "object",
				"properties": object{
					"prompt": prop("string", "Prompt to convert"),
					"schema": prop("string", "Target schema key"),
				},
				"required": []string{"prompt"},
			},
		})
	}
	if s.deps.History != nil {
		tools = append(tools, object{
			"name":        ToolSearchHistory,
			"description": "Full-text search over recently converted prompts.",
			"inputSchema": object{
				"type": "object",
				"properties": object{
					"query": prop("string", "Search text"),
					"limit": prop("integer", "Maximum hits (default 10)"),
				},
				"required": []string{"query"},
			},
		})
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  object{"tools": tools},
	}
}

var errUnknownTool = errors.New("unknown tool")

// handleToolsCall dispatches a tool invocation.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	if len(params.Arguments) == 0 || string(params.Arguments) == "null" {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.callTool(ctx, params.Name, params.Arguments)
	switch {
	case errors.Is(err, errUnknownTool):
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("Unknown tool: %s", params.Name))
	case err != nil:
		s.logger.Warn("tool call failed", zap.String("tool", params.Name), zap.Error(err))
		return errorResponse(req.ID, codeToolError, err.Error())
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errorResponse(req.ID, codeToolError, err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: object{
			"content": []object{
				{"type": "text", "text": string(text)},
			},
		},
	}
}

func (s *Server) callTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case ToolExtractJSON:
		var a struct {
			Text string `json:"text"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		text, err := extract.ExtractValid(a.Text)
		res := object{"json": text, "valid": err == nil}
		if err != nil {
			res["error"] = err.Error()
		}
		return res, nil

	case ToolRecordFeedback:
		var a struct {
			feedback.Output
			feedback.Judgment
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		if a.Schema == "" {
			a.Schema = s.deps.DefaultSchema
		}
		return s.deps.Store.Collect(ctx, &a.Output, &a.Judgment)

	case ToolGetRecommendations:
		var a struct {
			Prompt string `json:"prompt"`
			Schema string `json:"schema"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return s.deps.Engine.Recommend(a.Prompt, s.schema(a.Schema)), nil

	case ToolGetStats:
		return s.deps.Store.Stats(), nil

	case ToolExportFeedback:
		return s.deps.Store.Export(), nil

	case ToolConvertPrompt:
		if s.deps.Converter == nil {
			return nil, errUnknownTool
		}
		var a struct {
			Prompt string `json:"prompt"`
			Schema string `json:"schema"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return s.deps.Converter.Convert(ctx, a.Prompt, s.schema(a.Schema))

	case ToolSearchHistory:
		if s.deps.History == nil {
			return nil, errUnknownTool
		}
		var a struct {
			Query string `json:"query"`
			Limit int    `json:"limit"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return s.deps.History.Search(ctx, a.Query, a.Limit)

	default:
		return nil, errUnknownTool
	}
}

func (s *Server) schema(schema string) string {
	if schema == "" {
		return s.deps.DefaultSchema
	}
	return schema
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
