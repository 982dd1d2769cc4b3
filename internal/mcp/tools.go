package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/solmem-mcp/internal/searcher"
	"github.com/dshills/solmem-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleSaveSolution handles the save_solution tool invocation
func (s *Server) handleSaveSolution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	input := types.SolutionInput{
		Title:         getStringDefault(args, "title", ""),
		Problem:       getStringDefault(args, "problem", ""),
		Solution:      getStringDefault(args, "solution", ""),
		RootCause:     getStringDefault(args, "root_cause", ""),
		ErrorMessages: getStringSlice(args, "error_messages"),
		ProjectName:   getStringDefault(args, "project_name", ""),
	}
	for _, name := range getStringSlice(args, "tags") {
		input.Tags = append(input.Tags, types.TagInput{
			Name:     name,
			Category: inferTagCategory(name),
		})
	}

	id, err := s.coordinator.SaveSolution(ctx, input)
	if err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			return nil, newMCPError(ErrorCodeInvalidParams, verr.Error(), map[string]interface{}{
				"param":  verr.Field,
				"reason": verr.Reason,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to save solution", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"id":      id,
		"message": fmt.Sprintf("Solution '%s' saved successfully with ID %s", strings.TrimSpace(input.Title), id),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchSolutions handles the search_solutions tool invocation
func (s *Server) handleSearchSolutions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	req := searcher.Request{
		Query: query,
		Limit: getIntDefault(args, "limit", searcher.DefaultLimit),
		Tags:  getStringSlice(args, "tags"),
		Mode:  searcher.SearchMode(getStringDefault(args, "search_mode", string(searcher.ModeHybrid))),
	}

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			return nil, newMCPError(ErrorCodeInvalidParams, verr.Error(), map[string]interface{}{
				"param":  verr.Field,
				"reason": verr.Reason,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		entry := map[string]interface{}{
			"id":             r.ID,
			"title":          r.Title,
			"problem":        r.Problem,
			"relevance":      r.Relevance,
			"semantic_score": r.SemanticScore,
			"keyword_score":  r.KeywordScore,
			"created_at":     r.CreatedAt.Format(time.RFC3339),
			"tags":           r.Tags,
		}
		if r.ProjectName != "" {
			entry["project_name"] = r.ProjectName
		}
		results = append(results, entry)
	}

	response := map[string]interface{}{
		"results": results,
		"total":   resp.Total,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetSolution handles the get_solution tool invocation
func (s *Server) handleGetSolution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, ok := args["id"].(string)
	if !ok || id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or empty",
		})
	}

	sol, err := s.store.GetSolution(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		// A miss is a browsable outcome, not a protocol failure.
		response := map[string]interface{}{
			"error": fmt.Sprintf("Solution with ID '%s' not found", id),
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get solution", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"id":             sol.ID,
		"title":          sol.Title,
		"problem":        sol.Problem,
		"root_cause":     sol.RootCause,
		"solution":       sol.Solution,
		"error_messages": sol.ErrorMessages,
		"tags":           sol.Tags,
		"project_name":   sol.ProjectName,
		"created_at":     sol.CreatedAt.Format(time.RFC3339),
		"updated_at":     sol.UpdatedAt.Format(time.RFC3339),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListTags handles the list_tags tool invocation
func (s *Server) handleListTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	category := types.TagCategory(getStringDefault(args, "category", ""))
	if category != "" && !types.ValidCategory(category) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid category", map[string]interface{}{
			"param":   "category",
			"value":   string(category),
			"allowed": []string{"tech_stack", "problem_type", "error_code"},
		})
	}

	tags, err := s.store.ListTags(ctx, category)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list tags", map[string]interface{}{
			"error": err.Error(),
		})
	}

	entries := make([]map[string]interface{}, 0, len(tags))
	for _, t := range tags {
		entries = append(entries, map[string]interface{}{
			"name":     t.Name,
			"category": string(t.Category),
			"count":    t.Count,
		})
	}

	response := map[string]interface{}{
		"tags": entries,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// tag names that identify a technology rather than a problem kind
var techKeywords = []string{
	"react", "vue", "angular", "node", "python", "java", "go", "rust",
	"docker", "kubernetes", "aws", "gcp", "azure", "postgresql", "mysql",
	"mongodb", "redis", "typescript", "javascript", "css", "html",
}

var errorPatterns = []string{"error", "exception", "fail", "http", "status", "code"}

// inferTagCategory guesses a category for a bare tag name. Tech-stack
// keywords win over error patterns; all-digit names read as status codes;
// everything else is a problem type.
func inferTagCategory(name string) types.TagCategory {
	lower := strings.ToLower(name)
	for _, kw := range techKeywords {
		if strings.Contains(lower, kw) {
			return types.CategoryTechStack
		}
	}
	for _, p := range errorPatterns {
		if strings.Contains(lower, p) {
			return types.CategoryErrorCode
		}
	}
	if name != "" && isDigits(name) {
		return types.CategoryErrorCode
	}
	return types.CategoryProblemType
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter, tolerating the
// []interface{} shape JSON decoding produces
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		if vals, ok := args[key].([]string); ok {
			return vals
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
