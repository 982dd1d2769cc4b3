package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/solmem-mcp/internal/embedder"
	"github.com/dshills/solmem-mcp/pkg/types"
)

func newTestServer(t *testing.T) *Server {
	t.Setenv(embedder.EnvProvider, "local")

	server, err := NewServer(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = server.store.Close()
		_ = server.vectors.Close()
	})
	return server
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &payload))
	return payload
}

func saveTestSolution(t *testing.T, s *Server, args map[string]interface{}) string {
	t.Helper()
	result, err := s.handleSaveSolution(context.Background(), makeCallToolRequest("save_solution", args))
	require.NoError(t, err)
	payload := resultJSON(t, result)
	id, _ := payload["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHandleSaveSolution(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleSaveSolution(context.Background(), makeCallToolRequest("save_solution", map[string]interface{}{
		"title":          "Docker OOM on startup",
		"problem":        "Container exits with code 137",
		"solution":       "Raise the memory limit",
		"root_cause":     "OOM killer",
		"error_messages": []interface{}{"OOMKilled"},
		"tags":           []interface{}{"docker", "oom"},
		"project_name":   "billing-api",
	}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.NotEmpty(t, payload["id"])
	assert.Contains(t, payload["message"], "Docker OOM on startup")
}

func TestHandleSaveSolution_MissingTitle(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleSaveSolution(context.Background(), makeCallToolRequest("save_solution", map[string]interface{}{
		"problem":  "p",
		"solution": "s",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleSearchSolutions(t *testing.T) {
	s := newTestServer(t)

	id := saveTestSolution(t, s, map[string]interface{}{
		"title":    "Docker OOM",
		"problem":  "Container exits with code 137 OOMKilled",
		"solution": "Raise the memory limit",
		"tags":     []interface{}{"docker"},
	})

	result, err := s.handleSearchSolutions(context.Background(), makeCallToolRequest("search_solutions", map[string]interface{}{
		"query": "OOMKilled exit 137",
		"limit": float64(5), // JSON numbers decode as float64
	}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	results, ok := payload["results"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, results)
	assert.EqualValues(t, len(results), payload["total"])

	first, ok := results[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, id, first["id"])
	assert.Contains(t, first, "relevance")
	assert.Contains(t, first, "semantic_score")
	assert.Contains(t, first, "keyword_score")
}

func TestHandleSearchSolutions_EmptyQuery(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleSearchSolutions(context.Background(), makeCallToolRequest("search_solutions", map[string]interface{}{
		"query": "  ",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)
}

func TestHandleSearchSolutions_NoMatches(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleSearchSolutions(context.Background(), makeCallToolRequest("search_solutions", map[string]interface{}{
		"query": "nothing indexed yet",
	}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.EqualValues(t, 0, payload["total"])
}

func TestHandleGetSolution(t *testing.T) {
	s := newTestServer(t)

	id := saveTestSolution(t, s, map[string]interface{}{
		"title":          "TLS failure",
		"problem":        "x509 certificate signed by unknown authority",
		"solution":       "Install the CA certificate",
		"error_messages": []interface{}{"x509: unknown authority"},
	})

	result, err := s.handleGetSolution(context.Background(), makeCallToolRequest("get_solution", map[string]interface{}{
		"id": id,
	}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, id, payload["id"])
	assert.Equal(t, "TLS failure", payload["title"])
	assert.Equal(t, "Install the CA certificate", payload["solution"])
	assert.NotEmpty(t, payload["created_at"])
}

func TestHandleGetSolution_NotFoundIsPayloadNotError(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleGetSolution(context.Background(), makeCallToolRequest("get_solution", map[string]interface{}{
		"id": "00000000-0000-0000-0000-000000000000",
	}))
	require.NoError(t, err) // a miss is browsable, not a protocol error

	payload := resultJSON(t, result)
	assert.Contains(t, payload["error"], "not found")
}

func TestHandleGetSolution_MissingID(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleGetSolution(context.Background(), makeCallToolRequest("get_solution", map[string]interface{}{}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleListTags(t *testing.T) {
	s := newTestServer(t)

	saveTestSolution(t, s, map[string]interface{}{
		"title":    "a",
		"problem":  "p",
		"solution": "s",
		"tags":     []interface{}{"docker", "hydration", "500"},
	})

	result, err := s.handleListTags(context.Background(), makeCallToolRequest("list_tags", map[string]interface{}{}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	tags, ok := payload["tags"].([]interface{})
	require.True(t, ok)
	assert.Len(t, tags, 3)

	// category filter narrows
	result, err = s.handleListTags(context.Background(), makeCallToolRequest("list_tags", map[string]interface{}{
		"category": "tech_stack",
	}))
	require.NoError(t, err)
	payload = resultJSON(t, result)
	tags, _ = payload["tags"].([]interface{})
	require.Len(t, tags, 1)
	first := tags[0].(map[string]interface{})
	assert.Equal(t, "docker", first["name"])
}

func TestHandleListTags_InvalidCategory(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleListTags(context.Background(), makeCallToolRequest("list_tags", map[string]interface{}{
		"category": "vibes",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestInferTagCategory(t *testing.T) {
	tests := []struct {
		name string
		want types.TagCategory
	}{
		{"React", types.CategoryTechStack},
		{"docker-compose", types.CategoryTechStack},
		{"PostgreSQL", types.CategoryTechStack},
		{"TypeError", types.CategoryErrorCode},
		{"http-timeout", types.CategoryErrorCode},
		{"404", types.CategoryErrorCode},
		{"hydration", types.CategoryProblemType},
		{"race-condition", types.CategoryProblemType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferTagCategory(tt.name))
		})
	}
}

func TestArgumentHelpers(t *testing.T) {
	args := map[string]interface{}{
		"n":     float64(7),
		"s":     "text",
		"list":  []interface{}{"a", "b", 3},
		"typed": []string{"x"},
	}

	assert.Equal(t, 7, getIntDefault(args, "n", 1))
	assert.Equal(t, 1, getIntDefault(args, "missing", 1))
	assert.Equal(t, "text", getStringDefault(args, "s", "d"))
	assert.Equal(t, "d", getStringDefault(args, "missing", "d"))
	assert.Equal(t, []string{"a", "b"}, getStringSlice(args, "list"))
	assert.Equal(t, []string{"x"}, getStringSlice(args, "typed"))
	assert.Nil(t, getStringSlice(args, "missing"))
}

func TestToolDefinitions(t *testing.T) {
	tools := []mcp.Tool{
		saveSolutionTool(),
		searchSolutionsTool(),
		getSolutionTool(),
		listTagsTool(),
	}

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", tool.InputSchema.Type)
	}
	assert.Equal(t, []string{"save_solution", "search_solutions", "get_solution", "list_tags"}, names)
}
