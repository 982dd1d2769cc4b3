package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// saveSolutionTool returns the tool definition for save_solution
func saveSolutionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "save_solution",
		Description: "Save a problem solution to the memory system for future reference. Use this after successfully solving a bug, configuration issue, or technical problem.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "A concise title describing the problem (max 500 chars)",
				},
				"problem": map[string]interface{}{
					"type":        "string",
					"description": "Detailed description of the problem",
				},
				"solution": map[string]interface{}{
					"type":        "string",
					"description": "The solution that resolved the problem",
				},
				"root_cause": map[string]interface{}{
					"type":        "string",
					"description": "Optional root cause analysis",
				},
				"error_messages": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Optional list of error messages encountered",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Optional tags for categorization (e.g., 'React', 'Docker', 'bug')",
				},
				"project_name": map[string]interface{}{
					"type":        "string",
					"description": "Optional name of the project where this was solved",
				},
			},
			Required: []string{"title", "problem", "solution"},
		},
	}
}

// searchSolutionsTool returns the tool definition for search_solutions
func searchSolutionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_solutions",
		Description: "Search for similar solutions in the memory system. Use this when encountering a problem to find relevant historical solutions.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query - describe the problem or paste error messages",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (default 5, max 20)",
					"default":     5,
					"minimum":     1,
					"maximum":     20,
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Optional tags to filter results",
				},
				"search_mode": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"hybrid", "semantic", "keyword"},
					"description": "Search mode: 'hybrid' (default), 'semantic', or 'keyword'",
					"default":     "hybrid",
				},
			},
			Required: []string{"query"},
		},
	}
}

// getSolutionTool returns the tool definition for get_solution
func getSolutionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_solution",
		Description: "Get full details of a solution by its ID. Use this after search_solutions to get complete solution information.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "The solution UUID",
				},
			},
			Required: []string{"id"},
		},
	}
}

// listTagsTool returns the tool definition for list_tags
func listTagsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_tags",
		Description: "List all tags in the solution memory, optionally filtered by category. Useful for browsing solutions by technology or problem type.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"category": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"tech_stack", "problem_type", "error_code"},
					"description": "Optional category filter",
				},
			},
			Required: []string{},
		},
	}
}
