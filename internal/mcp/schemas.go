package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexCodebaseTool returns the tool definition for index_codebase
func indexCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_codebase",
		Description: "Index a JavaScript/TypeScript codebase into the semantic index and the code knowledge graph",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the codebase root (must contain .js/.ts files)",
				},
				"min_function_length": map[string]interface{}{
					"type":        "integer",
					"description": "Exclude functions whose source is shorter than this many bytes (0 disables filtering)",
					"minimum":     0,
				},
				"prune": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, remove entities from previous runs that this run did not produce",
					"default":     true,
				},
			},
			Required: []string{"path"},
		},
	}
}

// queryCodeTool returns the tool definition for query_code
func queryCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query_code",
		Description: "Query the indexed codebase with natural language; returns semantically similar functions plus structurally related ones from the code graph",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query",
				},
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Number of similarity-ranked results (1-100)",
					"default":     5,
					"minimum":     1,
					"maximum":     100,
				},
				"max_hops": map[string]interface{}{
					"type":        "integer",
					"description": "Graph expansion depth from the vector candidates",
					"default":     1,
					"minimum":     1,
				},
				"expansion_limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum graph-only results appended after the scored head (default: same as k)",
					"minimum":     1,
				},
				"vector_only": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, skip graph expansion and return pure similarity results",
					"default":     false,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index statistics and store health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
