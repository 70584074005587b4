package metatools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/brokerd/internal/registry"
)

func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Search the callable registry for tools and skills by name, tag, or description.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"q":    map[string]interface{}{"type": "string", "description": "Query text; empty matches everything."},
				"kind": map[string]interface{}{"type": "string", "enum": []string{"any", "tools", "skills"}},
				"mode": map[string]interface{}{"type": "string", "enum": []string{"literal", "regex", "fuzzy"}},
				"limit": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 50},
				"filters": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"servers":   map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
						"tags":      map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
						"risk_tier": map[string]interface{}{"type": "string"},
						"requires":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					},
				},
				"cursor": map[string]interface{}{"type": "string"},
			},
		},
	}
}

func (h *Handlers) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := req.Params.Arguments.(map[string]interface{})
	if !ok {
		return invalidArgsResult("arguments must be a JSON object")
	}

	var sa searchArgs
	if err := decodeArgs(args, &sa); err != nil {
		return invalidArgsResult("malformed search arguments: " + err.Error())
	}

	q := registry.Query{
		Q:      sa.Q,
		Kind:   registry.KindFilter(sa.Kind),
		Mode:   registry.Mode(sa.Mode),
		Limit:  sa.Limit,
		Cursor: sa.Cursor,
	}
	if sa.Filters != nil {
		q.Filters = registry.Filters{
			Servers:  sa.Filters.Servers,
			Tags:     sa.Filters.Tags,
			RiskTier: sa.Filters.RiskTier,
			Requires: sa.Filters.Requires,
		}
	}

	snap := h.reg.Snapshot()
	resp, err := registry.Search(snap, q)
	if err != nil {
		return brokerErrorResult(err)
	}
	return jsonResult(resp)
}
