package metatools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/brokerd/internal/execengine"
)

func execTool() mcp.Tool {
	return mcp.Tool{
		Name:        "exec",
		Description: "Execute a callable by id, routing to its owning peer session or a sandboxed skill run.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"callable_id":    map[string]interface{}{"type": "string"},
				"arguments":      map[string]interface{}{"type": "object"},
				"timeout_ms":     map[string]interface{}{"type": "integer"},
				"dry_run":        map[string]interface{}{"type": "boolean"},
				"consent":        map[string]interface{}{"type": "string", "description": "Consent token required for write/destructive/network risk tiers."},
				"include_timing": map[string]interface{}{"type": "boolean"},
				"include_steps":  map[string]interface{}{"type": "boolean"},
			},
			Required: []string{"callable_id"},
		},
	}
}

func (h *Handlers) handleExec(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := req.Params.Arguments.(map[string]interface{})
	if !ok {
		return invalidArgsResult("arguments must be a JSON object")
	}

	var ea execArgs
	if err := decodeArgs(args, &ea); err != nil {
		return invalidArgsResult("malformed exec arguments: " + err.Error())
	}
	if ea.CallableID == "" {
		return invalidArgsResult("callable_id is required")
	}

	result, err := h.engine.Exec(ctx, execengine.Request{
		CallableID:    ea.CallableID,
		Arguments:     ea.Arguments,
		TimeoutMS:     ea.TimeoutMS,
		DryRun:        ea.DryRun,
		Consent:       ea.Consent,
		IncludeTiming: ea.IncludeTiming,
		IncludeSteps:  ea.IncludeSteps,
	})
	if err != nil {
		return brokerErrorResult(err)
	}
	return jsonResult(result)
}
