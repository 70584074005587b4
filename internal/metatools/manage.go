package metatools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/brokerd/internal/audit"
	"github.com/giantswarm/brokerd/internal/brokerapi"
	"github.com/giantswarm/brokerd/internal/skillstore"
)

func manageTool() mcp.Tool {
	return mcp.Tool{
		Name:        "manage",
		Description: "Create, inspect, update, or delete a locally authored skill, or query a callable's execution history.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"operation":   map[string]interface{}{"type": "string", "enum": []string{"create", "get", "update", "delete", "history"}},
				"name":        map[string]interface{}{"type": "string"},
				"version":     map[string]interface{}{"type": "string"},
				"description": map[string]interface{}{"type": "string"},
				"skill_md":    map[string]interface{}{"type": "string"},
				"tags":        map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				"bundled_files": map[string]interface{}{
					"type":                 "object",
					"additionalProperties": map[string]interface{}{"type": "string"},
				},
				"filename": map[string]interface{}{"type": "string", "description": "For operation=get, an optional bundled file to read instead of SKILL.md."},
				"edit": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"replace_all": map[string]interface{}{"type": "string"},
						"prepend":     map[string]interface{}{"type": "string"},
						"append":      map[string]interface{}{"type": "string"},
					},
				},
				"callable_id": map[string]interface{}{"type": "string", "description": "For operation=history, the callable whose recent Execution Records to return."},
				"limit":       map[string]interface{}{"type": "integer", "description": "For operation=history, the maximum number of records to return (default 20)."},
			},
			Required: []string{"operation"},
		},
	}
}

type manageResponse struct {
	Descriptor *brokerapi.Descriptor       `json:"descriptor,omitempty"`
	SkillMD    string                      `json:"skill_md,omitempty"`
	FileBytes  []byte                      `json:"file_bytes,omitempty"`
	Deleted    bool                        `json:"deleted,omitempty"`
	History    []brokerapi.ExecutionRecord `json:"history,omitempty"`
}

const defaultHistoryLimit = 20

func (h *Handlers) handleManage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := req.Params.Arguments.(map[string]interface{})
	if !ok {
		return invalidArgsResult("arguments must be a JSON object")
	}

	var ma manageArgs
	if err := decodeArgs(args, &ma); err != nil {
		return invalidArgsResult("malformed manage arguments: " + err.Error())
	}
	if ma.Operation != "history" && ma.Name == "" {
		return invalidArgsResult("name is required")
	}

	switch ma.Operation {
	case "create":
		desc, err := h.skills.Create(skillstore.CreateRequest{
			Name:         ma.Name,
			Version:      ma.Version,
			Description:  ma.Description,
			SkillMD:      ma.SkillMD,
			Tags:         ma.Tags,
			BundledFiles: ma.BundledFiles,
		})
		if err != nil {
			return brokerErrorResult(err)
		}
		return jsonResult(manageResponse{Descriptor: &desc})

	case "get":
		desc, md, err := h.skills.Get(ma.Name)
		if err != nil {
			return brokerErrorResult(err)
		}
		if ma.Filename != "" {
			content, err := h.skills.GetFile(ma.Name, ma.Filename)
			if err != nil {
				return brokerErrorResult(err)
			}
			return jsonResult(manageResponse{Descriptor: &desc, FileBytes: content})
		}
		return jsonResult(manageResponse{Descriptor: &desc, SkillMD: md})

	case "update":
		if ma.Edit == nil {
			return invalidArgsResult("edit is required for operation=update")
		}
		desc, err := h.skills.Update(ma.Name, skillstore.EditOp{
			ReplaceAll: ma.Edit.ReplaceAll,
			Prepend:    ma.Edit.Prepend,
			Append:     ma.Edit.Append,
		})
		if err != nil {
			return brokerErrorResult(err)
		}
		return jsonResult(manageResponse{Descriptor: &desc})

	case "delete":
		if err := h.skills.Delete(ma.Name); err != nil {
			return brokerErrorResult(err)
		}
		return jsonResult(manageResponse{Deleted: true})

	case "history":
		if ma.CallableID == "" {
			return invalidArgsResult("callable_id is required for operation=history")
		}
		if h.auditor == nil {
			return brokerErrorResult(brokerapi.NewError(brokerapi.ErrNotFound, "execution history is not enabled on this broker"))
		}
		limit := ma.Limit
		if limit <= 0 {
			limit = defaultHistoryLimit
		}
		records, err := h.auditor.List(ctx, audit.Filter{CallableID: ma.CallableID, Limit: limit})
		if err != nil {
			return brokerErrorResult(err)
		}
		return jsonResult(manageResponse{History: records})

	default:
		return invalidArgsResult("operation must be one of: create, get, update, delete, history")
	}
}
