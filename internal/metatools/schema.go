package metatools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/xeipuuv/gojsonpointer"

	"github.com/giantswarm/brokerd/internal/brokerapi"
)

const defaultSchemaMaxBytes = 64 * 1024

func schemaTool() mcp.Tool {
	return mcp.Tool{
		Name:        "schema",
		Description: "Fetch the input/output schema or human-readable signature for a callable returned by search.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"callable_id":           map[string]interface{}{"type": "string"},
				"format":                map[string]interface{}{"type": "string", "enum": []string{"json_schema", "signature", "both"}},
				"pointer":               map[string]interface{}{"type": "string", "description": "Optional JSON pointer narrowing the returned subtree."},
				"include_output_schema": map[string]interface{}{"type": "boolean"},
				"max_bytes":             map[string]interface{}{"type": "integer"},
			},
			Required: []string{"callable_id"},
		},
	}
}

// schemaResponse is the schema meta-tool's output shape (spec §4.6).
type schemaResponse struct {
	CallableID   string               `json:"callable_id"`
	InputSchema  interface{}          `json:"input_schema,omitempty"`
	OutputSchema interface{}          `json:"output_schema"`
	Signature    *brokerapi.Signature `json:"signature,omitempty"`
	Truncated    bool                 `json:"truncated,omitempty"`
}

func (h *Handlers) handleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := req.Params.Arguments.(map[string]interface{})
	if !ok {
		return invalidArgsResult("arguments must be a JSON object")
	}

	var sa schemaArgs
	if err := decodeArgs(args, &sa); err != nil {
		return invalidArgsResult("malformed schema arguments: " + err.Error())
	}
	if sa.CallableID == "" {
		return invalidArgsResult("callable_id is required")
	}
	format := sa.Format
	if format == "" {
		format = "json_schema"
	}
	maxBytes := sa.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultSchemaMaxBytes
	}

	desc, err := h.reg.Get(sa.CallableID)
	if err != nil {
		return brokerErrorResult(err)
	}

	resp := schemaResponse{CallableID: desc.CallableID, OutputSchema: nil}
	if format == "json_schema" || format == "both" {
		resp.InputSchema = desc.InputSchema
	}
	if format == "signature" || format == "both" {
		sig := desc.Signature
		resp.Signature = &sig
	}
	if sa.IncludeOutputSchema && desc.OutputSchema != nil {
		resp.OutputSchema = desc.OutputSchema
	}

	var out interface{} = resp
	if sa.Pointer != "" {
		narrowed, err := narrow(resp, sa.Pointer)
		if err != nil {
			return invalidArgsResult("invalid pointer: " + err.Error())
		}
		out = narrowed
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return brokerErrorResult(err)
	}
	if len(b) > maxBytes {
		truncated := struct {
			CallableID string `json:"callable_id"`
			Truncated  bool   `json:"truncated"`
			MaxBytes   int    `json:"max_bytes"`
		}{CallableID: desc.CallableID, Truncated: true, MaxBytes: maxBytes}
		return jsonResult(truncated)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// narrow applies a JSON pointer to v by round-tripping through an
// interface{} document, since gojsonpointer operates on decoded JSON
// values rather than typed structs.
func narrow(v interface{}, pointer string) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	ptr, err := gojsonpointer.NewJsonPointer(pointer)
	if err != nil {
		return nil, err
	}
	result, _, err := ptr.Get(doc)
	if err != nil {
		return nil, err
	}
	return result, nil
}
