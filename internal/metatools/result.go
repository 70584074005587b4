package metatools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/brokerd/internal/brokerapi"
)

// jsonResult marshals v as indented JSON and wraps it as a text tool
// result, matching the teacher's handlers.go convention of returning
// structured data as a JSON string rather than a flattened summary.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to marshal result: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// errorEnvelope is the structured body of a meta-tool error, carrying the
// closed ErrorKind so clients can switch on failure class instead of
// parsing a free-form message.
type errorEnvelope struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// brokerErrorResult renders any error as a meta-tool error result. Broker
// errors carry their closed Kind through; anything else is reported as
// ProtocolError, since an unclassified error escaping this far indicates a
// caller bug rather than a recognized failure mode.
func brokerErrorResult(err error) (*mcp.CallToolResult, error) {
	env := errorEnvelope{Kind: string(brokerapi.ErrProtocolError), Message: err.Error()}
	if berr, ok := err.(*brokerapi.Error); ok {
		env.Kind = string(berr.Kind)
		env.Message = berr.Message
		env.Field = berr.Field
	} else if kind, ok := brokerapi.KindOf(err); ok {
		env.Kind = string(kind)
	}
	b, marshalErr := json.Marshal(env)
	if marshalErr != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultError(string(b)), nil
}

func invalidArgsResult(msg string) (*mcp.CallToolResult, error) {
	return brokerErrorResult(brokerapi.NewError(brokerapi.ErrInvalidArguments, msg))
}
