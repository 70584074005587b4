package upstream

import "github.com/mark3labs/mcp-go/mcp"

// renderResult flattens a peer's tool result into the plain-text form the
// execution engine's envelope carries; structured content blocks other
// than text are dropped rather than guessed at.
func renderResult(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	out := ""
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			out += tc.Text
		}
	}
	return out
}
