package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/brokerd/internal/upstream"
)

// callTimeout bounds how long a one-shot CLI invocation waits for the
// spawned broker subprocess to answer.
const callTimeout = 30 * time.Second

// callMetaTool spawns the current binary in serve mode over stdio and
// issues a single meta-tool call against it, the same technique the
// broker would use to call any other stdio peer. Reusing upstream.StdioClient
// here means the CLI speaks the exact same MCP wire protocol real clients do.
func callMetaTool(ctx context.Context, tool string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating brokerd executable: %w", err)
	}

	serveArgs := []string{"serve"}
	if serveConfigDir != "" {
		serveArgs = append(serveArgs, "--config-dir", serveConfigDir)
	}
	if serveGlobalDir != "" {
		serveArgs = append(serveArgs, "--global-config-dir", serveGlobalDir)
	}

	client := upstream.NewStdioClient(exe, serveArgs, nil)

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	if err := client.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("connecting to broker: %w", err)
	}
	defer client.Close()

	return client.CallTool(ctx, tool, args)
}

// resultText extracts the meta-tool's JSON text payload and unmarshals it
// into out, or returns the structured error envelope as a Go error.
func resultText(res *mcp.CallToolResult, out interface{}) error {
	if res == nil || len(res.Content) == 0 {
		return fmt.Errorf("empty response from broker")
	}
	tc, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		return fmt.Errorf("unexpected non-text response from broker")
	}
	if res.IsError {
		var env struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
			Field   string `json:"field,omitempty"`
		}
		if err := json.Unmarshal([]byte(tc.Text), &env); err == nil && env.Kind != "" {
			if env.Field != "" {
				return fmt.Errorf("%s: %s (field: %s)", env.Kind, env.Message, env.Field)
			}
			return fmt.Errorf("%s: %s", env.Kind, env.Message)
		}
		return fmt.Errorf("broker returned an error: %s", tc.Text)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal([]byte(tc.Text), out)
}

// printJSON writes v as indented JSON to stdout, the fallback output
// format every passthrough command supports.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
