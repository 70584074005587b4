// Package metatools exposes the broker's four-tool client surface
// (search, schema, exec, manage) as MCP server tools, following the
// aggregator's own server.ServerTool/mcp.Tool wiring idiom. Each handler is
// a thin adapter over the registry, execution engine, and skill store; the
// package holds no business logic of its own.
package metatools

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeArgs unmarshals a tool call's raw arguments into a typed struct,
// rejecting unknown top-level fields per the wire contract.
func decodeArgs(raw map[string]interface{}, out interface{}) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("re-encode arguments: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

type filtersArg struct {
	Servers  []string `json:"servers,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	RiskTier string   `json:"risk_tier,omitempty"`
	Requires []string `json:"requires,omitempty"`
}

type searchArgs struct {
	Q       string      `json:"q"`
	Kind    string      `json:"kind,omitempty"`
	Mode    string      `json:"mode,omitempty"`
	Limit   int         `json:"limit,omitempty"`
	Filters *filtersArg `json:"filters,omitempty"`
	Cursor  string      `json:"cursor,omitempty"`
}

type schemaArgs struct {
	CallableID          string `json:"callable_id"`
	Format              string `json:"format,omitempty"` // json_schema | signature | both
	Pointer             string `json:"pointer,omitempty"`
	IncludeOutputSchema bool   `json:"include_output_schema,omitempty"`
	MaxBytes            int    `json:"max_bytes,omitempty"`
}

type execArgs struct {
	CallableID string                 `json:"callable_id"`
	Arguments  map[string]interface{} `json:"arguments,omitempty"`
	// TimeoutMS is a pointer so a caller omitting the field (no deadline
	// override) is distinguishable from an explicit timeout_ms: 0 (spec §8:
	// exec(timeout_ms=0) must fail with Timeout, never fall back to the
	// preset's default deadline).
	TimeoutMS     *int   `json:"timeout_ms,omitempty"`
	DryRun        bool   `json:"dry_run,omitempty"`
	Consent       string `json:"consent,omitempty"`
	IncludeTiming bool   `json:"include_timing,omitempty"`
	IncludeSteps  bool   `json:"include_steps,omitempty"`
}

type editArg struct {
	ReplaceAll string `json:"replace_all,omitempty"`
	Prepend    string `json:"prepend,omitempty"`
	Append     string `json:"append,omitempty"`
}

type manageArgs struct {
	Operation    string            `json:"operation"` // create | get | update | delete | history
	Name         string            `json:"name,omitempty"`
	Version      string            `json:"version,omitempty"`
	Description  string            `json:"description,omitempty"`
	SkillMD      string            `json:"skill_md,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	BundledFiles map[string]string `json:"bundled_files,omitempty"`
	Filename     string            `json:"filename,omitempty"`
	Edit         *editArg          `json:"edit,omitempty"`
	// CallableID and Limit back operation=history: recent Execution
	// Records for that callable, newest first, capped at Limit.
	CallableID string `json:"callable_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}
