// Package brokerapi holds the types every broker component trades in: the
// Callable Descriptor, the closed error-kind enum, and the small set of
// shared enums (kind, risk tier, sandbox preset, transport).
package brokerapi

import "time"

// Kind distinguishes a descriptor's origin.
type Kind string

const (
	KindTool  Kind = "tool-from-peer"
	KindSkill Kind = "skill"
)

// RiskTier gates whether a call requires explicit consent.
type RiskTier string

const (
	RiskReadOnly     RiskTier = "read_only"
	RiskLimitedWrite RiskTier = "limited_write"
	RiskWrite        RiskTier = "write"
	RiskDestructive  RiskTier = "destructive"
	RiskNetwork      RiskTier = "network"
)

// RequiresConsent reports whether calling a callable at this risk tier
// demands a consent token absent an override.
func (r RiskTier) RequiresConsent() bool {
	switch r {
	case RiskWrite, RiskDestructive, RiskNetwork:
		return true
	default:
		return false
	}
}

// Transport is how the multiplexer talks to a peer.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// Schema is a JSON-Schema-shaped object, kept verbatim so clients see
// exactly what the peer (or skill author) declared.
type Schema struct {
	Type       string                 `json:"type,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`
	Enum       []interface{}          `json:"enum,omitempty"`
	Default    interface{}            `json:"default,omitempty"`
	Items      interface{}            `json:"items,omitempty"`
}

// Signature is the derived, human-scannable parameter summary for a
// descriptor.
type Signature struct {
	Required []ParamConstraint `json:"required"`
	Optional []ParamConstraint `json:"optional"`
}

// ParamConstraint is a one-line constraint string for a single parameter.
type ParamConstraint struct {
	Name       string `json:"name"`
	Constraint string `json:"constraint"`
}

// ToolPolicy constrains which peer tools a skill may reach for, by glob
// pattern over tool FQNs.
type ToolPolicy struct {
	Allow    []string `json:"allow,omitempty"`
	Deny     []string `json:"deny,omitempty"`
	Required []string `json:"required,omitempty"`
}

// SourceLocator identifies where a callable's implementation lives.
type SourceLocator struct {
	// Tools.
	PeerAlias     string `json:"peer_alias,omitempty"`
	PeerLocalName string `json:"peer_local_name,omitempty"`

	// Skills.
	SkillRoot string `json:"skill_root,omitempty"`
}

// EntrypointKind is the interpreter family for a skill's bundled script.
type EntrypointKind string

const (
	EntrypointPython EntrypointKind = "python"
	EntrypointBash   EntrypointKind = "bash"
	EntrypointNode   EntrypointKind = "node"
	EntrypointWasm   EntrypointKind = "wasm"
)

// Entrypoint is one bundled, executable file inside a skill directory.
type Entrypoint struct {
	Filename    string         `json:"filename"`
	Interpreter string         `json:"interpreter"`
	Kind        EntrypointKind `json:"kind"`
}

// Descriptor is the Callable Descriptor: the unit every component trades in.
type Descriptor struct {
	Kind               Kind          `json:"kind"`
	Name               string        `json:"name"`
	FQN                string        `json:"fqn"`
	Version            string        `json:"version"`
	SchemaDigest       string        `json:"schema_digest"`
	CallableID         string        `json:"callable_id"`
	InputSchema        Schema        `json:"input_schema"`
	OutputSchema       *Schema       `json:"output_schema"`
	Signature          Signature     `json:"signature"`
	Description        string        `json:"description"`
	Tags               []string      `json:"tags"`
	RiskTier           RiskTier      `json:"risk_tier"`
	ToolPolicy         *ToolPolicy   `json:"tool_policy,omitempty"`
	SandboxPolicyOverr string        `json:"sandbox_policy,omitempty"`
	Source             SourceLocator `json:"source_locator"`
	BundledEntrypoints []Entrypoint  `json:"bundled_entrypoints,omitempty"`

	// PeerGeneration ties a tool descriptor's lifetime to the session
	// epoch it was observed under; zero for skills.
	PeerGeneration uint64 `json:"-"`
}

// Clone returns a deep-enough copy for copy-on-read snapshot semantics:
// callers may freely mutate slices/maps on the returned value without
// affecting the registry's stored copy.
func (d Descriptor) Clone() Descriptor {
	clone := d
	clone.Tags = append([]string(nil), d.Tags...)
	clone.InputSchema.Required = append([]string(nil), d.InputSchema.Required...)
	if d.ToolPolicy != nil {
		tp := *d.ToolPolicy
		tp.Allow = append([]string(nil), d.ToolPolicy.Allow...)
		tp.Deny = append([]string(nil), d.ToolPolicy.Deny...)
		tp.Required = append([]string(nil), d.ToolPolicy.Required...)
		clone.ToolPolicy = &tp
	}
	clone.BundledEntrypoints = append([]Entrypoint(nil), d.BundledEntrypoints...)
	return clone
}

// ExecutionRecord is the append-only audit trail of one exec call.
type ExecutionRecord struct {
	ID              string        `json:"id"`
	CallableID      string        `json:"callable_id"`
	ArgumentsDigest string        `json:"arguments_digest"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	Status          string        `json:"status"` // "ok" | "error"
	ErrorKind       string        `json:"error_kind,omitempty"`
	PeerGeneration  uint64        `json:"peer_generation,omitempty"`
	SandboxPreset   string        `json:"sandbox_preset,omitempty"`
	StdoutBytes     int           `json:"stdout_bytes"`
	StderrBytes     int           `json:"stderr_bytes"`
	Route           []string      `json:"route"`
	Duration        time.Duration `json:"duration"`
}
