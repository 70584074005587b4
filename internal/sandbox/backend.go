package sandbox

import (
	"context"
	"time"
)

// ExitKind is the structured outcome a Backend reports (spec §4.5).
type ExitKind string

const (
	ExitOK                 ExitKind = "ok"
	ExitNonzero            ExitKind = "nonzero_exit"
	ExitTimeout            ExitKind = "timeout"
	ExitSignal             ExitKind = "signal"
	ExitMemExceeded        ExitKind = "mem_exceeded"
	ExitSandboxUnavailable ExitKind = "sandbox_unavailable"
)

// Entrypoint names the file to execute and how.
type Entrypoint struct {
	// Dir is the skill directory the entrypoint lives under.
	Dir string
	// RelPath is the entrypoint's path relative to Dir.
	RelPath string
	// Interpreter is the command to invoke the script with ("python3",
	// "bash", "node"), empty for a WASM module (run natively by the wasm
	// backend) or when RelPath is itself directly executable.
	Interpreter string
}

// RunRequest is what the Execution Engine hands a Backend for one call.
type RunRequest struct {
	Entrypoint Entrypoint
	// ArgsJSON is the canonicalized arguments object, passed to the child
	// per the SKILL_ARGS_JSON/SKILL_ARGS_FILE contract (spec §6).
	ArgsJSON []byte
	// ArgsFilePath is set instead of inlining ArgsJSON via env when the
	// payload exceeds the size threshold.
	ArgsFilePath string
}

// Outcome is the structured result a Backend reports back to the engine.
type Outcome struct {
	ExitKind    ExitKind
	ExitCode    int
	Signal      string
	Duration    time.Duration
	Stdout      []byte
	Stderr      []byte
	StdoutBytes int
	StderrBytes int
}

// Backend realizes one Policy.Backend kind.
type Backend interface {
	// Run executes req under policy, blocking until completion, ctx
	// cancellation/deadline, or policy.Timeout, whichever comes first.
	Run(ctx context.Context, policy Policy, req RunRequest) (Outcome, error)
}
