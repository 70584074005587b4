// Package execengine implements the exec algorithm (spec §4.4): resolve a
// callable against a fresh Registry snapshot, validate arguments, enforce
// risk-tier consent and skill tool policy, then route the call to a peer
// session or a sandboxed child, persisting an audit record either way.
package execengine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/giantswarm/brokerd/internal/audit"
	"github.com/giantswarm/brokerd/internal/brokerapi"
	"github.com/giantswarm/brokerd/internal/registry"
	"github.com/giantswarm/brokerd/internal/sandbox"
	"github.com/giantswarm/brokerd/pkg/logging"
)

// PeerCaller routes a call to the owning upstream session. Satisfied by
// *upstream.Multiplexer.
type PeerCaller interface {
	Call(ctx context.Context, desc brokerapi.Descriptor, args map[string]interface{}) (string, error)
}

// SandboxRunner realizes a skill's bundled entrypoint under a sandbox
// policy. Satisfied by *sandbox.Manager.
type SandboxRunner interface {
	Run(ctx context.Context, preset sandbox.Preset, override sandbox.Policy, req sandbox.RunRequest) (sandbox.Outcome, sandbox.Policy, error)
}

// SkillSource resolves a skill's on-disk content for the "prompted skill"
// route and for locating bundled entrypoints. Satisfied by
// *skillstore.Store.
type SkillSource interface {
	Get(name string) (brokerapi.Descriptor, string, error)
}

// Engine wires the four collaborators the exec algorithm needs.
type Engine struct {
	reg     *registry.Registry
	peers   PeerCaller
	sandbox SandboxRunner
	skills  SkillSource
	auditor audit.Store

	// ArgsFileThreshold is the payload size above which arguments are
	// passed to a sandboxed child via a temp file instead of the
	// SKILL_ARGS_JSON environment variable (spec §6).
	ArgsFileThreshold int
}

// New constructs an Engine. auditor may be nil, in which case audit writes
// are skipped entirely (still never blocking a result, per spec §5).
func New(reg *registry.Registry, peers PeerCaller, sb SandboxRunner, skills SkillSource, auditor audit.Store) *Engine {
	return &Engine{
		reg:               reg,
		peers:             peers,
		sandbox:           sb,
		skills:            skills,
		auditor:           auditor,
		ArgsFileThreshold: 32 * 1024,
	}
}

// Request is the exec meta-tool's input (spec §4.4/§4.6). TimeoutMS is a
// pointer so an absent deadline (nil, fall back to the preset's own
// timeout) is distinguishable from an explicit timeout_ms=0, which spec §8's
// boundary test requires to fail immediately with Timeout.
type Request struct {
	CallableID    string
	Arguments     map[string]interface{}
	TimeoutMS     *int
	DryRun        bool
	Consent       string
	IncludeTiming bool
	IncludeSteps  bool
}

// Trace carries the optional diagnostic fields a caller can opt into.
type Trace struct {
	Steps    []string      `json:"steps,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Result is the exec meta-tool's output.
type Result struct {
	CallableID string                 `json:"callable_id"`
	Status     string                 `json:"status"` // "ok" | "error"
	Route      []string               `json:"route"`
	DryRun     bool                   `json:"dry_run"`
	Arguments  map[string]interface{} `json:"arguments,omitempty"`
	Output     string                 `json:"output,omitempty"`
	Trace      *Trace                 `json:"trace,omitempty"`
}

// Exec runs the full algorithm described in spec §4.4.
func (e *Engine) Exec(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	var steps []string
	note := func(s string) {
		if req.IncludeSteps {
			steps = append(steps, s)
		}
	}

	rec := brokerapi.ExecutionRecord{
		ID:         uuid.NewString(),
		CallableID: req.CallableID,
		StartedAt:  started,
	}

	fail := func(berr *brokerapi.Error) (Result, error) {
		rec.FinishedAt = time.Now()
		rec.Status = "error"
		rec.ErrorKind = string(berr.Kind)
		rec.Duration = rec.FinishedAt.Sub(rec.StartedAt)
		e.persist(ctx, rec)
		return Result{CallableID: req.CallableID, Status: "error", Route: steps}, berr
	}

	logging.Debug("ExecEngine", "exec %s: %s", rec.ID, req.CallableID)

	note("resolve")
	desc, err := e.reg.Get(req.CallableID)
	if err != nil {
		kind, _ := brokerapi.KindOf(err)
		return fail(brokerapi.Wrap(kind, err, "resolve callable"))
	}
	rec.PeerGeneration = desc.PeerGeneration

	note("validate_arguments")
	filled, err := canonicalizeArguments(desc, req.Arguments)
	if err != nil {
		if berr, ok := err.(*brokerapi.Error); ok {
			return fail(berr)
		}
		return fail(brokerapi.Wrap(brokerapi.ErrInvalidArguments, err, "validate arguments"))
	}

	note("enforce_policy")
	if desc.RiskTier.RequiresConsent() && req.Consent == "" {
		return fail(brokerapi.NewError(brokerapi.ErrConsentRequired, "risk tier "+string(desc.RiskTier)+" requires a consent token"))
	}
	if berr := checkToolPolicy(desc, e.reg.Snapshot().ToolFQNs()); berr != nil {
		return fail(berr)
	}

	if req.DryRun {
		note("dry_run")
		rec.FinishedAt = time.Now()
		rec.Status = "ok"
		rec.Duration = rec.FinishedAt.Sub(rec.StartedAt)
		e.persist(ctx, rec)
		return Result{
			CallableID: req.CallableID,
			Status:     "ok",
			Route:      append(steps, routeFor(desc)...),
			DryRun:     true,
			Arguments:  filled,
			Trace:      e.trace(req, steps, rec.Duration),
		}, nil
	}

	if req.TimeoutMS != nil && *req.TimeoutMS == 0 {
		note("timeout")
		return fail(brokerapi.NewError(brokerapi.ErrTimeout, "timeout_ms=0 deadline already expired"))
	}

	effectiveTimeout := e.effectiveTimeout(req.TimeoutMS)
	callCtx := ctx
	var cancel context.CancelFunc
	if effectiveTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, effectiveTimeout)
		defer cancel()
	}

	var output string
	var routeSteps []string
	switch desc.Kind {
	case brokerapi.KindTool:
		routeSteps = []string{"peer", desc.Source.PeerAlias}
		output, err = e.peers.Call(callCtx, desc, filled)
	case brokerapi.KindSkill:
		output, routeSteps, err = e.execSkill(callCtx, desc, filled)
	default:
		err = brokerapi.NewError(brokerapi.ErrProtocolError, "descriptor has unknown kind")
	}
	steps = append(steps, routeSteps...)

	if err != nil {
		if berr, ok := err.(*brokerapi.Error); ok {
			return fail(berr)
		}
		return fail(brokerapi.Wrap(brokerapi.ErrExecFailed, err, "exec failed"))
	}

	rec.FinishedAt = time.Now()
	rec.Status = "ok"
	rec.StdoutBytes = len(output)
	rec.Route = steps
	rec.Duration = rec.FinishedAt.Sub(rec.StartedAt)
	e.persist(ctx, rec)

	return Result{
		CallableID: req.CallableID,
		Status:     "ok",
		Route:      steps,
		Output:     output,
		Trace:      e.trace(req, steps, rec.Duration),
	}, nil
}

func (e *Engine) trace(req Request, steps []string, d time.Duration) *Trace {
	if !req.IncludeTiming && !req.IncludeSteps {
		return nil
	}
	t := &Trace{}
	if req.IncludeSteps {
		t.Steps = steps
	}
	if req.IncludeTiming {
		t.Duration = d
	}
	return t
}

// effectiveTimeout converts an explicit, positive timeout_ms into a
// duration. A nil request leaves the deadline unbounded here: the sandbox
// or peer route still enforces the preset's own timeout (spec §4.4 step 4's
// effective_timeout = min(per-call, preset-timeout)). Zero is handled by the
// caller before this is reached.
func (e *Engine) effectiveTimeout(requested *int) time.Duration {
	if requested == nil || *requested <= 0 {
		return 0
	}
	return time.Duration(*requested) * time.Millisecond
}

func routeFor(desc brokerapi.Descriptor) []string {
	if desc.Kind == brokerapi.KindTool {
		return []string{"peer", desc.Source.PeerAlias}
	}
	if len(desc.BundledEntrypoints) > 0 {
		return []string{"skill", "sandbox"}
	}
	return []string{"skill", "prompted"}
}

// persist never lets an audit failure mask a successful exec result; it
// logs instead (spec §5/§7). The write runs in its own goroutine, detached
// from ctx's cancellation, so the result never waits on it.
func (e *Engine) persist(ctx context.Context, rec brokerapi.ExecutionRecord) {
	if e.auditor == nil {
		return
	}
	go func() {
		if err := e.auditor.Put(context.WithoutCancel(ctx), rec); err != nil {
			logging.Warn("ExecEngine", "audit persistence failed for %s (exec_id=%s): %v", rec.CallableID, rec.ID, err)
		}
	}()
}
