package execengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/giantswarm/brokerd/internal/brokerapi"
	"github.com/giantswarm/brokerd/internal/sandbox"
)

// execSkill realizes either the sandboxed-entrypoint route or the
// prompted-content route for a skill callable (spec §4.4 step 5).
func (e *Engine) execSkill(ctx context.Context, desc brokerapi.Descriptor, args map[string]interface{}) (string, []string, error) {
	if len(desc.BundledEntrypoints) == 0 {
		return e.execPromptedSkill(desc)
	}
	return e.execSandboxedSkill(ctx, desc, args)
}

// execPromptedSkill returns the skill's SKILL.md content for the client to
// follow. This is a controlled content retrieval, audited like any exec.
func (e *Engine) execPromptedSkill(desc brokerapi.Descriptor) (string, []string, error) {
	if e.skills == nil {
		return "", nil, brokerapi.NewError(brokerapi.ErrProtocolError, "no skill source configured")
	}
	_, body, err := e.skills.Get(desc.Name)
	if err != nil {
		return "", nil, err
	}
	return body, []string{"skill", "prompted"}, nil
}

func (e *Engine) execSandboxedSkill(ctx context.Context, desc brokerapi.Descriptor, args map[string]interface{}) (string, []string, error) {
	if e.sandbox == nil {
		return "", nil, brokerapi.NewError(brokerapi.ErrSandboxUnavailable, "no sandbox manager configured")
	}

	ep := desc.BundledEntrypoints[0]
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return "", nil, brokerapi.Wrap(brokerapi.ErrInvalidArguments, err, "marshal arguments")
	}

	runReq := sandbox.RunRequest{
		Entrypoint: sandbox.Entrypoint{
			Dir:         desc.Source.SkillRoot,
			RelPath:     ep.Filename,
			Interpreter: ep.Interpreter,
		},
	}

	threshold := e.ArgsFileThreshold
	if threshold <= 0 {
		threshold = 32 * 1024
	}
	if len(argsJSON) > threshold {
		path, cleanup, err := writeArgsFile(argsJSON)
		if err != nil {
			return "", nil, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "stage oversized arguments")
		}
		defer cleanup()
		runReq.ArgsFilePath = path
	} else {
		runReq.ArgsJSON = argsJSON
	}

	preset := presetForDescriptor(desc)
	outcome, _, err := e.sandbox.Run(ctx, preset, sandbox.Policy{}, runReq)
	route := []string{"skill", "sandbox", string(preset)}
	if err != nil {
		return "", route, err
	}

	berr := outcomeToError(outcome)
	if berr != nil {
		return "", route, berr
	}
	return string(bytes.TrimRight(outcome.Stdout, "\n")), route, nil
}

func presetForDescriptor(desc brokerapi.Descriptor) sandbox.Preset {
	if desc.SandboxPolicyOverr != "" {
		return sandbox.Preset(desc.SandboxPolicyOverr)
	}
	return sandbox.PresetStandard
}

func outcomeToError(outcome sandbox.Outcome) *brokerapi.Error {
	switch outcome.ExitKind {
	case sandbox.ExitOK:
		return nil
	case sandbox.ExitTimeout:
		return brokerapi.NewError(brokerapi.ErrTimeout, "sandboxed entrypoint exceeded its deadline")
	case sandbox.ExitSandboxUnavailable:
		return brokerapi.NewError(brokerapi.ErrSandboxUnavailable, "requested sandbox backend is not available on this host")
	case sandbox.ExitMemExceeded:
		return brokerapi.NewError(brokerapi.ErrExecFailed, "sandboxed entrypoint exceeded its memory limit")
	case sandbox.ExitSignal:
		return brokerapi.NewError(brokerapi.ErrExecFailed, fmt.Sprintf("sandboxed entrypoint terminated by signal %s", outcome.Signal))
	case sandbox.ExitNonzero:
		return brokerapi.NewError(brokerapi.ErrExecFailed, fmt.Sprintf("sandboxed entrypoint exited %d", outcome.ExitCode))
	default:
		return brokerapi.NewError(brokerapi.ErrExecFailed, "sandboxed entrypoint reported an unknown outcome")
	}
}

func writeArgsFile(argsJSON []byte) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "brokerd-args-*.json")
	if err != nil {
		return "", nil, err
	}
	if _, err := f.Write(argsJSON); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
