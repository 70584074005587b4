package sandbox

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giantswarm/brokerd/pkg/logging"
)

// scrubbedEnvPrefixes lists environment variable prefixes stripped from
// every sandboxed child, per spec §4.5 "environment sanitation".
var scrubbedEnvPrefixes = []string{"LD_", "PYTHONPATH", "HTTP_PROXY", "HTTPS_PROXY", "NO_PROXY", "http_proxy", "https_proxy"}

// scrubbedEnv returns a minimal environment: PATH and HOME only, plus the
// explicit additions in extra.
func scrubbedEnv(extra map[string]string) []string {
	env := []string{
		"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
		"HOME=/tmp",
	}
	for k, v := range extra {
		skip := false
		for _, prefix := range scrubbedEnvPrefixes {
			if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
				skip = true
				break
			}
		}
		if !skip {
			env = append(env, k+"="+v)
		}
	}
	return env
}

// privateTempRoot creates a private per-call temp directory to serve as the
// child's working directory.
func privateTempRoot() (string, error) {
	return os.MkdirTemp("", "brokerd-sandbox-")
}

func entrypointArgs(ep Entrypoint) (command string, args []string) {
	full := filepath.Join(ep.Dir, ep.RelPath)
	if ep.Interpreter != "" {
		return ep.Interpreter, []string{full}
	}
	return full, nil
}

// runWithTimeout execs cmd, enforcing policy.Timeout via ctx; on expiry it
// signals then kills after a short grace period, and maps process exit
// status to an Outcome.
func runWithTimeout(ctx context.Context, policy Policy, req RunRequest, extraEnv map[string]string, applyLimits bool) (Outcome, error) {
	deadlineCtx := ctx
	var cancel context.CancelFunc
	if policy.Timeout > 0 {
		deadlineCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}

	workDir, err := privateTempRoot()
	if err != nil {
		return Outcome{}, err
	}
	defer os.RemoveAll(workDir)

	env := extraEnv
	if env == nil {
		env = map[string]string{}
	}
	if req.ArgsFilePath != "" {
		env["SKILL_ARGS_FILE"] = req.ArgsFilePath
	} else {
		env["SKILL_ARGS_JSON"] = string(req.ArgsJSON)
	}

	command, args := entrypointArgs(req.Entrypoint)
	cmd := exec.Command(command, args...)
	cmd.Dir = workDir
	cmd.Env = scrubbedEnv(env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Outcome{}, err
	}

	if applyLimits {
		applyBestEffortLimits(cmd.Process.Pid, policy)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		outcome := Outcome{
			Duration:    time.Since(start),
			Stdout:      stdout.Bytes(),
			Stderr:      stderr.Bytes(),
			StdoutBytes: stdout.Len(),
			StderrBytes: stderr.Len(),
		}
		classifyExit(err, &outcome)
		return outcome, nil
	case <-deadlineCtx.Done():
		killProcessGroup(cmd.Process.Pid)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			logging.Warn("Sandbox", "child pid %d did not exit after grace period", cmd.Process.Pid)
		}
		return Outcome{
			ExitKind:    ExitTimeout,
			Duration:    time.Since(start),
			Stdout:      stdout.Bytes(),
			Stderr:      stderr.Bytes(),
			StdoutBytes: stdout.Len(),
			StderrBytes: stderr.Len(),
		}, nil
	}
}

func classifyExit(err error, outcome *Outcome) {
	if err == nil {
		outcome.ExitKind = ExitOK
		return
	}
	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			outcome.ExitKind = ExitSignal
			outcome.Signal = status.Signal().String()
			return
		}
		outcome.ExitKind = ExitNonzero
		outcome.ExitCode = exitErr.ExitCode()
		return
	}
	outcome.ExitKind = ExitNonzero
	outcome.ExitCode = -1
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

func killProcessGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	time.Sleep(200 * time.Millisecond)
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
