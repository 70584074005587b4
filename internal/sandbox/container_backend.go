package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/giantswarm/brokerd/pkg/logging"
)

// ContainerBackend realizes the "isolated" preset: each call runs in a
// fresh container built from policy.Docker.Image, with the skill
// directory bind-mounted read-only, output collected from the
// container's stdout/stderr, and the container force-removed afterward.
// Not grounded on any full example repo in the pack (see SPEC_FULL.md
// §2): the client API shape follows the upstream docker/docker/client
// documentation.
type ContainerBackend struct {
	cli *client.Client
}

// NewContainerBackend dials the local docker daemon using the environment
// defaults (DOCKER_HOST, DOCKER_CERT_PATH, ...).
func NewContainerBackend() (*ContainerBackend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("connect to docker: %w", err)
	}
	return &ContainerBackend{cli: cli}, nil
}

func (b *ContainerBackend) Run(ctx context.Context, policy Policy, req RunRequest) (Outcome, error) {
	if b == nil || b.cli == nil {
		return Outcome{ExitKind: ExitSandboxUnavailable}, nil
	}

	deadlineCtx := ctx
	var cancel context.CancelFunc
	if policy.Timeout > 0 {
		deadlineCtx, cancel = context.WithTimeout(ctx, policy.Timeout+5*time.Second)
		defer cancel()
	}

	command, args := entrypointArgs(req.Entrypoint)
	env := []string{"SKILL_ARGS_JSON=" + string(req.ArgsJSON)}
	var argsMounts []mount.Mount
	if req.ArgsFilePath != "" {
		env = []string{"SKILL_ARGS_FILE=/skill-args.json"}
		argsMounts = []mount.Mount{{Type: mount.TypeBind, Source: req.ArgsFilePath, Target: "/skill-args.json", ReadOnly: true}}
	}

	netMode := container.NetworkMode("none")
	if policy.AllowNetwork {
		netMode = container.NetworkMode(policy.Docker.NetworkMode)
		if netMode == "" {
			netMode = "bridge"
		}
	}

	resp, err := b.cli.ContainerCreate(deadlineCtx, &container.Config{
		Image: policy.Docker.Image,
		Cmd:   append([]string{command}, args...),
		Env:   env,
		Tty:   false,
	}, &container.HostConfig{
		AutoRemove:  false,
		NetworkMode: netMode,
		Resources: container.Resources{
			Memory:   policy.Docker.MemoryLimit,
			NanoCPUs: policy.Docker.CPUQuota,
		},
		Mounts: append([]mount.Mount{
			{
				Type:     mount.TypeBind,
				Source:   req.Entrypoint.Dir,
				Target:   "/skill",
				ReadOnly: true,
			},
		}, argsMounts...),
	}, nil, nil, "")
	if err != nil {
		logging.Warn("Sandbox", "container create failed: %v", err)
		return Outcome{ExitKind: ExitSandboxUnavailable}, nil
	}
	defer func() {
		_ = b.cli.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true})
	}()

	start := time.Now()
	if err := b.cli.ContainerStart(deadlineCtx, resp.ID, container.StartOptions{}); err != nil {
		logging.Warn("Sandbox", "container start failed: %v", err)
		return Outcome{ExitKind: ExitSandboxUnavailable}, nil
	}

	statusCh, errCh := b.cli.ContainerWait(deadlineCtx, resp.ID, container.WaitConditionNotRunning)
	var exitCode int64
	select {
	case err := <-errCh:
		if err != nil && deadlineCtx.Err() != nil {
			_ = b.cli.ContainerKill(context.Background(), resp.ID, "KILL")
			return Outcome{ExitKind: ExitTimeout, Duration: time.Since(start)}, nil
		}
	case status := <-statusCh:
		exitCode = status.StatusCode
	case <-deadlineCtx.Done():
		_ = b.cli.ContainerKill(context.Background(), resp.ID, "KILL")
		return Outcome{ExitKind: ExitTimeout, Duration: time.Since(start)}, nil
	}

	var stdout, stderr bytes.Buffer
	if logs, err := b.cli.ContainerLogs(context.Background(), resp.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true}); err == nil {
		defer logs.Close()
		_, _ = stdcopy.StdCopy(&stdout, &stderr, logs)
	}

	outcome := Outcome{
		Duration:    time.Since(start),
		Stdout:      stdout.Bytes(),
		Stderr:      stderr.Bytes(),
		StdoutBytes: stdout.Len(),
		StderrBytes: stderr.Len(),
		ExitCode:    int(exitCode),
	}
	if exitCode == 0 {
		outcome.ExitKind = ExitOK
	} else if exitCode == 137 {
		outcome.ExitKind = ExitMemExceeded
	} else {
		outcome.ExitKind = ExitNonzero
	}
	return outcome, nil
}
