package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) Entrypoint {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return Entrypoint{Dir: dir, RelPath: "run.sh", Interpreter: "/bin/sh"}
}

func TestTimeoutOnlyBackendRunsAndCapturesStdout(t *testing.T) {
	ep := writeScript(t, "#!/bin/sh\necho hello\n")
	policy, ok := Defaults(PresetStandard)
	require.True(t, ok)

	outcome, err := (TimeoutOnlyBackend{}).Run(context.Background(), policy, RunRequest{Entrypoint: ep})
	require.NoError(t, err)
	assert.Equal(t, ExitOK, outcome.ExitKind)
	assert.Contains(t, string(outcome.Stdout), "hello")
}

func TestTimeoutOnlyBackendReportsNonzeroExit(t *testing.T) {
	ep := writeScript(t, "#!/bin/sh\nexit 7\n")
	policy, _ := Defaults(PresetStandard)

	outcome, err := (TimeoutOnlyBackend{}).Run(context.Background(), policy, RunRequest{Entrypoint: ep})
	require.NoError(t, err)
	assert.Equal(t, ExitNonzero, outcome.ExitKind)
	assert.Equal(t, 7, outcome.ExitCode)
}

func TestTimeoutOnlyBackendKillsOnDeadline(t *testing.T) {
	ep := writeScript(t, "#!/bin/sh\nsleep 5\n")
	policy, _ := Defaults(PresetStandard)
	policy.Timeout = 50 * time.Millisecond

	start := time.Now()
	outcome, err := (TimeoutOnlyBackend{}).Run(context.Background(), policy, RunRequest{Entrypoint: ep})
	require.NoError(t, err)
	assert.Equal(t, ExitTimeout, outcome.ExitKind)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestScrubbedEnvDropsProxyVars(t *testing.T) {
	env := scrubbedEnv(map[string]string{"HTTP_PROXY": "http://evil", "SKILL_ARGS_JSON": "{}"})
	for _, e := range env {
		assert.NotContains(t, e, "evil")
	}
	found := false
	for _, e := range env {
		if e == "SKILL_ARGS_JSON={}" {
			found = true
		}
	}
	assert.True(t, found, "non-scrubbed var should pass through")
}
