package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelWarn, &buf)

	Debug("Test", "should not appear")
	Info("Test", "should not appear either")
	Warn("Test", "heads up %d", 1)

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "heads up 1")
}

func TestErrorIncludesErrorAttr(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelDebug, &buf)

	Error("Test", assertErr{"boom"}, "failed to do thing")

	out := buf.String()
	require.Contains(t, out, "failed to do thing")
	assert.Contains(t, out, "error=boom")
}

func TestAuditFormatsKeyValuePairs(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Audit(AuditEvent{Action: "skill:greet@1.0.0@ab", Outcome: "ok", Target: "sandbox:standard"})

	out := buf.String()
	assert.True(t, strings.Contains(out, "[AUDIT]"))
	assert.Contains(t, out, "action=skill:greet@1.0.0@ab")
	assert.Contains(t, out, "outcome=ok")
	assert.Contains(t, out, "target=sandbox:standard")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", TruncateID("short"))
	assert.Equal(t, "12345678...", TruncateID("123456789012"))
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
