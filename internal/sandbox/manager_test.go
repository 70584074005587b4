package sandbox

import (
	"context"
	"testing"

	"github.com/giantswarm/brokerd/internal/brokerapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerResolveAppliesOverride(t *testing.T) {
	m := NewManager(nil)
	policy, err := m.Resolve(PresetStandard, Policy{AllowNetwork: false})
	require.NoError(t, err)
	assert.Equal(t, BackendTimeoutOnly, policy.Backend)
}

func TestManagerResolveRejectsUnknownPreset(t *testing.T) {
	m := NewManager(nil)
	_, err := m.Resolve(Preset("nonsense"), Policy{})
	kind, ok := brokerapi.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, brokerapi.ErrBadQuery, kind)
}

func TestManagerRunIsolatedWithoutContainerBackendIsUnavailable(t *testing.T) {
	m := NewManager(nil)
	outcome, policy, err := m.Run(context.Background(), PresetIsolated, Policy{}, RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, BackendContainer, policy.Backend)
	assert.Equal(t, ExitSandboxUnavailable, outcome.ExitKind)
}

func TestManagerRunStandardUsesTimeoutOnlyBackend(t *testing.T) {
	ep := writeScript(t, "#!/bin/sh\necho ok\n")
	m := NewManager(nil)
	outcome, _, err := m.Run(context.Background(), PresetStandard, Policy{}, RunRequest{Entrypoint: ep})
	require.NoError(t, err)
	assert.Equal(t, ExitOK, outcome.ExitKind)
}
