package sandbox

import (
	"context"
	"fmt"

	"github.com/giantswarm/brokerd/internal/brokerapi"
	"github.com/giantswarm/brokerd/pkg/logging"
)

// Manager is the Execution Engine's single entry point into the sandbox
// layer. It resolves a Preset plus any per-skill override into a concrete
// Policy, selects the matching Backend, and runs the request.
type Manager struct {
	backends  map[BackendKind]Backend
	container *ContainerBackend
}

// NewManager wires the stock backend set. container may be nil when no
// docker daemon is reachable; the isolated preset then reports
// SandboxUnavailable instead of silently falling back.
func NewManager(container *ContainerBackend) *Manager {
	m := &Manager{
		backends: map[BackendKind]Backend{
			BackendTimeoutOnly: TimeoutOnlyBackend{},
			BackendRestricted:  RestrictedBackend{},
			BackendNamespace:   NamespaceBackend{},
			BackendWasm:        WasmBackend{},
			BackendNone:        NoneBackend{},
		},
		container: container,
	}
	if container != nil {
		m.backends[BackendContainer] = container
	}
	return m
}

// Resolve merges the named preset's defaults with an optional per-skill
// override, only ever tightening (Policy.Tighten enforces this).
func (m *Manager) Resolve(preset Preset, override Policy) (Policy, error) {
	base, ok := Defaults(preset)
	if !ok {
		return Policy{}, brokerapi.NewError(brokerapi.ErrBadQuery, fmt.Sprintf("unknown sandbox preset %q", preset))
	}
	return base.Tighten(override), nil
}

// Run resolves preset+override into a Policy and executes req on the
// corresponding Backend. It never substitutes a weaker backend when the
// requested one is unavailable; it reports SandboxUnavailable instead.
func (m *Manager) Run(ctx context.Context, preset Preset, override Policy, req RunRequest) (Outcome, Policy, error) {
	policy, err := m.Resolve(preset, override)
	if err != nil {
		return Outcome{}, Policy{}, err
	}

	backend, ok := m.backends[policy.Backend]
	if !ok {
		if policy.Backend == BackendContainer {
			logging.Warn("Sandbox", "isolated preset requested but no container backend is configured")
			return Outcome{ExitKind: ExitSandboxUnavailable}, policy, nil
		}
		return Outcome{}, policy, brokerapi.NewError(brokerapi.ErrSandboxUnavailable, fmt.Sprintf("no backend registered for %q", policy.Backend))
	}

	if policy.Preset == PresetNone {
		logging.Warn("Sandbox", "running with preset=none: no isolation, no resource limits, full network access")
	}

	outcome, err := backend.Run(ctx, policy, req)
	if err == nil && outcome.ExitKind == ExitSandboxUnavailable && policy.Backend == BackendNamespace {
		logging.Warn("Sandbox", "strict preset unavailable on this host; refusing to silently downgrade")
	}
	return outcome, policy, err
}
