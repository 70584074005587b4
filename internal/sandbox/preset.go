// Package sandbox realizes a declarative security preset (spec §4.5) on a
// concrete operating-system or WebAssembly isolate. A Policy is the
// resolved, possibly-overridden configuration; a Backend is what actually
// runs the child.
package sandbox

import "time"

// Preset is the closed set of named sandbox policy bundles.
type Preset string

const (
	PresetDevelopment Preset = "development"
	PresetStandard    Preset = "standard"
	PresetStrict      Preset = "strict"
	PresetIsolated    Preset = "isolated"
	PresetNetwork     Preset = "network"
	PresetFilesystem  Preset = "filesystem"
	PresetWasm        Preset = "wasm"
	PresetNone        Preset = "none"
)

// BackendKind names the concrete isolation mechanism a preset defaults to.
type BackendKind string

const (
	BackendTimeoutOnly BackendKind = "timeout-only"
	BackendRestricted  BackendKind = "restricted"
	BackendNamespace   BackendKind = "os-namespace"
	BackendContainer   BackendKind = "container"
	BackendWasm        BackendKind = "wasm"
	BackendNone        BackendKind = "none"
)

// DockerConfig configures the container backend.
type DockerConfig struct {
	Image       string
	MemoryLimit int64
	CPUQuota    int64
	NetworkMode string
	AutoRemove  bool
}

// Policy is the concrete, possibly-tightened configuration a Backend
// enforces for one call.
type Policy struct {
	Preset         Preset
	Backend        BackendKind
	Timeout        time.Duration
	MaxMemoryBytes int64
	MaxCPUSeconds  int64
	AllowNetwork   bool
	AllowRead      []string
	AllowWrite     []string
	Docker         DockerConfig
}

// defaults holds the spec §4.5 preset table. Callers obtain a working copy
// via Defaults(preset) and then apply any config- or descriptor-level
// overrides (which may only tighten, never loosen, per spec).
var defaults = map[Preset]Policy{
	PresetDevelopment: {Preset: PresetDevelopment, Backend: BackendTimeoutOnly, Timeout: 60 * time.Second, MaxMemoryBytes: 1 << 30, AllowNetwork: true},
	PresetStandard:    {Preset: PresetStandard, Backend: BackendTimeoutOnly, Timeout: 30 * time.Second, MaxMemoryBytes: 512 << 20, AllowNetwork: false},
	PresetStrict:      {Preset: PresetStrict, Backend: BackendNamespace, Timeout: 10 * time.Second, MaxMemoryBytes: 256 << 20, AllowNetwork: false},
	PresetIsolated:    {Preset: PresetIsolated, Backend: BackendContainer, Timeout: 10 * time.Second, MaxMemoryBytes: 256 << 20, AllowNetwork: false, Docker: DockerConfig{Image: "brokerd/sandbox-minimal:latest", AutoRemove: true, NetworkMode: "none"}},
	PresetNetwork:     {Preset: PresetNetwork, Backend: BackendRestricted, Timeout: 30 * time.Second, MaxMemoryBytes: 512 << 20, AllowNetwork: true},
	PresetFilesystem:  {Preset: PresetFilesystem, Backend: BackendRestricted, Timeout: 30 * time.Second, MaxMemoryBytes: 512 << 20, AllowNetwork: false},
	PresetWasm:        {Preset: PresetWasm, Backend: BackendWasm, Timeout: 30 * time.Second, MaxMemoryBytes: 256 << 20, AllowNetwork: false},
	PresetNone:        {Preset: PresetNone, Backend: BackendNone, Timeout: 0, AllowNetwork: true},
}

// Defaults returns the default Policy for a preset, or false if the preset
// is unknown.
func Defaults(p Preset) (Policy, bool) {
	pol, ok := defaults[p]
	return pol, ok
}

// Tighten applies a descriptor- or call-level override on top of a base
// policy. Only fields that make the sandbox stricter are honored: a
// shorter timeout, a lower memory cap, disabling network, or narrowing
// allow-lists. A looser override is silently clamped back to base, since
// §4.5 describes presets as "defaults that may be tightened".
func (base Policy) Tighten(override Policy) Policy {
	out := base
	if override.Timeout > 0 && override.Timeout < out.Timeout {
		out.Timeout = override.Timeout
	}
	if override.MaxMemoryBytes > 0 && override.MaxMemoryBytes < out.MaxMemoryBytes {
		out.MaxMemoryBytes = override.MaxMemoryBytes
	}
	if override.MaxCPUSeconds > 0 && (out.MaxCPUSeconds == 0 || override.MaxCPUSeconds < out.MaxCPUSeconds) {
		out.MaxCPUSeconds = override.MaxCPUSeconds
	}
	if !override.AllowNetwork {
		out.AllowNetwork = out.AllowNetwork && override.AllowNetwork
	}
	if len(override.AllowRead) > 0 {
		out.AllowRead = intersectOrNarrow(out.AllowRead, override.AllowRead)
	}
	if len(override.AllowWrite) > 0 {
		out.AllowWrite = intersectOrNarrow(out.AllowWrite, override.AllowWrite)
	}
	return out
}

func intersectOrNarrow(base, override []string) []string {
	if len(base) == 0 {
		return override
	}
	baseSet := map[string]struct{}{}
	for _, b := range base {
		baseSet[b] = struct{}{}
	}
	out := make([]string, 0, len(override))
	for _, o := range override {
		if _, ok := baseSet[o]; ok {
			out = append(out, o)
		}
	}
	return out
}
