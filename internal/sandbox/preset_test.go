package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsCoverAllPresets(t *testing.T) {
	for _, p := range []Preset{
		PresetDevelopment, PresetStandard, PresetStrict, PresetIsolated,
		PresetNetwork, PresetFilesystem, PresetWasm, PresetNone,
	} {
		_, ok := Defaults(p)
		require.Truef(t, ok, "preset %q has no defaults", p)
	}
}

func TestDefaultsUnknownPreset(t *testing.T) {
	_, ok := Defaults(Preset("bogus"))
	assert.False(t, ok)
}

func TestTightenNeverLoosensTimeout(t *testing.T) {
	base, _ := Defaults(PresetStandard)
	looser := base.Tighten(Policy{Timeout: base.Timeout + time.Minute})
	assert.Equal(t, base.Timeout, looser.Timeout)

	tighter := base.Tighten(Policy{Timeout: time.Second})
	assert.Equal(t, time.Second, tighter.Timeout)
}

func TestTightenNeverEnablesNetwork(t *testing.T) {
	base, _ := Defaults(PresetStandard) // AllowNetwork: false
	out := base.Tighten(Policy{AllowNetwork: true})
	assert.False(t, out.AllowNetwork, "tighten must not re-enable network access")
}

func TestTightenNarrowsAllowLists(t *testing.T) {
	base := Policy{AllowRead: []string{"/a", "/b", "/c"}}
	out := base.Tighten(Policy{AllowRead: []string{"/b", "/z"}})
	assert.Equal(t, []string{"/b"}, out.AllowRead)
}

func TestTightenFillsEmptyAllowListFromOverride(t *testing.T) {
	base := Policy{}
	out := base.Tighten(Policy{AllowRead: []string{"/only"}})
	assert.Equal(t, []string{"/only"}, out.AllowRead)
}
