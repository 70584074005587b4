package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/brokerd/internal/brokerapi"
)

func toolDescriptor(alias, name, digest string) brokerapi.Descriptor {
	return brokerapi.Descriptor{
		Kind:         brokerapi.KindTool,
		Name:         name,
		FQN:          alias + "/" + name,
		Version:      "1",
		SchemaDigest: digest,
		CallableID:   "tool:srv:" + alias + "::" + name + "::sd:" + digest,
		Description:  "reads a file from disk",
		Tags:         []string{"fs"},
		RiskTier:     brokerapi.RiskReadOnly,
		InputSchema: brokerapi.Schema{
			Type:       "object",
			Properties: map[string]interface{}{"path": map[string]interface{}{"type": "string"}},
			Required:   []string{"path"},
		},
		Source: brokerapi.SourceLocator{PeerAlias: alias, PeerLocalName: name},
	}
}

func TestUpsertAndGet(t *testing.T) {
	r := New()
	d := toolDescriptor("filesystem", "read_file", "aaa")
	require.NoError(t, r.Upsert(d))

	got, err := r.Get(d.CallableID)
	require.NoError(t, err)
	assert.Equal(t, d.FQN, got.FQN)

	byFQN, err := r.LookupByFQN("filesystem/read_file")
	require.NoError(t, err)
	assert.Equal(t, d.CallableID, byFQN.CallableID)
}

func TestUpsertForcesDestructiveRiskTierOnDenylistMatch(t *testing.T) {
	r := New()
	r.SetDestructivePolicy([]string{"kubectl_*"}, false)

	d := toolDescriptor("k8s", "kubectl_delete", "aaa")
	d.RiskTier = brokerapi.RiskReadOnly
	require.NoError(t, r.Upsert(d))

	got, err := r.Get(d.CallableID)
	require.NoError(t, err)
	assert.Equal(t, brokerapi.RiskDestructive, got.RiskTier)
}

func TestUpsertAllowUnsafeDisablesDenylist(t *testing.T) {
	r := New()
	r.SetDestructivePolicy([]string{"kubectl_*"}, true)

	d := toolDescriptor("k8s", "kubectl_delete", "aaa")
	d.RiskTier = brokerapi.RiskReadOnly
	require.NoError(t, r.Upsert(d))

	got, err := r.Get(d.CallableID)
	require.NoError(t, err)
	assert.Equal(t, brokerapi.RiskReadOnly, got.RiskTier)
}

func TestUpsertWithNewDigestRetiresOldID(t *testing.T) {
	r := New()
	d1 := toolDescriptor("filesystem", "read_file", "aaa")
	require.NoError(t, r.Upsert(d1))

	d2 := toolDescriptor("filesystem", "read_file", "bbb")
	require.NoError(t, r.Upsert(d2))

	_, err := r.Get(d1.CallableID)
	kind, ok := brokerapi.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, brokerapi.ErrStaleId, kind)

	got, err := r.Get(d2.CallableID)
	require.NoError(t, err)
	assert.Equal(t, d2.CallableID, got.CallableID)
}

func TestGetUnknownIsNotFound(t *testing.T) {
	r := New()
	_, err := r.Get("tool:srv:x::y::sd:z")
	kind, ok := brokerapi.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, brokerapi.ErrNotFound, kind)
}

func TestRemoveIsIdempotentButNotFoundOnSecondCall(t *testing.T) {
	r := New()
	d := toolDescriptor("filesystem", "read_file", "aaa")
	require.NoError(t, r.Upsert(d))

	require.NoError(t, r.Remove(d.CallableID))
	err := r.Remove(d.CallableID)
	kind, ok := brokerapi.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, brokerapi.ErrNotFound, kind)
}

func TestRemovePeerRetiresAllItsCallables(t *testing.T) {
	r := New()
	d1 := toolDescriptor("filesystem", "read_file", "aaa")
	d2 := toolDescriptor("filesystem", "write_file", "bbb")
	require.NoError(t, r.Upsert(d1))
	require.NoError(t, r.Upsert(d2))

	r.RemovePeer("filesystem")

	for _, id := range []string{d1.CallableID, d2.CallableID} {
		_, err := r.Get(id)
		kind, ok := brokerapi.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, brokerapi.ErrStaleId, kind)
	}
}

func TestSnapshotIsIndependentOfLaterWrites(t *testing.T) {
	r := New()
	require.NoError(t, r.Upsert(toolDescriptor("filesystem", "read_file", "aaa")))
	snap := r.Snapshot()
	require.NoError(t, r.Upsert(toolDescriptor("filesystem", "write_file", "bbb")))

	assert.Len(t, snap.Descriptors, 1)
}

func TestSearchLiteralOrdersReadBeforeWrite(t *testing.T) {
	r := New()
	require.NoError(t, r.Upsert(toolDescriptor("filesystem", "read_file", "aaa")))
	require.NoError(t, r.Upsert(toolDescriptor("filesystem", "read_log", "bbb")))
	require.NoError(t, r.Upsert(toolDescriptor("filesystem", "write_file", "ccc")))

	resp, err := Search(r.Snapshot(), Query{Q: "read", Mode: ModeLiteral})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "filesystem/read_file", resp.Results[0].FQN)
	assert.Equal(t, "filesystem/read_log", resp.Results[1].FQN)
	assert.Equal(t, "filesystem/write_file", resp.Results[2].FQN)
}

func TestSearchFuzzyScoresBelowExactMatch(t *testing.T) {
	r := New()
	require.NoError(t, r.Upsert(toolDescriptor("filesystem", "read_file", "aaa")))

	exact, err := Search(r.Snapshot(), Query{Q: "read_file", Mode: ModeLiteral})
	require.NoError(t, err)
	require.Len(t, exact.Results, 1)

	fuzzy, err := Search(r.Snapshot(), Query{Q: "rd_fle", Mode: ModeFuzzy})
	require.NoError(t, err)
	require.Len(t, fuzzy.Results, 1)

	assert.Less(t, fuzzy.Results[0].Score, exact.Results[0].Score)
}

func TestSearchRegexMatchesAcrossNames(t *testing.T) {
	r := New()
	require.NoError(t, r.Upsert(toolDescriptor("filesystem", "read_file", "aaa")))
	require.NoError(t, r.Upsert(toolDescriptor("filesystem", "write_file", "bbb")))
	require.NoError(t, r.Upsert(toolDescriptor("filesystem", "delete_dir", "ccc")))

	resp, err := Search(r.Snapshot(), Query{Q: "(read|write)_.*", Mode: ModeRegex})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
}

func TestSearchBadRegexIsBadQuery(t *testing.T) {
	r := New()
	_, err := Search(r.Snapshot(), Query{Q: "(unterminated", Mode: ModeRegex})
	kind, ok := brokerapi.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, brokerapi.ErrBadQuery, kind)
}

func TestSearchLimitNeverExceedsMax(t *testing.T) {
	r := New()
	for i := 0; i < 80; i++ {
		r.Upsert(toolDescriptor("filesystem", "read_file"+string(rune('a'+i%26))+string(rune('0'+i/26)), "d"+string(rune('a'+i))))
	}
	resp, err := Search(r.Snapshot(), Query{Q: "read", Mode: ModeLiteral, Limit: 1000})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(resp.Results), 50)
}

func TestSearchFiltersByServer(t *testing.T) {
	r := New()
	require.NoError(t, r.Upsert(toolDescriptor("filesystem", "read_file", "aaa")))
	require.NoError(t, r.Upsert(toolDescriptor("other", "read_file", "bbb")))

	resp, err := Search(r.Snapshot(), Query{Q: "read", Mode: ModeLiteral, Filters: Filters{Servers: []string{"other"}}})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "other/read_file", resp.Results[0].FQN)
}
