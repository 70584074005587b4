package execengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/brokerd/internal/brokerapi"
)

func TestCanonicalizeArgumentsFillsDefaults(t *testing.T) {
	desc := brokerapi.Descriptor{
		InputSchema: brokerapi.Schema{
			Type: "object",
			Properties: map[string]interface{}{
				"retries": map[string]interface{}{"type": "number", "default": float64(3)},
			},
		},
	}
	filled, err := canonicalizeArguments(desc, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, float64(3), filled["retries"])
}

func TestCanonicalizeArgumentsRejectsWrongType(t *testing.T) {
	desc := brokerapi.Descriptor{
		InputSchema: brokerapi.Schema{
			Type:       "object",
			Properties: map[string]interface{}{"count": map[string]interface{}{"type": "integer"}},
		},
	}
	_, err := canonicalizeArguments(desc, map[string]interface{}{"count": "not-a-number"})
	require.Error(t, err)
	kind, ok := brokerapi.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, brokerapi.ErrInvalidArguments, kind)
}

func TestCanonicalizeArgumentsOpenSchemaAllowsAnything(t *testing.T) {
	desc := brokerapi.Descriptor{
		InputSchema: brokerapi.Schema{Type: "object", Properties: map[string]interface{}{}},
	}
	filled, err := canonicalizeArguments(desc, map[string]interface{}{"anything": "goes"})
	require.NoError(t, err)
	assert.Equal(t, "goes", filled["anything"])
}

func TestCanonicalizeArgumentsDoesNotMutateCallerMap(t *testing.T) {
	desc := brokerapi.Descriptor{
		InputSchema: brokerapi.Schema{
			Type:       "object",
			Properties: map[string]interface{}{"x": map[string]interface{}{"type": "string", "default": "d"}},
		},
	}
	original := map[string]interface{}{}
	_, err := canonicalizeArguments(desc, original)
	require.NoError(t, err)
	_, present := original["x"]
	assert.False(t, present)
}
