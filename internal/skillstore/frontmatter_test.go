package skillstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontMatterWhitespaceAllowedTools(t *testing.T) {
	raw := []byte("---\nname: greet\ndescription: say hi\nallowed-tools: \"github/* slack/post-message\"\n---\nbody text\n")
	fm, body, err := parseFrontMatter(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"github/*", "slack/post-message"}, []string(fm.AllowedTools))
	assert.Equal(t, "body text", body)
}

func TestParseFrontMatterSequenceAllowedTools(t *testing.T) {
	raw := []byte("---\nname: greet\ndescription: say hi\nallowed-tools:\n  - github/*\n  - slack/post-message\n---\nbody\n")
	fm, _, err := parseFrontMatter(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"github/*", "slack/post-message"}, []string(fm.AllowedTools))
}

func TestParseFrontMatterRejectsUnknownField(t *testing.T) {
	raw := []byte("---\nname: greet\ndescription: say hi\nbogus-field: oops\n---\nbody\n")
	_, _, err := parseFrontMatter(raw)
	require.Error(t, err)
}

func TestParseFrontMatterRequiresLeadingDelimiter(t *testing.T) {
	raw := []byte("name: greet\ndescription: say hi\n")
	_, _, err := parseFrontMatter(raw)
	require.Error(t, err)
}

func TestParseFrontMatterRequiresClosingDelimiter(t *testing.T) {
	raw := []byte("---\nname: greet\ndescription: say hi\n")
	_, _, err := parseFrontMatter(raw)
	require.Error(t, err)
}

func TestParseFrontMatterMetadataMap(t *testing.T) {
	raw := []byte("---\nname: greet\ndescription: say hi\nmetadata:\n  input_schema: '{\"type\":\"object\"}'\n---\nbody\n")
	fm, _, err := parseFrontMatter(raw)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"object"}`, fm.Metadata["input_schema"])
}
