// Package ids builds and parses the two printable callable_id shapes used
// throughout the broker:
//
//	tool:srv:<alias>::<name>::sd:<hex-digest>
//	skill:<name>@<semver>@<hex-digest>
//
// and computes the schema_digest a descriptor is addressed by.
package ids

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Kind mirrors the Callable Descriptor's kind field.
type Kind string

const (
	KindTool  Kind = "tool-from-peer"
	KindSkill Kind = "skill"
)

// SchemaDigest returns a deterministic hex digest over the canonicalized
// input schema plus the descriptor version, used to detect drift between
// registrations sharing the same addressing fields.
func SchemaDigest(inputSchema interface{}, version string) string {
	canon := canonicalize(inputSchema)
	h := sha256.New()
	h.Write(canon)
	h.Write([]byte{0})
	h.Write([]byte(version))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// canonicalize produces a byte-stable JSON encoding of an arbitrary
// JSON-schema-shaped value: object keys sorted, no insignificant
// whitespace. It never fails on JSON-marshalable input; malformed input
// collapses to a stable error marker rather than panicking, since a digest
// must always be computable.
func canonicalize(v interface{}) []byte {
	normalized := normalize(v)
	b, err := json.Marshal(normalized)
	if err != nil {
		return []byte(fmt.Sprintf("unmarshalable:%v", err))
	}
	return b
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(orderedMap, 0, len(keys))
		for _, k := range keys {
			out = append(out, kv{k, normalize(t[k])})
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return t
	}
}

type kv struct {
	K string
	V interface{}
}

type orderedMap []kv

func (m orderedMap) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(e.K)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(e.V)
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// ToolCallableID builds the callable_id for a peer tool.
func ToolCallableID(peerAlias, name, digest string) string {
	return fmt.Sprintf("tool:srv:%s::%s::sd:%s", peerAlias, name, digest)
}

// SkillCallableID builds the callable_id for a skill.
func SkillCallableID(name, version, digest string) string {
	return fmt.Sprintf("skill:%s@%s@%s", name, version, digest)
}

// Parsed is the decomposed form of a callable_id.
type Parsed struct {
	Kind    Kind
	Alias   string // tools only
	Name    string
	Version string // skills only
	Digest  string
}

// Parse decodes a callable_id produced by ToolCallableID or SkillCallableID.
func Parse(id string) (Parsed, error) {
	switch {
	case strings.HasPrefix(id, "tool:srv:"):
		rest := strings.TrimPrefix(id, "tool:srv:")
		aliasAndRest := strings.SplitN(rest, "::", 2)
		if len(aliasAndRest) != 2 {
			return Parsed{}, fmt.Errorf("malformed tool callable_id: %s", id)
		}
		nameAndDigest := strings.SplitN(aliasAndRest[1], "::sd:", 2)
		if len(nameAndDigest) != 2 {
			return Parsed{}, fmt.Errorf("malformed tool callable_id: %s", id)
		}
		return Parsed{Kind: KindTool, Alias: aliasAndRest[0], Name: nameAndDigest[0], Digest: nameAndDigest[1]}, nil
	case strings.HasPrefix(id, "skill:"):
		rest := strings.TrimPrefix(id, "skill:")
		parts := strings.Split(rest, "@")
		if len(parts) != 3 {
			return Parsed{}, fmt.Errorf("malformed skill callable_id: %s", id)
		}
		return Parsed{Kind: KindSkill, Name: parts[0], Version: parts[1], Digest: parts[2]}, nil
	default:
		return Parsed{}, fmt.Errorf("unrecognized callable_id: %s", id)
	}
}

// ToolFQN builds the fully-qualified name for a peer tool.
func ToolFQN(peerAlias, name string) string { return peerAlias + "/" + name }

// SkillFQN builds the fully-qualified name for a skill.
func SkillFQN(name string) string { return "skill." + name }
