package skillstore

import (
	"encoding/json"

	"github.com/giantswarm/brokerd/internal/brokerapi"
	"github.com/giantswarm/brokerd/pkg/ids"
)

// defaultInputSchema is used when a skill's front-matter does not declare
// one via metadata.input_schema: an unconstrained object, since SKILL.md
// has no dedicated schema field (spec §4.3 lists only name/description/
// version/license/compatibility/allowed-tools/tags/metadata).
func defaultInputSchema() brokerapi.Schema {
	return brokerapi.Schema{Type: "object", Properties: map[string]interface{}{}}
}

func schemaFromMetadata(meta map[string]string) brokerapi.Schema {
	raw, ok := meta["input_schema"]
	if !ok {
		return defaultInputSchema()
	}
	var s brokerapi.Schema
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return defaultInputSchema()
	}
	return s
}

func toDescriptor(dir string, fm frontMatter, entrypoints []brokerapi.Entrypoint) brokerapi.Descriptor {
	schema := schemaFromMetadata(fm.Metadata)
	digest := ids.SchemaDigest(schema, fm.Version)
	fqn := ids.SkillFQN(fm.Name)
	callableID := ids.SkillCallableID(fm.Name, fm.Version, digest)

	var policy *brokerapi.ToolPolicy
	if len(fm.AllowedTools) > 0 {
		policy = &brokerapi.ToolPolicy{Allow: fm.AllowedTools}
	}

	return brokerapi.Descriptor{
		Kind:               brokerapi.KindSkill,
		Name:               fm.Name,
		FQN:                fqn,
		Version:            fm.Version,
		SchemaDigest:       digest,
		CallableID:         callableID,
		InputSchema:        schema,
		Description:        fm.Description,
		Tags:               append([]string(nil), fm.Tags...),
		RiskTier:           brokerapi.RiskLimitedWrite,
		ToolPolicy:         policy,
		Source:             brokerapi.SourceLocator{SkillRoot: dir},
		BundledEntrypoints: entrypoints,
	}
}
