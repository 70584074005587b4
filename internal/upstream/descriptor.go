package upstream

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/brokerd/internal/brokerapi"
	"github.com/giantswarm/brokerd/pkg/ids"
)

// toDescriptor converts one peer-advertised tool into a Callable
// Descriptor. Peer tools carry no explicit risk tier, so everything
// defaults to read_only; an operator wanting stricter gating attaches a
// tool_policy override via config (spec §6 `upstreams[].tool_overrides`).
func toDescriptor(peerAlias string, generation uint64, tool mcp.Tool) brokerapi.Descriptor {
	schema := schemaFromMCP(tool.InputSchema)
	digest := ids.SchemaDigest(schema, "")
	fqn := ids.ToolFQN(peerAlias, tool.Name)
	callableID := ids.ToolCallableID(peerAlias, tool.Name, digest)

	return brokerapi.Descriptor{
		Kind:         brokerapi.KindTool,
		Name:         tool.Name,
		FQN:          fqn,
		SchemaDigest: digest,
		CallableID:   callableID,
		InputSchema:  schema,
		Signature:    signatureFromSchema(schema),
		Description:  tool.Description,
		RiskTier:     brokerapi.RiskReadOnly,
		Source: brokerapi.SourceLocator{
			PeerAlias:     peerAlias,
			PeerLocalName: tool.Name,
		},
		PeerGeneration: generation,
	}
}

func schemaFromMCP(s mcp.ToolInputSchema) brokerapi.Schema {
	props := make(map[string]interface{}, len(s.Properties))
	for k, v := range s.Properties {
		props[k] = v
	}
	return brokerapi.Schema{
		Type:       "object",
		Properties: props,
		Required:   append([]string(nil), s.Required...),
	}
}

func signatureFromSchema(s brokerapi.Schema) brokerapi.Signature {
	required := make(map[string]struct{}, len(s.Required))
	for _, r := range s.Required {
		required[r] = struct{}{}
	}

	var sig brokerapi.Signature
	for name, raw := range s.Properties {
		constraint := constraintString(raw)
		pc := brokerapi.ParamConstraint{Name: name, Constraint: constraint}
		if _, ok := required[name]; ok {
			sig.Required = append(sig.Required, pc)
		} else {
			sig.Optional = append(sig.Optional, pc)
		}
	}
	return sig
}

func constraintString(raw interface{}) string {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return "any"
	}
	t, _ := m["type"].(string)
	if t == "" {
		return "any"
	}
	return t
}
