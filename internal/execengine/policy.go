package execengine

import (
	"path/filepath"

	"github.com/giantswarm/brokerd/internal/brokerapi"
)

// checkToolPolicy verifies a skill's declared tool policy is satisfiable
// against the live peer-tool universe before exec proceeds: for every
// required glob, at least one tool FQN currently in liveToolFQNs must match
// it and be effectively allowed (spec §4.4 step 3, invariant in spec §3 —
// {t ∈ U : allow-match(t) ∧ ¬deny-match(t)} ⊇ required). A required pattern
// matching no live tool at all fails closed rather than passing vacuously.
// Tool callables carry no ToolPolicy and always pass.
func checkToolPolicy(desc brokerapi.Descriptor, liveToolFQNs []string) *brokerapi.Error {
	if desc.Kind != brokerapi.KindSkill || desc.ToolPolicy == nil {
		return nil
	}
	for _, req := range desc.ToolPolicy.Required {
		if !requiredSatisfiedByUniverse(*desc.ToolPolicy, req, liveToolFQNs) {
			return brokerapi.NewError(brokerapi.ErrPolicyViolation, "required tool policy entry matches no live, allowed tool: "+req)
		}
	}
	return nil
}

// requiredSatisfiedByUniverse reports whether pattern matches at least one
// FQN in liveToolFQNs that is also effectively allowed by policy.
func requiredSatisfiedByUniverse(policy brokerapi.ToolPolicy, pattern string, liveToolFQNs []string) bool {
	for _, fqn := range liveToolFQNs {
		if globMatch(pattern, fqn) && effectivelyAllowed(policy, fqn) {
			return true
		}
	}
	return false
}

func effectivelyAllowed(policy brokerapi.ToolPolicy, fqn string) bool {
	allowed := len(policy.Allow) == 0 // empty allow-list means unrestricted, narrowed only by deny
	for _, pattern := range policy.Allow {
		if globMatch(pattern, fqn) {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	for _, pattern := range policy.Deny {
		if globMatch(pattern, fqn) {
			return false
		}
	}
	return true
}

func globMatch(pattern, name string) bool {
	ok, err := filepath.Match(pattern, name)
	return err == nil && ok
}
