package sandbox

import "context"

// RestrictedBackend adds best-effort rlimits on top of TimeoutOnlyBackend,
// which already provides the private temp CWD and environment scrubbing
// (both come from runWithTimeout). Per the Open Questions in spec
// §9, this backend blocks *accidental* network egress (no proxy env, no
// inherited sockets) but makes no adversarial isolation claim: callers
// needing that must select strict (namespace) or isolated (container).
type RestrictedBackend struct{}

func (RestrictedBackend) Run(ctx context.Context, policy Policy, req RunRequest) (Outcome, error) {
	return runWithTimeout(ctx, policy, req, nil, true)
}
