package sandbox

import "context"

// NoneBackend runs the entrypoint with no isolation at all beyond the
// caller's own process. Selecting it is opt-in only; Manager.Run logs a
// warning every time it runs a request under the none preset (spec §4.5).
type NoneBackend struct{}

func (NoneBackend) Run(ctx context.Context, policy Policy, req RunRequest) (Outcome, error) {
	return runWithTimeout(ctx, policy, req, nil, false)
}
