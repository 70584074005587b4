package sandbox

import "context"

// TimeoutOnlyBackend spawns the child directly in a private temp working
// directory with a scrubbed environment, and enforces no limit beyond a
// wall-clock deadline. Used by the development and standard presets.
type TimeoutOnlyBackend struct{}

func (TimeoutOnlyBackend) Run(ctx context.Context, policy Policy, req RunRequest) (Outcome, error) {
	return runWithTimeout(ctx, policy, req, nil, false)
}
