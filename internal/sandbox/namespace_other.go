//go:build !linux

package sandbox

import "context"

// NamespaceBackend is unavailable outside Linux. Per spec §4.5 this must
// surface as SandboxUnavailable rather than silently falling back to a
// weaker backend.
type NamespaceBackend struct{}

func (NamespaceBackend) Run(ctx context.Context, policy Policy, req RunRequest) (Outcome, error) {
	return Outcome{ExitKind: ExitSandboxUnavailable}, nil
}
