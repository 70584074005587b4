//go:build linux

package sandbox

import (
	"golang.org/x/sys/unix"

	"github.com/giantswarm/brokerd/pkg/logging"
)

// applyBestEffortLimits tightens address-space and CPU-time limits on an
// already-started child via prlimit(2). This races the child's own startup
// (it may already have allocated before the limit lands), which is why
// spec §4.5 calls these capabilities "best-effort per host" rather than a
// hard guarantee; callers needing adversarial isolation should select the
// namespace or container backend instead.
func applyBestEffortLimits(pid int, policy Policy) {
	if policy.MaxMemoryBytes > 0 {
		lim := unix.Rlimit{Cur: uint64(policy.MaxMemoryBytes), Max: uint64(policy.MaxMemoryBytes)}
		if err := unix.Prlimit(pid, unix.RLIMIT_AS, &lim, nil); err != nil {
			logging.Debug("Sandbox", "prlimit RLIMIT_AS failed for pid %d: %v", pid, err)
		}
	}
	if policy.MaxCPUSeconds > 0 {
		lim := unix.Rlimit{Cur: uint64(policy.MaxCPUSeconds), Max: uint64(policy.MaxCPUSeconds)}
		if err := unix.Prlimit(pid, unix.RLIMIT_CPU, &lim, nil); err != nil {
			logging.Debug("Sandbox", "prlimit RLIMIT_CPU failed for pid %d: %v", pid, err)
		}
	}
}
