//go:build !linux

package sandbox

// applyBestEffortLimits is a no-op outside Linux: rlimit tightening via
// prlimit(2) has no portable equivalent, and the restricted backend degrades
// to timeout-plus-env-scrubbing only on these hosts.
func applyBestEffortLimits(pid int, policy Policy) {}
