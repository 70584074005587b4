package upstream

import "time"

// calculateBackoff computes exponential backoff with a floor and a
// configured ceiling: spec §4.2 requires retries "never less than once
// per minute when retries are enabled", which the ceiling enforces from
// above while attempt 1 always fires at initial.
func calculateBackoff(initial, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := initial * time.Duration(uint64(1)<<uint(attempt-1))
	if backoff <= 0 || backoff > max {
		backoff = max
	}
	return backoff
}
