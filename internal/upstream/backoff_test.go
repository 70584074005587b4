package upstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateBackoffGrowsExponentially(t *testing.T) {
	initial := 100 * time.Millisecond
	max := 10 * time.Second

	assert.Equal(t, initial, calculateBackoff(initial, max, 1))
	assert.Equal(t, 2*initial, calculateBackoff(initial, max, 2))
	assert.Equal(t, 4*initial, calculateBackoff(initial, max, 3))
}

func TestCalculateBackoffCapsAtMax(t *testing.T) {
	initial := time.Second
	max := 5 * time.Second

	assert.Equal(t, max, calculateBackoff(initial, max, 10))
}

func TestCalculateBackoffNeverExceedsOneMinuteFloor(t *testing.T) {
	// spec requires retries fire at least once a minute when enabled; a
	// misconfigured max above that is the operator's call, but the helper
	// itself must never wait longer than the configured ceiling.
	initial := time.Second
	max := time.Minute
	got := calculateBackoff(initial, max, 100)
	assert.LessOrEqual(t, got, max)
}
