package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionBumpsGenerationOnLeavingReady(t *testing.T) {
	s := newSession(PeerConfig{Alias: "demo"})
	s.transition(StateStarting, nil)
	_, gen := s.transition(StateReady, nil)
	assert.Equal(t, uint64(0), gen)

	_, gen = s.transition(StateDegraded, assert.AnError)
	assert.Equal(t, uint64(1), gen, "leaving Ready must retire the old generation")
}

func TestTransitionBumpsGenerationOnRestartAfterFailure(t *testing.T) {
	s := newSession(PeerConfig{Alias: "demo"})
	s.transition(StateStarting, nil)
	s.transition(StateFailed, assert.AnError)

	_, gen := s.transition(StateStarting, nil)
	assert.Equal(t, uint64(1), gen, "restarting after Failed must mint a fresh generation")
}

func TestAttemptsResetOnReady(t *testing.T) {
	s := newSession(PeerConfig{Alias: "demo"})
	s.transition(StateStarting, nil)
	s.transition(StateFailed, assert.AnError)
	s.transition(StateStarting, nil)
	assert.Equal(t, 2, s.attemptsSnapshot())

	s.transition(StateReady, nil)
	assert.Equal(t, 0, s.attemptsSnapshot())
}
