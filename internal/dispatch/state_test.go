package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func TestAcceptLocksAndRecords(t *testing.T) {
	s, reason, ok := Accept(State{}, "A1", t0, time.Second)

	assert.True(t, ok)
	assert.Empty(t, reason)
	assert.True(t, s.Locked)
	assert.Equal(t, "A1", s.LastPayload)
	assert.Equal(t, t0, s.LastAcceptedAt)
	assert.Equal(t, uint64(1), s.Ticket)
}

func TestAcceptDropsWhileLocked(t *testing.T) {
	s, _, _ := Accept(State{}, "A1", t0, time.Second)

	for _, payload := range []string{"A1", "B2", "C3"} {
		next, reason, ok := Accept(s, payload, t0.Add(10*time.Second), time.Second)
		assert.False(t, ok)
		assert.Equal(t, DropLocked, reason)
		assert.Equal(t, s, next)
	}
}

func TestAcceptDebouncesAfterRelease(t *testing.T) {
	cooldown := 500 * time.Millisecond
	s, _, _ := Accept(State{}, "A2", t0, cooldown)
	s, released := Release(s, s.Ticket)
	assert.True(t, released)

	_, reason, ok := Accept(s, "A2", t0.Add(300*time.Millisecond), cooldown)
	assert.False(t, ok)
	assert.Equal(t, DropCooldown, reason)

	_, reason, ok = Accept(s, "B9", t0.Add(499*time.Millisecond), cooldown)
	assert.False(t, ok, "different payload inside the window is still noise")
	assert.Equal(t, DropCooldown, reason)
}

func TestAcceptSamePayloadAfterCooldownIsNewAttempt(t *testing.T) {
	cooldown := 500 * time.Millisecond
	s, _, _ := Accept(State{}, "A1", t0, cooldown)
	s, _ = Release(s, s.Ticket)

	next, _, ok := Accept(s, "A1", t0.Add(cooldown), cooldown)

	assert.True(t, ok)
	assert.Equal(t, uint64(2), next.Ticket)
}

func TestReleaseIgnoresStaleTicket(t *testing.T) {
	s, _, _ := Accept(State{}, "A1", t0, time.Second)
	stale := s.Ticket
	s = Clear(s)
	s, _, _ = Accept(s, "B2", t0.Add(time.Millisecond), time.Second)

	next, ok := Release(s, stale)

	assert.False(t, ok)
	assert.True(t, next.Locked)
}

func TestClearKeepsTicketSequence(t *testing.T) {
	s, _, _ := Accept(State{}, "A1", t0, time.Second)

	cleared := Clear(s)

	assert.False(t, cleared.Locked)
	assert.Empty(t, cleared.LastPayload)
	assert.True(t, cleared.LastAcceptedAt.IsZero())
	assert.Equal(t, s.Ticket, cleared.Ticket)

	_, _, ok := Accept(cleared, "A1", t0, time.Second)
	assert.True(t, ok, "a cleared state has no cooldown")
}
