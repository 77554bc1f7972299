// Package dispatch is the single gate between scan sources and the resolver. It drops
// scans while a resolution is in flight and scans arriving within the cooldown of the
// last accepted one.
package dispatch

import "time"

// DropReason explains why a scan was not forwarded.
type DropReason string

const (
	DropLocked   DropReason = "locked"
	DropCooldown DropReason = "cooldown"
)

// State is the dispatcher's bookkeeping. Ticket increases with every accepted scan and
// is never reset, so a release for an earlier scan cannot unlock a later one.
type State struct {
	Locked         bool
	LastPayload    string
	LastAcceptedAt time.Time
	Ticket         uint64
}

// Accept decides whether a scan of payload arriving at now may be resolved. On success
// the returned state is locked and carries a new ticket.
func Accept(s State, payload string, now time.Time, cooldown time.Duration) (State, DropReason, bool) {
	if s.Locked {
		return s, DropLocked, false
	}
	if !s.LastAcceptedAt.IsZero() && now.Sub(s.LastAcceptedAt) < cooldown {
		return s, DropCooldown, false
	}
	s.Locked = true
	s.LastPayload = payload
	s.LastAcceptedAt = now
	s.Ticket++
	return s, "", true
}

// Release unlocks the state if ticket is the scan currently holding the lock.
func Release(s State, ticket uint64) (State, bool) {
	if !s.Locked || s.Ticket != ticket {
		return s, false
	}
	s.Locked = false
	return s, true
}

// Clear forgets the lock and cooldown, keeping the ticket sequence.
func Clear(s State) State {
	return State{Ticket: s.Ticket}
}
