package store

import (
	"time"

	"github.com/kaseeder/kaseeder/internal/peeraddr"
)

// State is a Peer Record's derived state (spec.md §3).
type State int

const (
	// StateNew means the record has never succeeded and is not yet Bad.
	StateNew State = iota
	// StateGood means the record succeeded recently, on the network's
	// default port.
	StateGood
	// StateStale means the record succeeded once but not recently.
	StateStale
	// StateBad means the record has given up, or has been silent too long.
	StateBad
)

func (s State) String() string {
	switch s {
	case StateGood:
		return "good"
	case StateStale:
		return "stale"
	case StateBad:
		return "bad"
	default:
		return "new"
	}
}

// Record is one Peer Record (spec.md §3). The zero value is not valid;
// construct with newRecord.
type Record struct {
	Address              peeraddr.Address
	SubnetworkID         string
	ProtocolVersion      uint32
	UserAgent            string
	FirstSeen            time.Time
	LastAttempt          time.Time
	LastSuccess          time.Time
	AttemptsSinceSuccess uint32
	IsKnownPeer          bool

	// EverProbed is set by MarkSuccess/MarkFailure, the only two places a
	// genuine probe attempt is recorded. The known-peer pre-mark in
	// AddOrMerge sets LastAttempt/LastSuccess without a real probe ever
	// having run, so EverProbed stays false until the record's first
	// actual dispatch — keeping it out of Good-state cooldown in the
	// meantime.
	EverProbed bool
}

func newRecord(addr peeraddr.Address, now time.Time) *Record {
	return &Record{
		Address:      addr,
		SubnetworkID: "unknown",
		FirstSeen:    now,
	}
}

// hasSucceeded reports whether the record has ever had a successful
// handshake.
func (r *Record) hasSucceeded() bool {
	return !r.LastSuccess.IsZero()
}

// deriveState implements spec.md §3's derived-state rules. now is supplied
// by the caller (an injected clock) rather than read from time.Now here, so
// the whole decision is deterministic given a snapshot.
func deriveState(r *Record, now time.Time, defaultPort uint16, cfg Tunables) State {
	if r.hasSucceeded() {
		age := now.Sub(r.LastSuccess)
		if age <= cfg.StaleGoodTimeout && r.Address.Port == defaultPort {
			return StateGood
		}
		return StateStale
	}
	// Never succeeded.
	if r.AttemptsSinceSuccess >= cfg.GiveUpThreshold {
		return StateBad
	}
	if !r.LastAttempt.IsZero() && now.Sub(r.LastAttempt) > cfg.StaleBadTimeout {
		return StateBad
	}
	return StateNew
}

// cooldown returns the minimum gap this record must wait between probes,
// banded by its current derived state per spec.md §4.1's table. A record
// that has never actually been probed — a known peer still sitting on its
// AddOrMerge pre-mark — stays on the short band regardless of the state
// that pre-mark derives, per spec.md §4.3 step 2: it becomes eligible for
// dispatch once CooldownNewOrBad has passed since the pre-mark, not held in
// Good-state cooldown for a success that never really happened.
func cooldown(state State, everProbed bool, cfg Tunables) time.Duration {
	if !everProbed {
		return cfg.CooldownNewOrBad
	}
	switch state {
	case StateGood:
		return cfg.CooldownGood
	case StateStale:
		return cfg.CooldownStale
	default:
		return cfg.CooldownNewOrBad
	}
}
