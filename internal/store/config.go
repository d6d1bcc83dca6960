package store

import "time"

// Tunables holds every timing constant the store's state derivation and
// cooldown banding depend on. Production wires Default (or DefaultDev, ten
// times tighter, per spec.md §6's "development-mode dial"); tests wire
// whatever makes the scenario readable.
type Tunables struct {
	// StaleGoodTimeout is how long a success keeps a record Good.
	StaleGoodTimeout time.Duration
	// StaleBadTimeout is how long a never-succeeded record may go without
	// a probe attempt before it is declared Bad outright.
	StaleBadTimeout time.Duration
	// GiveUpThreshold is the number of consecutive failures on a
	// never-succeeded record before it is declared Bad.
	GiveUpThreshold uint32
	// CooldownGood/Stale/NewOrBad are the three cooldown bands from
	// spec.md §4.1's selection policy table.
	CooldownGood     time.Duration
	CooldownStale    time.Duration
	CooldownNewOrBad time.Duration
	// RetireAfter is how long after its last probe attempt a Bad record
	// survives before retire_sweep evicts it.
	RetireAfter time.Duration
}

// Default returns production timing constants, derived from the same
// figures original_source/src/constants.rs and manager.rs use.
func Default() Tunables {
	return Tunables{
		StaleGoodTimeout: time.Hour,
		StaleBadTimeout:  2 * time.Hour,
		GiveUpThreshold:  8,
		CooldownGood:     30 * time.Minute,
		CooldownStale:    5 * time.Minute,
		CooldownNewOrBad: 45 * time.Second,
		RetireAfter:      8 * time.Hour,
	}
}

// DefaultDev scales Default down by ten, per spec.md §6's single
// development-mode flag ("a single flag in the code, not a separate code
// path").
func DefaultDev() Tunables {
	d := Default()
	d.StaleGoodTimeout /= 10
	d.StaleBadTimeout /= 10
	d.CooldownGood /= 10
	d.CooldownStale /= 10
	d.CooldownNewOrBad /= 10
	d.RetireAfter /= 10
	return d
}
