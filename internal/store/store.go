// Package store is the Address Store: the durable, sharded set of Peer
// Records described in spec.md §3 and §4.1.
package store

import (
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"github.com/kaseeder/kaseeder/internal/clock"
	"github.com/kaseeder/kaseeder/internal/logging"
	"github.com/kaseeder/kaseeder/internal/peeraddr"
)

// Store holds the authoritative set of Peer Records for one network.
type Store struct {
	shards      []*shard
	defaultPort uint16
	cfg         Tunables
	clock       clock.Clock
	peersFile   string
	logger      *logging.Logger

	rejected        uint64
	persistFailures uint64
	retired         uint64
}

// New builds an empty Store. peersFile is where Persist/Load read and
// write; pass "" to disable persistence entirely (used by tests).
func New(defaultPort uint16, cfg Tunables, clk clock.Clock, peersFile string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		shards:      newShards(),
		defaultPort: defaultPort,
		cfg:         cfg,
		clock:       clk,
		peersFile:   peersFile,
		logger:      logger,
	}
}

// AddOrMerge inserts a new record or merges into an existing one, per
// spec.md §4.1. Sanitation failures are counted and silently dropped —
// never an error to the caller (§4.1, §7).
func (s *Store) AddOrMerge(addr peeraddr.Address, meta SourceMetadata) RejectReason {
	if reason := peeraddr.Sanitize(addr); reason != peeraddr.RejectNone {
		atomic.AddUint64(&s.rejected, 1)
		return reason
	}

	now := s.clock.Now()
	key := addr.Key()
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, exists := sh.records[key]
	if !exists {
		rec = newRecord(addr, now)
		sh.records[key] = rec
	}

	// Merge rule: earlier first_seen wins (a no-op on fresh insert);
	// latest handshake metadata wins; is_known_peer is monotonically
	// sticky.
	if meta.UserAgent != "" {
		rec.UserAgent = meta.UserAgent
	}
	if meta.SubnetworkID != "" {
		rec.SubnetworkID = meta.SubnetworkID
	}
	if meta.ProtocolVersion != 0 {
		rec.ProtocolVersion = meta.ProtocolVersion
	}
	if meta.IsKnownPeer {
		rec.IsKnownPeer = true
		// Known peers are seeded as already-successful so they
		// participate immediately, per spec.md §3 and §4.3.
		if rec.LastSuccess.IsZero() {
			rec.LastAttempt = now
			rec.LastSuccess = now
			rec.AttemptsSinceSuccess = 0
		}
	}

	return peeraddr.RejectNone
}

// MarkSuccess records a successful handshake, per spec.md §4.1.
func (s *Store) MarkSuccess(addr peeraddr.Address, protocolVersion uint32, userAgent, subnetworkID string) {
	now := s.clock.Now()
	key := addr.Key()
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[key]
	if !ok {
		return
	}
	rec.LastAttempt = now
	rec.LastSuccess = now
	rec.AttemptsSinceSuccess = 0
	rec.EverProbed = true
	rec.ProtocolVersion = protocolVersion
	if userAgent != "" {
		rec.UserAgent = userAgent
	}
	if subnetworkID != "" {
		rec.SubnetworkID = subnetworkID
	}
}

// MarkFailure records a failed probe attempt, per spec.md §4.1.
func (s *Store) MarkFailure(addr peeraddr.Address) {
	now := s.clock.Now()
	key := addr.Key()
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[key]
	if !ok {
		return
	}
	rec.LastAttempt = now
	rec.AttemptsSinceSuccess++
	rec.EverProbed = true
}

// probeCandidate is a record snapshot used only while deciding selection
// order; it is never mutated and never aliases shard-owned state.
type probeCandidate struct {
	addr        peeraddr.Address
	state       State
	lastAttempt time.Time
	neverTried  bool
}

// SelectForProbe implements spec.md §4.1's selection policy: skip records
// in cooldown, then prefer never-attempted, then Stale (to confirm loss),
// then ascending last_attempt, breaking ties randomly, capped at n.
func (s *Store) SelectForProbe(n int) []peeraddr.Address {
	if n <= 0 {
		return nil
	}
	now := s.clock.Now()

	var candidates []probeCandidate
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, rec := range sh.records {
			state := deriveState(rec, now, s.defaultPort, s.cfg)
			if !rec.LastAttempt.IsZero() && now.Sub(rec.LastAttempt) < cooldown(state, rec.EverProbed, s.cfg) {
				continue
			}
			candidates = append(candidates, probeCandidate{
				addr:        rec.Address,
				state:       state,
				lastAttempt: rec.LastAttempt,
				neverTried:  rec.LastAttempt.IsZero(),
			})
		}
		sh.mu.RUnlock()
	}

	// Randomize first so ties within a selection class break randomly,
	// then stable-sort by the actual preference order.
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return selectionRank(candidates[i]) < selectionRank(candidates[j])
	})

	if n > len(candidates) {
		n = len(candidates)
	}
	out := make([]peeraddr.Address, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, candidates[i].addr)
	}
	return out
}

// selectionRank implements the (a) never-attempted, (b) Stale, (c)
// ascending last_attempt preference order as a sortable key. Within class
// (c), ties were already broken by the shuffle above.
func selectionRank(c probeCandidate) int64 {
	if c.neverTried {
		return -2
	}
	if c.state == StateStale {
		return -1
	}
	return c.lastAttempt.UnixNano()
}

// GoodSample returns up to max addresses currently in the Good state,
// filtered by family and, when subnetworkID is non-empty, by matching
// subnetwork_id (spec.md §4.5's subnetwork filtering). Randomized without
// replacement, never duplicated within one call (spec.md §4.1, property
// P2).
func (s *Store) GoodSample(max int, family Family, subnetworkID string) []peeraddr.Address {
	if max <= 0 {
		return nil
	}
	now := s.clock.Now()

	var good []peeraddr.Address
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, rec := range sh.records {
			if deriveState(rec, now, s.defaultPort, s.cfg) != StateGood {
				continue
			}
			if !filterFamily(rec.Address.IP, family) {
				continue
			}
			if subnetworkID != "" && rec.SubnetworkID != subnetworkID {
				continue
			}
			good = append(good, rec.Address)
		}
		sh.mu.RUnlock()
	}

	rand.Shuffle(len(good), func(i, j int) {
		good[i], good[j] = good[j], good[i]
	})
	if max > len(good) {
		max = len(good)
	}
	return good[:max]
}

// SnapshotStats returns (good, stale, bad, new) counts plus the running
// failure/retirement counters, per spec.md §4.1.
func (s *Store) SnapshotStats() Stats {
	now := s.clock.Now()
	var st Stats
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, rec := range sh.records {
			switch deriveState(rec, now, s.defaultPort, s.cfg) {
			case StateGood:
				st.Good++
			case StateStale:
				st.Stale++
			case StateBad:
				st.Bad++
			default:
				st.New++
			}
		}
		sh.mu.RUnlock()
	}
	st.RejectedTotal = atomic.LoadUint64(&s.rejected)
	st.PersistFailuresTotal = atomic.LoadUint64(&s.persistFailures)
	st.RetiredTotal = atomic.LoadUint64(&s.retired)
	return st
}

// RetireSweep removes Bad records whose last probe attempt is older than
// RetireAfter, and any record that would now fail sanitation (spec.md
// §4.1's retroactive sanitation check).
func (s *Store) RetireSweep() {
	now := s.clock.Now()
	var evicted int
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, rec := range sh.records {
			state := deriveState(rec, now, s.defaultPort, s.cfg)
			retireBad := state == StateBad && !rec.LastAttempt.IsZero() && now.Sub(rec.LastAttempt) > s.cfg.RetireAfter
			retireSanitation := peeraddr.Sanitize(rec.Address) != peeraddr.RejectNone
			if retireBad || retireSanitation {
				delete(sh.records, key)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	if evicted > 0 {
		atomic.AddUint64(&s.retired, uint64(evicted))
		s.logger.Infof("store: retire sweep evicted %d records\n", evicted)
	}
}
