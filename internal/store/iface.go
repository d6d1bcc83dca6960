package store

import (
	"net"

	"github.com/kaseeder/kaseeder/internal/peeraddr"
)

// Manager is the interface the Crawler, the DNS responder, and the
// inspection server depend on — never the concrete *Store. spec.md §9
// calls this out explicitly ("the original treats 'the address manager' as
// an interface so it can be mocked... preserve this"). Tests substitute an
// in-memory fake; production wires *Store.
type Manager interface {
	AddOrMerge(addr peeraddr.Address, meta SourceMetadata) RejectReason
	MarkSuccess(addr peeraddr.Address, protocolVersion uint32, userAgent, subnetworkID string)
	MarkFailure(addr peeraddr.Address)
	SelectForProbe(n int) []peeraddr.Address
	GoodSample(max int, family Family, subnetworkID string) []peeraddr.Address
	SnapshotStats() Stats
	RetireSweep()
	Persist() error
	Load() error
}

// Family filters GoodSample by IP address family.
type Family int

const (
	// FamilyV4 selects IPv4-only addresses (DNS A records).
	FamilyV4 Family = iota
	// FamilyV6 selects IPv6-only addresses (DNS AAAA records).
	FamilyV6
)

// SourceMetadata carries the optional context AddOrMerge needs: whether
// the address came from the operator's trusted known_peers list, and any
// handshake metadata to merge. The crawler's harvest inserts and seed
// discovery pass no metadata; only MarkSuccess records a peer's own.
type SourceMetadata struct {
	IsKnownPeer     bool
	ProtocolVersion uint32
	UserAgent       string
	SubnetworkID    string
}

// RejectReason explains why AddOrMerge did not insert or update a record.
// RejectNone means it succeeded (either as an insert or a merge).
type RejectReason = peeraddr.RejectReason

// RejectNone re-exports peeraddr.RejectNone for callers that only import
// store.
const RejectNone = peeraddr.RejectNone

// Stats is the (good, stale, bad, new) snapshot spec.md §4.1 calls for.
type Stats struct {
	Good, Stale, Bad, New int
	RejectedTotal         uint64
	PersistFailuresTotal  uint64
	RetiredTotal           uint64
}

// ensure *Store always satisfies Manager; a compile error here catches
// drift between the two files immediately.
var _ Manager = (*Store)(nil)

// filterFamily reports whether ip belongs to family.
func filterFamily(ip net.IP, family Family) bool {
	isV4 := ip.To4() != nil
	if family == FamilyV4 {
		return isV4
	}
	return !isV4
}
