// Package peeraddr is the Peer Address type (spec.md §3) and its
// sanitation rules.
package peeraddr

import (
	"net"
	"strconv"
)

// Address is a transport endpoint: an IP (v4 or v6) and a port. Two
// addresses are equal iff IP and port are equal; IPv6 zone IDs are ignored
// because we only ever keep the parsed IP, never the zone.
type Address struct {
	IP   net.IP
	Port uint16
}

// New builds an Address, normalizing a 4-in-6 IPv4 address to its 4-byte
// form so Key and IsIPv4 are consistent regardless of how the IP arrived.
func New(ip net.IP, port uint16) Address {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	return Address{IP: ip, Port: port}
}

// Key is the canonical map key for this address.
func (a Address) Key() string {
	return net.JoinHostPort(a.IP.String(), strconv.Itoa(int(a.Port)))
}

// Equal reports whether two addresses have the same IP and port.
func (a Address) Equal(b Address) bool {
	return a.IP.Equal(b.IP) && a.Port == b.Port
}

// IsIPv4 reports whether the address is an IPv4 address.
func (a Address) IsIPv4() bool {
	return a.IP.To4() != nil
}

// RejectReason is why an address failed sanitation. The zero value means
// "not rejected".
type RejectReason int

const (
	// RejectNone means the address passed sanitation.
	RejectNone RejectReason = iota
	// RejectInvalidIP means the IP field was nil or unparseable.
	RejectInvalidIP
	// RejectInvalidPort means port was zero.
	RejectInvalidPort
	// RejectLoopback means the IP is a loopback address.
	RejectLoopback
	// RejectUnspecified means the IP is the unspecified address.
	RejectUnspecified
	// RejectMulticast means the IP is in a multicast range.
	RejectMulticast
	// RejectDocumentation means the IP is in a reserved documentation or
	// benchmarking range.
	RejectDocumentation
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "ok"
	case RejectInvalidIP:
		return "invalid ip"
	case RejectInvalidPort:
		return "invalid port"
	case RejectLoopback:
		return "loopback"
	case RejectUnspecified:
		return "unspecified"
	case RejectMulticast:
		return "multicast"
	case RejectDocumentation:
		return "documentation range"
	default:
		return "unknown"
	}
}

// documentation / benchmarking ranges called out by spec.md §3. Parsed
// once at package init rather than on every sanitation call.
var documentationRanges = mustParseCIDRs(
	"192.0.2.0/24",   // TEST-NET-1
	"198.51.100.0/24", // TEST-NET-2
	"203.0.113.0/24",  // TEST-NET-3
	"198.18.0.0/15",   // benchmarking
	"2001:db8::/32",   // IPv6 documentation
	"2001:2::/48",     // IPv6 benchmarking
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

// Sanitize applies the rules in spec.md §3: no loopback, no unspecified,
// no multicast, no documentation ranges, port must be > 0. It is
// idempotent (P7): sanitizing an address that already passed returns
// RejectNone again, and a rejected address is never mutated.
func Sanitize(a Address) RejectReason {
	if a.IP == nil {
		return RejectInvalidIP
	}
	if a.Port == 0 {
		return RejectInvalidPort
	}
	if a.IP.IsLoopback() {
		return RejectLoopback
	}
	if a.IP.IsUnspecified() {
		return RejectUnspecified
	}
	if a.IP.IsMulticast() {
		return RejectMulticast
	}
	for _, n := range documentationRanges {
		if n.Contains(a.IP) {
			return RejectDocumentation
		}
	}
	return RejectNone
}
