// Package probe implements the Probe component (spec.md §4.2): a short,
// stateless P2P handshake against one Peer Address, yielding a verdict and
// any addresses the peer volunteers.
package probe

import (
	"net"
	"time"

	"github.com/kaseeder/kaseeder/internal/peeraddr"
)

// Outcome classifies a probe attempt.
type Outcome int

const (
	// Unreachable means the TCP connection never completed, or a read,
	// write or local error cut the exchange short before the handshake
	// finished.
	Unreachable Outcome = iota
	// Rejected means the peer connected but failed the handshake, or
	// advertised a version below the configured floor, or the wrong
	// network.
	Rejected
	// Ok means the handshake completed.
	Ok
)

// Verdict is the result of one probe attempt.
type Verdict struct {
	Outcome         Outcome
	ProtocolVersion uint32
	UserAgent       string
	SubnetworkID    string
	Harvested       []peeraddr.Address
	Reason          string
}

// Prober is the interface the Crawler depends on. Production wires *Real;
// tests wire a scripted fake, per spec.md §9's dependency-inversion
// requirement.
type Prober interface {
	Probe(addr peeraddr.Address) Verdict
}

// Config bounds every wait a probe makes, per spec.md §4.2.
type Config struct {
	ConnectTimeout         time.Duration
	HandshakeTimeout       time.Duration
	AddressResponseTimeout time.Duration
	NetworkMagic           uint32
	DefaultPort            uint16
	MinProtocolVersion     uint32
	MinUserAgentVersion    string
	UserAgent              string
	OwnSubnetworkID        string
	Dial                   DialFunc
}

// DialFunc matches net.DialTimeout's shape, so both the plain dialer and
// a SOCKS-proxying one substitute directly, per
// gombadi-dnsseeder/dial.go's createDial pattern.
type DialFunc func(network, address string, timeout time.Duration) (net.Conn, error)

// DefaultConfig returns the seconds-scale timeouts spec.md §4.2 calls for.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:         10 * time.Second,
		HandshakeTimeout:       8 * time.Second,
		AddressResponseTimeout: 5 * time.Second,
	}
}
