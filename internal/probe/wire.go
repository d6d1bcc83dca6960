// Copyright (c) 2013-2018 The btcsuite developers
// Copyright (c) 2016-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file of btcd.

package probe

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/wire"

	"github.com/kaseeder/kaseeder/internal/peeraddr"
)

// pver is the btcd wire protocol version this network's own handshake is
// framed against. The network's own protocol_version field (advertised in
// MsgVersion.ProtocolVersion) is independent of this framing constant.
const pver = wire.ProtocolVersion

// subnetworkComment matches the "(sub:<40hex>)" tag appended to a peer's
// user agent, the BIP-14-style channel this network's handshake uses to
// carry a field the wire.MsgVersion struct has no room for.
var subnetworkComment = regexp.MustCompile(`\(sub:([0-9a-fA-F]{40})\)`)

// Real is the production Prober: a genuine version/verack/getaddr/addr
// handshake over TCP, framed with github.com/btcsuite/btcd/wire and this
// network's own magic number in place of Bitcoin's.
type Real struct {
	cfg Config
}

// New builds a Real prober. cfg.Dial defaults to net.DialTimeout if nil.
func New(cfg Config) *Real {
	if cfg.Dial == nil {
		cfg.Dial = net.DialTimeout
	}
	return &Real{cfg: cfg}
}

// magic converts the configured network magic into btcd wire's own
// network-identifier type.
func (r *Real) magic() wire.BitcoinNet {
	return wire.BitcoinNet(r.cfg.NetworkMagic)
}

// Probe performs the handshake described in spec.md §4.2, hard-capped at
// ConnectTimeout + HandshakeTimeout + AddressResponseTimeout of total wall
// time.
func (r *Real) Probe(addr peeraddr.Address) Verdict {
	dialString := net.JoinHostPort(addr.IP.String(), strconv.Itoa(int(addr.Port)))

	conn, err := r.cfg.Dial("tcp", dialString, r.cfg.ConnectTimeout)
	if err != nil {
		return Verdict{Outcome: Unreachable, Reason: err.Error()}
	}
	defer conn.Close()

	total := r.cfg.HandshakeTimeout + r.cfg.AddressResponseTimeout
	conn.SetDeadline(time.Now().Add(total))

	nonce, err := randomNonce()
	if err != nil {
		return Verdict{Outcome: Unreachable, Reason: err.Error()}
	}

	ownUA := "/kaseeder:1.0/"
	if r.cfg.UserAgent != "" {
		ownUA = r.cfg.UserAgent
	}
	if r.cfg.OwnSubnetworkID != "" {
		ownUA = fmt.Sprintf("%s(sub:%s)", ownUA, r.cfg.OwnSubnetworkID)
	}

	msgver, err := wire.NewMsgVersionFromConn(conn, nonce, 0)
	if err != nil {
		return Verdict{Outcome: Unreachable, Reason: err.Error()}
	}
	msgver.UserAgent = ownUA

	if err := wire.WriteMessage(conn, msgver, pver, r.magic()); err != nil {
		return Verdict{Outcome: Unreachable, Reason: err.Error()}
	}

	msg, _, err := wire.ReadMessage(conn, pver, r.magic())
	if err != nil {
		// btcd reports a frame carrying another network's magic (or an
		// otherwise malformed frame) as a *wire.MessageError: the peer
		// answered, but not as a peer of this network.
		if _, wrongNet := err.(*wire.MessageError); wrongNet {
			return Verdict{Outcome: Rejected, Reason: err.Error()}
		}
		return Verdict{Outcome: Unreachable, Reason: err.Error()}
	}

	peerVersion, ok := msg.(*wire.MsgVersion)
	if !ok {
		return Verdict{Outcome: Rejected, Reason: "did not receive version message"}
	}

	if verdict, rejected := r.checkVersion(peerVersion); rejected {
		return verdict
	}

	if err := wire.WriteMessage(conn, wire.NewMsgVerAck(), pver, r.magic()); err != nil {
		return Verdict{Outcome: Unreachable, Reason: err.Error()}
	}

	msg, _, err = wire.ReadMessage(conn, pver, r.magic())
	if err != nil {
		return Verdict{Outcome: Unreachable, Reason: err.Error()}
	}
	if _, ok := msg.(*wire.MsgVerAck); !ok {
		return Verdict{Outcome: Rejected, Reason: "did not receive verack"}
	}

	subnetworkID := parseSubnetworkComment(peerVersion.UserAgent)

	harvested := r.harvest(conn)

	return Verdict{
		Outcome:         Ok,
		ProtocolVersion: uint32(peerVersion.ProtocolVersion),
		UserAgent:       peerVersion.UserAgent,
		SubnetworkID:    subnetworkID,
		Harvested:       harvested,
	}
}

// checkVersion applies the min_proto_ver / min_ua_ver floors from spec.md
// §4.2's Rejected clause. A peer on another network is rejected earlier, in
// Probe, when its version message fails btcd's magic check.
func (r *Real) checkVersion(v *wire.MsgVersion) (Verdict, bool) {
	if r.cfg.MinProtocolVersion != 0 && uint32(v.ProtocolVersion) < r.cfg.MinProtocolVersion {
		return Verdict{Outcome: Rejected, Reason: "protocol version below minimum"}, true
	}
	if belowMinVersion(r.cfg.MinUserAgentVersion, extractSemver(v.UserAgent)) {
		return Verdict{Outcome: Rejected, Reason: "user agent version below minimum"}, true
	}
	return Verdict{}, false
}

// harvest sends get-addresses and waits for the addr reply, tolerating and
// discarding any unrelated messages the peer sends first — the same
// tolerant loop gombadi-dnsseeder/crawler.go:crawlIP uses, capped instead
// of unbounded so a chatty or hostile peer can't hold a worker open.
func (r *Real) harvest(conn net.Conn) []peeraddr.Address {
	if err := wire.WriteMessage(conn, wire.NewMsgGetAddr(), pver, r.magic()); err != nil {
		return nil
	}

	deadline := time.Now().Add(r.cfg.AddressResponseTimeout)
	for attempts := 0; attempts < 25 && time.Now().Before(deadline); attempts++ {
		msg, _, err := wire.ReadMessage(conn, pver, r.magic())
		if err != nil {
			return nil
		}
		addrMsg, ok := msg.(*wire.MsgAddr)
		if !ok {
			continue
		}
		return r.sanitizeHarvest(addrMsg.AddrList)
	}
	return nil
}

// sanitizeHarvest applies §3 sanitation to every harvested address per
// spec.md §4.2's requirement that harvested addresses are independently
// sanitized before being returned. Addresses on a non-default port are
// kept (the Store, not the Probe, enforces I4).
func (r *Real) sanitizeHarvest(list []*wire.NetAddress) []peeraddr.Address {
	out := make([]peeraddr.Address, 0, len(list))
	for _, na := range list {
		a := peeraddr.New(na.IP, na.Port)
		if peeraddr.Sanitize(a) != peeraddr.RejectNone {
			continue
		}
		out = append(out, a)
	}
	return out
}

func randomNonce() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// parseSubnetworkComment extracts the "(sub:<40hex>)" tag this network's
// handshake piggybacks on the user-agent string, per spec.md §4.2's
// subnetwork exchange design. Absence means "unknown".
func parseSubnetworkComment(userAgent string) string {
	m := subnetworkComment.FindStringSubmatch(userAgent)
	if m == nil {
		return "unknown"
	}
	return strings.ToLower(m[1])
}

// extractSemver pulls the leading dotted-numeric version out of a
// "/name:1.2.3/" style user agent string for min_ua_ver comparison. If the
// string doesn't look like that, it is returned with only its leading and
// trailing slashes trimmed, and
// belowMinVersion's own parse failure will simply accept the peer.
func extractSemver(userAgent string) string {
	trimmed := strings.Trim(userAgent, "/")
	parts := strings.SplitN(trimmed, ":", 2)
	if len(parts) != 2 {
		return trimmed
	}
	version := parts[1]
	if i := strings.IndexAny(version, "(/"); i >= 0 {
		version = version[:i]
	}
	return version
}
