package probe

import (
	"net"
	"testing"
	"time"

	"github.com/btcsuite/btcd/wire"

	"github.com/kaseeder/kaseeder/internal/peeraddr"
)

const testMagic = 0x6b617370

func pipeDial(server func(net.Conn)) DialFunc {
	return func(network, address string, timeout time.Duration) (net.Conn, error) {
		client, srv := net.Pipe()
		go server(srv)
		return client, nil
	}
}

// wireVersion drains the client's version message, off the wire, then
// replies with its own version + verack, standing in for a well-behaved
// remote peer.
func wireVersion(conn net.Conn, userAgent string) {
	defer conn.Close()

	wire.ReadMessage(conn, pver, testMagic)

	reply, _ := wire.NewMsgVersionFromConn(conn, 42, 0)
	reply.UserAgent = userAgent
	wire.WriteMessage(conn, reply, pver, testMagic)

	msg, _, err := wire.ReadMessage(conn, pver, testMagic)
	if err != nil {
		return
	}
	if _, ok := msg.(*wire.MsgVerAck); !ok {
		return
	}
	wire.WriteMessage(conn, wire.NewMsgVerAck(), pver, testMagic)

	msg, _, err = wire.ReadMessage(conn, pver, testMagic)
	if err != nil {
		return
	}
	if _, ok := msg.(*wire.MsgGetAddr); !ok {
		return
	}

	addrMsg := wire.NewMsgAddr()
	na := wire.NewNetAddressIPPort(net.ParseIP("8.8.8.8"), 16111, 0)
	addrMsg.AddAddress(na)
	wire.WriteMessage(conn, addrMsg, pver, testMagic)
}

func newTestConfig(dial DialFunc) Config {
	cfg := DefaultConfig()
	cfg.NetworkMagic = testMagic
	cfg.DefaultPort = 16111
	cfg.Dial = dial
	return cfg
}

func TestProbeOkHarvestsAddresses(t *testing.T) {
	dial := pipeDial(func(conn net.Conn) {
		wireVersion(conn, "/kaseeder:1.0(sub:0000000000000000000000000000000000000000)/")
	})
	p := New(newTestConfig(dial))

	v := p.Probe(peeraddr.New(net.ParseIP("1.2.3.4"), 16111))
	if v.Outcome != Ok {
		t.Fatalf("expected Ok outcome, got %v (%s)", v.Outcome, v.Reason)
	}
	if v.SubnetworkID != "0000000000000000000000000000000000000000" {
		t.Fatalf("expected subnetwork id to be parsed, got %q", v.SubnetworkID)
	}
	if len(v.Harvested) != 1 {
		t.Fatalf("expected 1 harvested address, got %d", len(v.Harvested))
	}
}

func TestProbeUnreachableOnDialFailure(t *testing.T) {
	cfg := newTestConfig(func(network, address string, timeout time.Duration) (net.Conn, error) {
		return nil, &net.OpError{Op: "dial", Err: net.ErrClosed}
	})
	p := New(cfg)

	v := p.Probe(peeraddr.New(net.ParseIP("1.2.3.4"), 16111))
	if v.Outcome != Unreachable {
		t.Fatalf("expected Unreachable outcome, got %v", v.Outcome)
	}
}

func TestProbeRejectsBelowMinProtocolVersion(t *testing.T) {
	dial := pipeDial(func(conn net.Conn) {
		wireVersion(conn, "/kaseeder:1.0/")
	})
	cfg := newTestConfig(dial)
	cfg.MinProtocolVersion = 999999
	p := New(cfg)

	v := p.Probe(peeraddr.New(net.ParseIP("1.2.3.4"), 16111))
	if v.Outcome != Rejected {
		t.Fatalf("expected Rejected outcome, got %v", v.Outcome)
	}
}

func TestProbeNoHarvestIsStillOk(t *testing.T) {
	dial := pipeDial(func(conn net.Conn) {
		defer conn.Close()
		wire.ReadMessage(conn, pver, testMagic)
		reply, _ := wire.NewMsgVersionFromConn(conn, 42, 0)
		wire.WriteMessage(conn, reply, pver, testMagic)
		wire.ReadMessage(conn, pver, testMagic) // verack
		wire.WriteMessage(conn, wire.NewMsgVerAck(), pver, testMagic)
		// never reply to getaddr; this handler returns and closes the pipe,
		// so the probe's harvest ends with no addresses
	})
	cfg := newTestConfig(dial)
	cfg.AddressResponseTimeout = 200 * time.Millisecond
	p := New(cfg)

	v := p.Probe(peeraddr.New(net.ParseIP("1.2.3.4"), 16111))
	if v.Outcome != Ok {
		t.Fatalf("expected Ok outcome even with no harvest, got %v (%s)", v.Outcome, v.Reason)
	}
	if len(v.Harvested) != 0 {
		t.Fatalf("expected no harvested addresses, got %d", len(v.Harvested))
	}
}

func TestParseSubnetworkCommentDefaultsToUnknown(t *testing.T) {
	if got := parseSubnetworkComment("/kaseeder:1.0/"); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}

func TestCompareDottedVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.1", -1},
		{"1.0.1", "1.0.0", 1},
		{"1.2", "1.2.0", 0},
		{"2.0.0", "1.9.9", 1},
	}
	for _, c := range cases {
		got, ok := compareDottedVersions(c.a, c.b)
		if !ok {
			t.Fatalf("expected comparable versions for %q/%q", c.a, c.b)
		}
		if got != c.want {
			t.Fatalf("compareDottedVersions(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestBelowMinVersionAcceptsUnparseable(t *testing.T) {
	if belowMinVersion("1.0.0", "not-a-version") {
		t.Fatalf("expected unparseable peer version to be accepted, not rejected")
	}
	if belowMinVersion("", "1.0.0") {
		t.Fatalf("expected empty floor to accept everything")
	}
}
