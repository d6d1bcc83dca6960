package dnsserver

import (
	"net"
	"testing"

	"github.com/miekg/dns"

	"github.com/kaseeder/kaseeder/internal/peeraddr"
	"github.com/kaseeder/kaseeder/internal/store"
)

// fakeManager is a minimal store.Manager for exercising the responder
// without a real Store, in the style of original_source/src/dns.rs's
// MockAddressManager.
type fakeManager struct {
	v4 []peeraddr.Address
	v6 []peeraddr.Address
}

func (f *fakeManager) AddOrMerge(addr peeraddr.Address, meta store.SourceMetadata) store.RejectReason {
	return store.RejectNone
}
func (f *fakeManager) MarkSuccess(addr peeraddr.Address, protocolVersion uint32, userAgent, subnetworkID string) {
}
func (f *fakeManager) MarkFailure(addr peeraddr.Address)          {}
func (f *fakeManager) SelectForProbe(n int) []peeraddr.Address    { return nil }
func (f *fakeManager) SnapshotStats() store.Stats                 { return store.Stats{} }
func (f *fakeManager) RetireSweep()                               {}
func (f *fakeManager) Persist() error                             { return nil }
func (f *fakeManager) Load() error                                { return nil }
func (f *fakeManager) GoodSample(max int, family store.Family, subnetworkID string) []peeraddr.Address {
	if family == store.FamilyV4 {
		return f.v4
	}
	return f.v6
}

// fakeResponseWriter captures the message handed to WriteMsg without
// opening a real socket.
type fakeResponseWriter struct {
	written *dns.Msg
}

func (f *fakeResponseWriter) LocalAddr() net.Addr       { return &net.UDPAddr{} }
func (f *fakeResponseWriter) RemoteAddr() net.Addr      { return &net.UDPAddr{} }
func (f *fakeResponseWriter) WriteMsg(m *dns.Msg) error { f.written = m; return nil }
func (f *fakeResponseWriter) Write([]byte) (int, error) { return 0, nil }
func (f *fakeResponseWriter) Close() error              { return nil }
func (f *fakeResponseWriter) TsigStatus() error         { return nil }
func (f *fakeResponseWriter) TsigTimersOnly(bool)       {}
func (f *fakeResponseWriter) Hijack()                   {}

func testServer(mgr store.Manager) *Server {
	cfg := DefaultConfig("seed.example.org.", "ns.seed.example.org.")
	return New(cfg, mgr, nil)
}

func query(name string, qtype uint16) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(name, qtype)
	return m
}

func TestHandleARecord(t *testing.T) {
	mgr := &fakeManager{v4: []peeraddr.Address{peeraddr.New(net.ParseIP("1.2.3.4"), 16111)}}
	s := testServer(mgr)
	w := &fakeResponseWriter{}

	s.handle(w, query("seed.example.org.", dns.TypeA))

	if w.written.Rcode != dns.RcodeSuccess {
		t.Fatalf("expected success, got rcode %d", w.written.Rcode)
	}
	if len(w.written.Answer) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(w.written.Answer))
	}
	a, ok := w.written.Answer[0].(*dns.A)
	if !ok || !a.A.Equal(net.ParseIP("1.2.3.4")) {
		t.Fatalf("unexpected answer record: %+v", w.written.Answer[0])
	}
	if len(w.written.Ns) != 1 {
		t.Fatalf("expected authority section with NS record, got %d", len(w.written.Ns))
	}
}

func TestHandleAAAARecord(t *testing.T) {
	v6 := peeraddr.New(net.ParseIP("2606:4700:4700::1111"), 16111)
	mgr := &fakeManager{v6: []peeraddr.Address{v6}}
	s := testServer(mgr)
	w := &fakeResponseWriter{}

	s.handle(w, query("seed.example.org.", dns.TypeAAAA))

	if len(w.written.Answer) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(w.written.Answer))
	}
	if _, ok := w.written.Answer[0].(*dns.AAAA); !ok {
		t.Fatalf("expected AAAA record, got %T", w.written.Answer[0])
	}
}

func TestHandleOutOfZoneIsRefused(t *testing.T) {
	s := testServer(&fakeManager{})
	w := &fakeResponseWriter{}

	s.handle(w, query("other.example.org.", dns.TypeA))

	if w.written.Rcode != dns.RcodeRefused {
		t.Fatalf("expected REFUSED, got rcode %d", w.written.Rcode)
	}
}

func TestHandleNSAndSOA(t *testing.T) {
	s := testServer(&fakeManager{})

	w := &fakeResponseWriter{}
	s.handle(w, query("seed.example.org.", dns.TypeNS))
	if len(w.written.Answer) != 1 {
		t.Fatalf("expected 1 NS answer, got %d", len(w.written.Answer))
	}
	if _, ok := w.written.Answer[0].(*dns.NS); !ok {
		t.Fatalf("expected NS record, got %T", w.written.Answer[0])
	}

	w = &fakeResponseWriter{}
	s.handle(w, query("seed.example.org.", dns.TypeSOA))
	if len(w.written.Answer) != 1 {
		t.Fatalf("expected 1 SOA answer, got %d", len(w.written.Answer))
	}
	if _, ok := w.written.Answer[0].(*dns.SOA); !ok {
		t.Fatalf("expected SOA record, got %T", w.written.Answer[0])
	}
}

func TestHandleOtherTypeIsNoErrorEmpty(t *testing.T) {
	s := testServer(&fakeManager{})
	w := &fakeResponseWriter{}

	s.handle(w, query("seed.example.org.", dns.TypeMX))

	if w.written.Rcode != dns.RcodeSuccess {
		t.Fatalf("expected NOERROR, got rcode %d", w.written.Rcode)
	}
	if len(w.written.Answer) != 0 {
		t.Fatalf("expected empty answer section, got %d", len(w.written.Answer))
	}
}

func TestHandleSubnetworkFilterStripsLabel(t *testing.T) {
	matching := peeraddr.New(net.ParseIP("1.1.1.1"), 16111)
	mgr := &fakeManager{v4: []peeraddr.Address{matching}}
	s := testServer(mgr)
	w := &fakeResponseWriter{}

	sub := "1111111111111111111111111111111111111111"
	s.handle(w, query("x"+sub+".seed.example.org.", dns.TypeA))

	if w.written.Rcode != dns.RcodeSuccess {
		t.Fatalf("expected success for a valid subnetwork-filter label, got rcode %d", w.written.Rcode)
	}
}

func TestHandleUnparseableFilterPrefixIsStillInZone(t *testing.T) {
	s := testServer(&fakeManager{})
	w := &fakeResponseWriter{}

	s.handle(w, query("not-a-filter.seed.example.org.", dns.TypeA))

	if w.written.Rcode != dns.RcodeSuccess {
		t.Fatalf("expected NOERROR, since 'not-a-filter' strips to the zone, got rcode %d", w.written.Rcode)
	}
	if len(w.written.Answer) != 0 {
		t.Fatalf("expected empty answer section for an unparseable filter prefix, got %d", len(w.written.Answer))
	}
}

func TestHandleNameOutsideZoneIsRefused(t *testing.T) {
	s := testServer(&fakeManager{})
	w := &fakeResponseWriter{}

	s.handle(w, query("not.the.right.zone.org.", dns.TypeA))

	if w.written.Rcode != dns.RcodeRefused {
		t.Fatalf("expected refused for a name genuinely outside the zone, got rcode %d", w.written.Rcode)
	}
}

func TestSplitSubnetworkFilter(t *testing.T) {
	sub := "0000000000000000000000000000000000000001"
	filter, rest := splitSubnetworkFilter("x" + sub + ".seed.example.org.")
	if filter != sub {
		t.Fatalf("expected filter %q, got %q", sub, filter)
	}
	if rest != "seed.example.org." {
		t.Fatalf("expected rest to be the zone, got %q", rest)
	}

	filter, rest = splitSubnetworkFilter("seed.example.org.")
	if filter != "" || rest != "seed.example.org." {
		t.Fatalf("expected no filter for an unlabeled name, got filter=%q rest=%q", filter, rest)
	}
}

func TestHandleMalformedQuestionIsFormErr(t *testing.T) {
	s := testServer(&fakeManager{})
	w := &fakeResponseWriter{}

	m := new(dns.Msg)
	s.handle(w, m)

	if w.written.Rcode != dns.RcodeFormatError {
		t.Fatalf("expected FORMERR for a question-less message, got %d", w.written.Rcode)
	}
}
