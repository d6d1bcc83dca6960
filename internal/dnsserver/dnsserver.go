// Package dnsserver is the Authoritative DNS Responder (spec.md §4.5):
// a UDP server answering A/AAAA/NS/SOA for one configured zone by sampling
// Good peers from the Store.
package dnsserver

import (
	"strings"

	"github.com/miekg/dns"

	"github.com/kaseeder/kaseeder/internal/logging"
	"github.com/kaseeder/kaseeder/internal/store"
)

// Server wraps a *dns.Server bound to Config.ListenAddr, handling queries
// against mgr, generalizing gombadi-dnsseeder/dns.go's fixed-cache
// handleDNSStd/handleDNSNon into a single handler that samples the Store
// live per query.
type Server struct {
	cfg    Config
	store  store.Manager
	logger *logging.Logger

	server *dns.Server
	// errors counts responses that could not be written back to the
	// client. The handler has no path that answers SERVFAIL.
	errors uint64
}

// New builds a Server. It does not start listening until Start is called.
func New(cfg Config, mgr store.Manager, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Server{cfg: cfg, store: mgr, logger: logger}

	mux := dns.NewServeMux()
	mux.HandleFunc(".", s.handle)

	// The listener always binds udp4 regardless of the configured
	// address's literal family, per spec.md §4.5's compatibility note.
	s.server = &dns.Server{Addr: cfg.ListenAddr, Net: "udp4", Handler: mux}
	return s
}

// Start blocks serving UDP queries until the server is shut down. Mirrors
// gombadi-dnsseeder/dns.go:serve's ListenAndServe call, but returns the
// error instead of only logging it, so the caller can treat socket loss
// as the fatal process error spec.md §4.5 calls for.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown() error {
	return s.server.Shutdown()
}

func (s *Server) handle(w dns.ResponseWriter, r *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(r)
	m.Authoritative = true
	m.RecursionAvailable = false

	if len(r.Question) != 1 {
		m.SetRcode(r, dns.RcodeFormatError)
		w.WriteMsg(m)
		return
	}
	q := r.Question[0]

	filter, rest := splitSubnetworkFilter(q.Name)
	if !s.inZone(rest) {
		// The leftmost label didn't parse as a subnetwork filter, but the
		// zone sits right behind it — an attempted-but-unparseable filter
		// prefix, not a name genuinely outside the zone. Answer NOERROR
		// with an empty answer section rather than REFUSED.
		if s.inZone(stripLeftmostLabel(q.Name)) {
			m.Ns = []dns.RR{s.nsRecord()}
			if err := w.WriteMsg(m); err != nil {
				s.errors++
				s.logger.Errorf("dnsserver: write response failed: %v\n", err)
			}
			return
		}
		m.SetRcode(r, dns.RcodeRefused)
		w.WriteMsg(m)
		return
	}

	switch q.Qtype {
	case dns.TypeA:
		m.Answer = s.aRecords(filter)
	case dns.TypeAAAA:
		m.Answer = s.aaaaRecords(filter)
	case dns.TypeNS:
		m.Answer = []dns.RR{s.nsRecord()}
	case dns.TypeSOA:
		m.Answer = []dns.RR{s.soaRecord()}
	default:
		// NOERROR, empty answer section.
	}

	m.Ns = []dns.RR{s.nsRecord()}

	if err := w.WriteMsg(m); err != nil {
		s.errors++
		s.logger.Errorf("dnsserver: write response failed: %v\n", err)
	}
}

// inZone reports whether name (fully qualified, subnetwork label already
// stripped) is exactly the configured zone.
func (s *Server) inZone(name string) bool {
	return strings.EqualFold(name, s.cfg.Zone)
}

func (s *Server) aRecords(filter string) []dns.RR {
	addrs := s.store.GoodSample(s.cfg.SampleSizeV4, store.FamilyV4, filter)
	out := make([]dns.RR, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, &dns.A{
			Hdr: dns.RR_Header{Name: s.cfg.Zone, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: s.cfg.TTL},
			A:   a.IP,
		})
	}
	return out
}

func (s *Server) aaaaRecords(filter string) []dns.RR {
	addrs := s.store.GoodSample(s.cfg.SampleSizeV6, store.FamilyV6, filter)
	out := make([]dns.RR, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, &dns.AAAA{
			Hdr:  dns.RR_Header{Name: s.cfg.Zone, Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: s.cfg.TTL},
			AAAA: a.IP,
		})
	}
	return out
}

func (s *Server) nsRecord() dns.RR {
	return &dns.NS{
		Hdr: dns.RR_Header{Name: s.cfg.Zone, Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: s.cfg.TTL},
		Ns:  s.cfg.Nameserver,
	}
}

func (s *Server) soaRecord() dns.RR {
	return &dns.SOA{
		Hdr:     dns.RR_Header{Name: s.cfg.Zone, Rrtype: dns.TypeSOA, Class: dns.ClassINET, Ttl: s.cfg.TTL},
		Ns:      s.cfg.Nameserver,
		Mbox:    "hostmaster." + s.cfg.Zone,
		Serial:  s.cfg.SOASerial,
		Refresh: uint32(soaRefresh.Seconds()),
		Retry:   uint32(soaRetry.Seconds()),
		Expire:  uint32(soaExpire.Seconds()),
		Minttl:  uint32(soaMinimum.Seconds()),
	}
}
