// Package seeddiscovery resolves a network's fixed list of external DNS
// seed hostnames into initial Peer Addresses (spec.md §4.4).
package seeddiscovery

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/kaseeder/kaseeder/internal/logging"
	"github.com/kaseeder/kaseeder/internal/peeraddr"
	"github.com/kaseeder/kaseeder/internal/store"
)

// Resolver is the subset of *net.Resolver Discover needs, so tests can
// substitute a fake without touching a real DNS server.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Discovery runs the seed-discovery algorithm against a fixed hostname
// list, following gombadi-dnsseeder/seeder.go:initSeeder's
// range-over-hostnames-and-add shape, generalized to query both A and
// AAAA (net.Resolver.LookupIPAddr already returns both families) and to
// tolerate per-hostname failure.
type Discovery struct {
	Hostnames   []string
	DefaultPort uint16
	Resolver    Resolver
	Store       store.Manager
	Timeout     time.Duration
	Logger      *logging.Logger
}

// New builds a Discovery using net.DefaultResolver.
func New(hostnames []string, defaultPort uint16, mgr store.Manager, timeout time.Duration, logger *logging.Logger) *Discovery {
	if logger == nil {
		logger = logging.Default()
	}
	return &Discovery{
		Hostnames:   hostnames,
		DefaultPort: defaultPort,
		Resolver:    net.DefaultResolver,
		Store:       mgr,
		Timeout:     timeout,
		Logger:      logger,
	}
}

// Run resolves every configured hostname and inserts the results into the
// Store. One hostname's failure never aborts the others — spec.md §4.4's
// "partial failure is a normal outcome" clause.
func (d *Discovery) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, host := range d.Hostnames {
		if host == "" {
			continue
		}
		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			d.resolveOne(ctx, host)
		}(host)
	}
	wg.Wait()
}

func (d *Discovery) resolveOne(ctx context.Context, host string) {
	lookupCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	addrs, err := d.Resolver.LookupIPAddr(lookupCtx, host)
	if err != nil {
		d.Logger.Warnf("seeddiscovery: lookup of %s failed: %v\n", host, err)
		return
	}

	inserted := 0
	for _, ipAddr := range addrs {
		a := peeraddr.New(ipAddr.IP, d.DefaultPort)
		if d.Store.AddOrMerge(a, store.SourceMetadata{}) == store.RejectNone {
			inserted++
		}
	}
	d.Logger.Debugf("seeddiscovery: %s resolved %d address(es), %d inserted\n", host, len(addrs), inserted)
}
