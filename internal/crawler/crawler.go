// Package crawler drives the discovery loop: a worker pool probing
// addresses the Store hands out, feeding verdicts back into the Store
// (spec.md §4.3).
package crawler

import (
	"context"
	"sync"
	"time"

	"github.com/kaseeder/kaseeder/internal/clock"
	"github.com/kaseeder/kaseeder/internal/logging"
	"github.com/kaseeder/kaseeder/internal/peeraddr"
	"github.com/kaseeder/kaseeder/internal/probe"
	"github.com/kaseeder/kaseeder/internal/store"
)

// SeedRunner is the subset of *seeddiscovery.Discovery the Crawler
// depends on, kept narrow so tests can substitute a fake without
// constructing a real resolver.
type SeedRunner interface {
	Run(ctx context.Context)
}

// Crawler ties the Store, Prober, and Seed Discovery together into the
// worker-pool dispatch loop spec.md §4.3 describes, generalizing
// gombadi-dnsseeder/seeder.go:runSeeder's single ticker-driven select over
// a fixed-size goroutine-per-candidate model into a bounded worker pool.
type Crawler struct {
	store      store.Manager
	prober     probe.Prober
	seed       SeedRunner
	clock      clock.Clock
	cfg        Config
	knownPeers []peeraddr.Address
	logger     *logging.Logger

	jobs chan peeraddr.Address
}

// New builds a Crawler. knownPeers are the operator's trusted addresses,
// inserted with IsKnownPeer=true during initialize.
func New(mgr store.Manager, prober probe.Prober, seed SeedRunner, clk clock.Clock, cfg Config, knownPeers []peeraddr.Address, logger *logging.Logger) *Crawler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Crawler{
		store:      mgr,
		prober:     prober,
		seed:       seed,
		clock:      clk,
		cfg:        cfg,
		knownPeers: knownPeers,
		logger:     logger,
		jobs:       make(chan peeraddr.Address, cfg.batchSize()),
	}
}

// Run initializes the crawler and blocks until ctx is cancelled, at which
// point it waits for in-flight probes to finish and flushes the Store
// once, per spec.md §4.3's shutdown semantics. Run itself does not return
// until that final flush has happened, so a caller that launches it in a
// goroutine can block on its own completion signal (e.g. a done channel)
// rather than racing process exit against the in-flight probes and final
// persist.
func (c *Crawler) Run(ctx context.Context) {
	c.initialize(ctx)

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Threads; i++ {
		wg.Add(1)
		go c.worker(ctx, &wg)
	}

	crawlTicker := time.NewTicker(c.cfg.CrawlTick)
	defer crawlTicker.Stop()
	seedTicker := time.NewTicker(c.cfg.SeedInterval)
	defer seedTicker.Stop()
	persistTicker := time.NewTicker(c.cfg.PersistTick)
	defer persistTicker.Stop()
	retireTicker := time.NewTicker(c.cfg.RetireTick)
	defer retireTicker.Stop()

	// Kick off the first scan immediately so startup doesn't idle
	// waiting for the first tick.
	go c.dispatch(ctx)

	for {
		select {
		case <-crawlTicker.C:
			go c.dispatch(ctx)
		case <-seedTicker.C:
			go c.seed.Run(ctx)
		case <-persistTicker.C:
			if err := c.store.Persist(); err != nil {
				c.logger.Errorf("crawler: periodic persist failed: %v\n", err)
			}
		case <-retireTicker.C:
			c.store.RetireSweep()
		case <-ctx.Done():
			wg.Wait()
			if err := c.store.Persist(); err != nil {
				c.logger.Errorf("crawler: final persist failed: %v\n", err)
			}
			return
		}
	}
}

// initialize runs spec.md §4.3's three startup steps: a synchronous,
// best-effort Seed Discovery pass, known-peer insertion, then the worker
// pool starts (in Run, immediately after this returns).
func (c *Crawler) initialize(ctx context.Context) {
	seedCtx, cancel := context.WithTimeout(ctx, c.cfg.SeedTimeout)
	c.seed.Run(seedCtx)
	cancel()

	for _, a := range c.knownPeers {
		c.store.AddOrMerge(a, store.SourceMetadata{IsKnownPeer: true})
	}
}

// dispatch asks the Store for a batch of candidates and feeds them to the
// worker pool, staggering same-prefix entries per spec.md §4.3's
// rate-shaping rule. Runs in its own goroutine so a slow stagger never
// blocks Run's ticker select.
func (c *Crawler) dispatch(ctx context.Context) {
	batch := c.store.SelectForProbe(c.cfg.batchSize())
	if len(batch) == 0 {
		return
	}

	lastSent := make(map[string]time.Time)
	for _, addr := range batch {
		prefix := prefixKey(addr)
		if last, ok := lastSent[prefix]; ok {
			if wait := c.cfg.MinPrefixGap - time.Since(last); wait > 0 {
				t := time.NewTimer(wait)
				select {
				case <-t.C:
				case <-ctx.Done():
					t.Stop()
					return
				}
			}
		}
		lastSent[prefix] = time.Now()

		select {
		case c.jobs <- addr:
		case <-ctx.Done():
			return
		}
	}
}

// worker reads probe jobs until ctx is cancelled, per spec.md §4.3's
// worker-pool shape.
func (c *Crawler) worker(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case addr := <-c.jobs:
			c.probeOne(addr)
		case <-ctx.Done():
			return
		}
	}
}

// probeOne runs a single probe and applies its verdict to the Store, per
// spec.md §4.3 step 3.
func (c *Crawler) probeOne(addr peeraddr.Address) {
	verdict := c.prober.Probe(addr)

	switch verdict.Outcome {
	case probe.Ok:
		c.store.MarkSuccess(addr, verdict.ProtocolVersion, verdict.UserAgent, verdict.SubnetworkID)
		// Harvested addresses are known only by address; their own
		// protocol_version/user_agent/subnetwork_id are unknown until
		// they are themselves probed. Tagging them with the intermediary's
		// verdict would misattribute metadata on insert and, on every
		// later re-harvest, clobber an already-correct value on an
		// existing record.
		for _, harvested := range verdict.Harvested {
			c.store.AddOrMerge(harvested, store.SourceMetadata{})
		}
	default:
		c.store.MarkFailure(addr)
	}
}
