package crawler

import "time"

// Config holds the Crawler's tunables, per spec.md §4.3 and §6.
type Config struct {
	// Threads is the worker pool size, bounded 1-32.
	Threads int
	// CrawlTick is how often the dispatcher asks the Store for a fresh
	// batch of probe candidates.
	CrawlTick time.Duration
	// PersistTick is how often the Store is flushed to disk.
	PersistTick time.Duration
	// RetireTick is how often the retire sweep runs.
	RetireTick time.Duration
	// SeedInterval is how often Seed Discovery re-runs after its initial
	// synchronous pass.
	SeedInterval time.Duration
	// SeedTimeout bounds the initial synchronous Seed Discovery pass.
	SeedTimeout time.Duration
	// MinPrefixGap is the minimum spacing enforced between successive
	// probes of the same /16 (v4) or /32 (v6) prefix within one batch.
	MinPrefixGap time.Duration
}

// Default returns production crawler timing, following
// gombadi-dnsseeder/seeder.go's crawlDelay/auditDelay/dnsDelay constants
// generalized to this spec's four independent tickers.
func Default() Config {
	return Config{
		Threads:      8,
		CrawlTick:    22 * time.Second,
		PersistTick:  5 * time.Minute,
		RetireTick:   time.Minute,
		SeedInterval: 6 * time.Hour,
		SeedTimeout:  10 * time.Second,
		MinPrefixGap: 2 * time.Second,
	}
}

// batchSize returns the number of candidates requested per dispatch,
// spec.md §4.3's "batch = 3 × threads".
func (c Config) batchSize() int {
	return 3 * c.Threads
}
