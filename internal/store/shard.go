package store

import (
	"hash/fnv"
	"sync"
)

// shardCount generalizes gombadi-dnsseeder's single dnsseeder.mtx into the
// sharded index spec.md §4.1 calls for ("the Store may shard its index by
// hash of the Peer Address to allow parallel mutation"). 32 shards keeps
// lock contention low without paging through an unreasonable number of
// mutexes on a store sized for a few thousand records.
const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func newShards() []*shard {
	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{records: make(map[string]*Record)}
	}
	return shards
}

func shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(shardCount))
}

func (s *Store) shardFor(key string) *shard {
	return s.shards[shardIndex(key)]
}
