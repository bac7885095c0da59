package compose

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/japaniel/collodrill/pkg/srs"
)

// DefaultCacheSize bounds a PairCache created with a non-positive size.
const DefaultCacheSize = 4096

// PairCache is a caller-owned, size-bounded cache of pair progress keyed by
// pair id. A miss means the record was evicted or never loaded, not that the
// pair is unseen. Callers invalidate entries after writing them to the store.
type PairCache struct {
	lru *lru.Cache[string, srs.PairProgress]
}

// NewPairCache creates a cache holding at most size records.
func NewPairCache(size int) (*PairCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, srs.PairProgress](size)
	if err != nil {
		return nil, err
	}
	return &PairCache{lru: c}, nil
}

// Get returns the cached record for id.
func (c *PairCache) Get(id string) (srs.PairProgress, bool) {
	return c.lru.Get(id)
}

// Put stores p under its pair id.
func (c *PairCache) Put(p srs.PairProgress) {
	c.lru.Add(p.PairID, p)
}

// Fill stores every record in ps.
func (c *PairCache) Fill(ps []srs.PairProgress) {
	for _, p := range ps {
		c.Put(p)
	}
}

// Invalidate drops the record for id.
func (c *PairCache) Invalidate(id string) {
	c.lru.Remove(id)
}

// Purge drops every record.
func (c *PairCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached records.
func (c *PairCache) Len() int {
	return c.lru.Len()
}
