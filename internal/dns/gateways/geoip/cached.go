package geoip

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/lbdns/internal/dns/domain"
)

// Cached memoises successful lookups of another Locator. Failures are never
// stored, so a transient outage does not pin an address to an error.
type Cached struct {
	next   Locator
	lru    *lru.Cache[string, domain.Coordinates]
	hits   uint64
	misses uint64
}

// NewCached wraps next with an LRU of the given capacity. If size <= 0 next
// is returned unchanged.
func NewCached(next Locator, size int) (Locator, error) {
	if size <= 0 {
		return next, nil
	}
	cache, err := lru.New[string, domain.Coordinates](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, lru: cache}, nil
}

// Locate returns the memoised coordinates of addr, resolving them on a miss.
func (c *Cached) Locate(ctx context.Context, addr string) (domain.Coordinates, error) {
	if coords, ok := c.lru.Get(addr); ok {
		atomic.AddUint64(&c.hits, 1)
		return coords, nil
	}
	atomic.AddUint64(&c.misses, 1)

	coords, err := c.next.Locate(ctx, addr)
	if err != nil {
		return domain.Coordinates{}, err
	}
	c.lru.Add(addr, coords)
	return coords, nil
}

// Stats returns the hit and miss counters.
func (c *Cached) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}

// Len returns the number of memoised addresses.
func (c *Cached) Len() int {
	return c.lru.Len()
}

var _ Locator = (*Cached)(nil)
