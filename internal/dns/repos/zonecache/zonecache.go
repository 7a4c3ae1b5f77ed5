package zonecache

import (
	"sync/atomic"

	"github.com/haukened/lbdns/internal/dns/domain"
)

// ZoneCache publishes the current zone snapshot to concurrent readers.
// Readers never block; a writer replaces the whole snapshot in one store.
type ZoneCache struct {
	current atomic.Pointer[domain.ZoneSnapshot]
}

// New creates an empty ZoneCache.
func New() *ZoneCache {
	return &ZoneCache{}
}

// Current returns the most recently published snapshot, or nil before the
// first Swap.
func (zc *ZoneCache) Current() *domain.ZoneSnapshot {
	return zc.current.Load()
}

// Swap publishes next and returns the snapshot it replaced.
func (zc *ZoneCache) Swap(next *domain.ZoneSnapshot) *domain.ZoneSnapshot {
	return zc.current.Swap(next)
}

// Count returns the number of records in the current snapshot.
func (zc *ZoneCache) Count() int {
	snap := zc.Current()
	if snap == nil {
		return 0
	}
	return snap.Len()
}
