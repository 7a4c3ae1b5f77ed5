package balancer

import (
	"context"

	"github.com/haukened/lbdns/internal/dns/domain"
)

// GeoLocator resolves an address to coordinates.
type GeoLocator interface {
	Locate(ctx context.Context, addr string) (domain.Coordinates, error)
}

// LoadReporter returns the current load of every backend, in pool order.
type LoadReporter interface {
	Loads(ctx context.Context) ([]float64, error)
}

// SnapshotBuilder derives a complete zone snapshot from the active backend.
type SnapshotBuilder interface {
	Build(active string) (*domain.ZoneSnapshot, error)
}

// SnapshotStore publishes snapshots to concurrent readers.
type SnapshotStore interface {
	Swap(next *domain.ZoneSnapshot) *domain.ZoneSnapshot
	Current() *domain.ZoneSnapshot
}
