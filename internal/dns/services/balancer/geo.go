package balancer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/haukened/lbdns/internal/dns/domain"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// GeoProximity selects the backend closest to a fixed reference address.
type GeoProximity struct {
	locator   GeoLocator
	reference string
}

// NewGeoProximity returns a geo policy measuring from reference.
func NewGeoProximity(locator GeoLocator, reference string) (*GeoProximity, error) {
	if locator == nil {
		return nil, errors.New("geo policy requires a locator")
	}
	if reference == "" {
		return nil, errors.New("geo policy requires a reference address")
	}
	return &GeoProximity{locator: locator, reference: reference}, nil
}

func (g *GeoProximity) Name() domain.Policy { return domain.PolicyGeo }

// Select locates the reference and every backend, then returns the nearest
// backend. Any failed lookup aborts the selection.
func (g *GeoProximity) Select(ctx context.Context, pool *domain.BackendPool) (string, error) {
	origin, err := g.locator.Locate(ctx, g.reference)
	if err != nil {
		return "", fmt.Errorf("%w: locate reference %s: %w", domain.ErrSelection, g.reference, err)
	}

	addrs := pool.Addresses()
	distances := make([]float64, len(addrs))
	for i, addr := range addrs {
		c, err := g.locator.Locate(ctx, addr)
		if err != nil {
			return "", fmt.Errorf("%w: locate backend %s: %w", domain.ErrSelection, addr, err)
		}
		distances[i] = Haversine(origin, c)
	}
	return addrs[argmin(distances)], nil
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b domain.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h just outside [0, 1] near antipodes
	h = math.Max(0, math.Min(1, h))
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

var _ Policy = (*GeoProximity)(nil)
