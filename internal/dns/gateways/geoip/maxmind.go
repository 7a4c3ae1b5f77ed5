package geoip

import (
	"context"
	"fmt"

	"github.com/oschwald/maxminddb-golang"

	"github.com/haukened/lbdns/internal/dns/domain"
)

// DefaultDatabase is where distribution packages install GeoLite2 City.
const DefaultDatabase = "/usr/share/GeoIP/GeoLite2-City.mmdb"

// MaxMind locates addresses in a local GeoIP2/GeoLite2 City database.
type MaxMind struct {
	db   *maxminddb.Reader
	path string
}

type cityRecord struct {
	Location struct {
		Latitude  *float64 `maxminddb:"latitude"`
		Longitude *float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// OpenMaxMind opens the database at path, or DefaultDatabase when path is empty.
func OpenMaxMind(path string) (*MaxMind, error) {
	if path == "" {
		path = DefaultDatabase
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geo city database file: %w", err)
	}
	return &MaxMind{db: db, path: path}, nil
}

// Locate looks addr up in the database. Lookups are local and ignore ctx
// beyond an initial cancellation check.
func (m *MaxMind) Locate(ctx context.Context, addr string) (domain.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, err
	}
	ip, err := parseIP(addr)
	if err != nil {
		return domain.Coordinates{}, err
	}

	var rec cityRecord
	_, found, err := m.db.LookupNetwork(ip, &rec)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf(errLookupFailed, addr, err)
	}
	if !found || rec.Location.Latitude == nil || rec.Location.Longitude == nil {
		return domain.Coordinates{}, fmt.Errorf(errMissingLocation, addr)
	}
	return domain.Coordinates{Latitude: *rec.Location.Latitude, Longitude: *rec.Location.Longitude}, nil
}

// Close releases the database.
func (m *MaxMind) Close() error {
	return m.db.Close()
}

func (m *MaxMind) String() string {
	return "maxmind(" + m.path + ")"
}

var _ Locator = (*MaxMind)(nil)
