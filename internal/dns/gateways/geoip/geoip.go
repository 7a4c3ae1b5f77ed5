// Package geoip resolves backend addresses to geographic coordinates, either
// through the ipstack.com HTTP API or from a local MaxMind City database.
package geoip

import (
	"context"
	"fmt"
	"net"

	"github.com/haukened/lbdns/internal/dns/domain"
)

// Error message constants for consistent error handling
const (
	errInvalidAddress   = "invalid IP address %q"
	errAPIKeyRequired   = "ipstack API key is required"
	errDatabaseRequired = "geo database path is required"
	errRequestFailed    = "geo request for %s failed: %w"
	errUnexpectedStatus = "geo request for %s: unexpected status %d"
	errDecodeFailed     = "geo response for %s: %w"
	errAPIError         = "geo lookup for %s rejected: %s (code %d)"
	errMissingLocation  = "no location for %s"
	errLookupFailed     = "geo database lookup for %s failed: %w"
)

// Locator returns the coordinates of an address.
type Locator interface {
	Locate(ctx context.Context, addr string) (domain.Coordinates, error)
}

func parseIP(addr string) (net.IP, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil, fmt.Errorf(errInvalidAddress, addr)
	}
	return ip, nil
}
