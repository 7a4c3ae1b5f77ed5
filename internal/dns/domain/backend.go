package domain

import (
	"fmt"
	"slices"
	"strings"
)

// BackendPool is the ordered set of backend addresses a policy chooses from.
// It is not safe for concurrent use; the balancer serialises access.
type BackendPool struct {
	addrs []string
}

// NewBackendPool copies addrs into a new pool. Blank entries are ignored.
// It returns ErrEmptyPool when nothing remains.
func NewBackendPool(addrs []string) (*BackendPool, error) {
	pool := &BackendPool{addrs: make([]string, 0, len(addrs))}
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		pool.addrs = append(pool.addrs, a)
	}
	if len(pool.addrs) == 0 {
		return nil, ErrEmptyPool
	}
	return pool, nil
}

// Rotate removes the first address, appends it to the back and returns it.
func (p *BackendPool) Rotate() string {
	head := p.addrs[0]
	copy(p.addrs, p.addrs[1:])
	p.addrs[len(p.addrs)-1] = head
	return head
}

// Addresses returns a copy of the pool in its current order.
func (p *BackendPool) Addresses() []string {
	return slices.Clone(p.addrs)
}

// Len returns the number of backends in the pool.
func (p *BackendPool) Len() int {
	return len(p.addrs)
}

// Policy identifies a backend selection strategy. It is fixed at startup.
type Policy uint8

const (
	PolicyRoundRobin Policy = iota + 1
	PolicyGeo
	PolicyLoad
)

// ParsePolicy converts a configured policy name into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "round", "round-robin", "roundrobin":
		return PolicyRoundRobin, nil
	case "geo":
		return PolicyGeo, nil
	case "load":
		return PolicyLoad, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// String returns the canonical name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyRoundRobin:
		return "round-robin"
	case PolicyGeo:
		return "geo"
	case PolicyLoad:
		return "load"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(p))
	}
}

// Coordinates is a point on the Earth's surface in decimal degrees.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Validate checks that both values are within their geographic ranges.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %f", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %f", c.Longitude)
	}
	return nil
}
