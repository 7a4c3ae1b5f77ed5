package rrdata

import (
	"fmt"
	"net"

	"github.com/haukened/lbdns/internal/dns/domain"
)

// AAAA is an IPv6 host address.
type AAAA struct {
	IP net.IP
}

// NewAAAA parses an IPv6 address string.
func NewAAAA(data string) (AAAA, error) {
	// data = "2001:db8::ff00:42:8329"
	ip := net.ParseIP(data)
	if ip == nil || !isIPv6(ip) {
		return AAAA{}, fmt.Errorf("invalid AAAA record IP: %s", data)
	}
	return AAAA{IP: ip.To16()}, nil
}

// UnspecifiedAAAA returns the all-zero "::" placeholder address.
func UnspecifiedAAAA() AAAA {
	return AAAA{IP: make(net.IP, net.IPv6len)}
}

func (a AAAA) Type() domain.RRType { return domain.RRTypeAAAA }

func (a AAAA) Pack() ([]byte, error) {
	if !isIPv6(a.IP) {
		return nil, fmt.Errorf("invalid AAAA record IP: %v", a.IP)
	}
	return []byte(a.IP.To16()), nil
}

func (a AAAA) String() string { return a.IP.String() }

var _ domain.RData = AAAA{}
