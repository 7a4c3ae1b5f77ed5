package rrdata

import (
	"fmt"
	"net"

	"github.com/haukened/lbdns/internal/dns/domain"
)

// A is an IPv4 host address.
type A struct {
	IP net.IP
}

// NewA parses an IPv4 address string.
func NewA(data string) (A, error) {
	// data = "192.168.0.1"
	ip := net.ParseIP(data)
	if ip == nil || !isIPv4(ip) {
		return A{}, fmt.Errorf("invalid A record IP: %s", data)
	}
	return A{IP: ip.To4()}, nil
}

func (a A) Type() domain.RRType { return domain.RRTypeA }

func (a A) Pack() ([]byte, error) {
	if !isIPv4(a.IP) {
		return nil, fmt.Errorf("invalid A record IP: %v", a.IP)
	}
	return []byte(a.IP.To4()), nil
}

func (a A) String() string { return a.IP.String() }

var _ domain.RData = A{}
