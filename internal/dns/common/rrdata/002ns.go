package rrdata

import "github.com/haukened/lbdns/internal/dns/domain"

// NS names an authoritative name server for the owner.
type NS struct {
	Host string
}

func (n NS) Type() domain.RRType { return domain.RRTypeNS }

func (n NS) Pack() ([]byte, error) {
	// Host = "ns.example.com"
	return encodeDomainName(n.Host)
}

func (n NS) String() string { return fqdn(n.Host) }

var _ domain.RData = NS{}
