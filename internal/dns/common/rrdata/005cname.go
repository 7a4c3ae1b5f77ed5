package rrdata

import "github.com/haukened/lbdns/internal/dns/domain"

// CNAME aliases the owner to a canonical name.
type CNAME struct {
	Target string
}

func (c CNAME) Type() domain.RRType { return domain.RRTypeCNAME }

func (c CNAME) Pack() ([]byte, error) {
	// Target = "cname.example.com"
	return encodeDomainName(c.Target)
}

func (c CNAME) String() string { return fqdn(c.Target) }

var _ domain.RData = CNAME{}
