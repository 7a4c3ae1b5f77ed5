package rrdata

import (
	"encoding/binary"
	"fmt"

	"github.com/haukened/lbdns/internal/dns/domain"
)

// MX names a mail exchanger for the owner.
type MX struct {
	Preference uint16
	Exchange   string
}

func (m MX) Type() domain.RRType { return domain.RRTypeMX }

func (m MX) Pack() ([]byte, error) {
	prefBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(prefBytes, m.Preference)
	encodedDomain, err := encodeDomainName(m.Exchange)
	if err != nil {
		return nil, fmt.Errorf("invalid MX exchange domain: %s", m.Exchange)
	}
	return append(prefBytes, encodedDomain...), nil
}

func (m MX) String() string { return fmt.Sprintf("%d %s", m.Preference, fqdn(m.Exchange)) }

var _ domain.RData = MX{}
