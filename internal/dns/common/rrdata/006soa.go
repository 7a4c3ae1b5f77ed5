package rrdata

import (
	"encoding/binary"
	"fmt"

	"github.com/haukened/lbdns/internal/dns/domain"
)

// SOA marks the start of a zone of authority.
type SOA struct {
	// MName is the primary name server for the zone.
	MName string
	// RName is the administrator mailbox with '@' replaced by '.',
	// e.g. "hostmaster.example.com".
	RName   string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

func (s SOA) Type() domain.RRType { return domain.RRTypeSOA }

func (s SOA) Pack() ([]byte, error) {
	mname, err := encodeDomainName(s.MName)
	if err != nil {
		return nil, fmt.Errorf("invalid SOA mname: %v", err)
	}
	rname, err := encodeDomainName(s.RName)
	if err != nil {
		return nil, fmt.Errorf("invalid SOA rname: %v", err)
	}

	// serial, refresh, retry, expire, minimum
	u32 := make([]byte, 20)
	for i, v := range []uint32{s.Serial, s.Refresh, s.Retry, s.Expire, s.Minimum} {
		binary.BigEndian.PutUint32(u32[i*4:], v)
	}

	encoded := make([]byte, 0, len(mname)+len(rname)+len(u32))
	encoded = append(encoded, mname...)
	encoded = append(encoded, rname...)
	encoded = append(encoded, u32...)
	return encoded, nil
}

func (s SOA) String() string {
	return fmt.Sprintf("%s %s %d %d %d %d %d", fqdn(s.MName), fqdn(s.RName),
		s.Serial, s.Refresh, s.Retry, s.Expire, s.Minimum)
}

var _ domain.RData = SOA{}
