package domain

import (
	"fmt"

	"github.com/haukened/lbdns/internal/dns/common/utils"
)

// RData is the type-specific payload of a resource record. Every record kind
// knows its own type code and its own wire encoding.
type RData interface {
	// Type returns the record type this payload belongs to.
	Type() RRType
	// Pack returns the RDATA wire encoding, without the RDLENGTH prefix.
	Pack() ([]byte, error)
	// String returns the presentation form of the payload.
	String() string
}

// ResourceRecord is an authoritative record served from the zone snapshot.
// Zone records never expire in memory; TTL is emitted as-is on the wire.
type ResourceRecord struct {
	Name  string
	Class RRClass
	TTL   uint32
	Data  RData
}

// NewResourceRecord constructs an IN-class ResourceRecord with a canonical owner name.
func NewResourceRecord(name string, ttl uint32, data RData) (ResourceRecord, error) {
	rr := ResourceRecord{
		Name:  utils.CanonicalDNSName(name),
		Class: RRClassIN,
		TTL:   ttl,
		Data:  data,
	}
	if err := rr.Validate(); err != nil {
		return ResourceRecord{}, err
	}
	return rr, nil
}

// Type returns the record type carried by the payload.
func (rr ResourceRecord) Type() RRType {
	if rr.Data == nil {
		return 0
	}
	return rr.Data.Type()
}

// Validate checks whether the ResourceRecord fields are valid.
func (rr ResourceRecord) Validate() error {
	if rr.Name == "" {
		return fmt.Errorf("record name must not be empty")
	}
	if rr.Data == nil {
		return fmt.Errorf("record %s has no data", rr.Name)
	}
	if !rr.Type().IsValid() || rr.Type() == RRTypeANY {
		return fmt.Errorf("invalid RRType: %d", rr.Type())
	}
	if !rr.Class.IsValid() {
		return fmt.Errorf("invalid RRClass: %d", rr.Class)
	}
	return nil
}

// String renders the record in zone-file presentation format.
func (rr ResourceRecord) String() string {
	return fmt.Sprintf("%s.\t%d\t%s\t%s\t%s", rr.Name, rr.TTL, rr.Class, rr.Type(), rr.Data)
}
