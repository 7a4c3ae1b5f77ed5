package domain

import (
	"slices"

	"github.com/haukened/lbdns/internal/dns/common/utils"
)

// SOAParams holds the start-of-authority timers and the administrator mailbox label.
type SOAParams struct {
	Admin   string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

// ZoneParams is the static part of the managed zone. Mail, NameServers, Alias
// and SOA.Admin are labels relative to Apex.
type ZoneParams struct {
	Apex         string
	Mail         string
	NameServers  []string
	Alias        string
	TTL          uint32
	MXPreference uint16
	SOA          SOAParams
}

// ZoneSnapshot is an immutable, internally consistent record set for the
// managed zone. Every address record in it points at the same backend.
type ZoneSnapshot struct {
	apex    string
	backend string
	names   []string
	records map[string][]ResourceRecord
}

// NewZoneSnapshot groups records by owner name, preserving their order.
func NewZoneSnapshot(apex, backend string, records []ResourceRecord) *ZoneSnapshot {
	z := &ZoneSnapshot{
		apex:    utils.CanonicalDNSName(apex),
		backend: backend,
		records: make(map[string][]ResourceRecord),
	}
	for _, rr := range records {
		if _, seen := z.records[rr.Name]; !seen {
			z.names = append(z.names, rr.Name)
		}
		z.records[rr.Name] = append(z.records[rr.Name], rr)
	}
	return z
}

// Apex returns the canonical apex name of the zone.
func (z *ZoneSnapshot) Apex() string {
	return z.apex
}

// Backend returns the backend address the snapshot was built for.
func (z *ZoneSnapshot) Backend() string {
	return z.backend
}

// Names returns the owner names in insertion order.
func (z *ZoneSnapshot) Names() []string {
	return slices.Clone(z.names)
}

// Lookup returns a copy of the records owned by name, in build order.
func (z *ZoneSnapshot) Lookup(name string) []ResourceRecord {
	return slices.Clone(z.records[utils.CanonicalDNSName(name)])
}

// SOA returns the apex SOA record.
func (z *ZoneSnapshot) SOA() (ResourceRecord, bool) {
	for _, rr := range z.records[z.apex] {
		if rr.Type() == RRTypeSOA {
			return rr, true
		}
	}
	return ResourceRecord{}, false
}

// NameServers returns the apex NS records.
func (z *ZoneSnapshot) NameServers() []ResourceRecord {
	var out []ResourceRecord
	for _, rr := range z.records[z.apex] {
		if rr.Type() == RRTypeNS {
			out = append(out, rr)
		}
	}
	return out
}

// Len returns the total number of records in the snapshot.
func (z *ZoneSnapshot) Len() int {
	n := 0
	for _, rrs := range z.records {
		n += len(rrs)
	}
	return n
}
