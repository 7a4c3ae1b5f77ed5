package domain

import "fmt"

// RRType represents a DNS resource record type (e.g. A, AAAA, MX).
// See IANA DNS Parameters for assigned codes.
type RRType uint16

// DNS Resource Record Type constants served by the zone.
const (
	RRTypeA     RRType = 1   // A - IPv4 address
	RRTypeNS    RRType = 2   // NS - Name server
	RRTypeCNAME RRType = 5   // CNAME - Canonical name
	RRTypeSOA   RRType = 6   // SOA - Start of authority
	RRTypeMX    RRType = 15  // MX - Mail exchange
	RRTypeAAAA  RRType = 28  // AAAA - IPv6 address
	RRTypeANY   RRType = 255 // ANY - Any type (query only)
)

// IsValid returns true if the RRType is one the zone can carry or a query can ask for.
func (t RRType) IsValid() bool {
	switch t {
	case RRTypeA, RRTypeNS, RRTypeCNAME, RRTypeSOA, RRTypeMX, RRTypeAAAA, RRTypeANY:
		return true
	default:
		return false
	}
}

// Matches reports whether a record of type t answers a question of type q.
// ANY matches every record type.
func (t RRType) Matches(q RRType) bool {
	return q == RRTypeANY || t == q
}

// String returns the textual representation of the RRType.
// For unknown types, it returns "UNKNOWN(<value>)".
func (t RRType) String() string {
	switch t {
	case RRTypeA:
		return "A"
	case RRTypeNS:
		return "NS"
	case RRTypeCNAME:
		return "CNAME"
	case RRTypeSOA:
		return "SOA"
	case RRTypeMX:
		return "MX"
	case RRTypeAAAA:
		return "AAAA"
	case RRTypeANY:
		return "ANY"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint16(t))
	}
}
