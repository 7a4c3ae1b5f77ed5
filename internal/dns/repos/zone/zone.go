// Package zone derives the complete record set of the managed domain from the
// currently active backend address.
package zone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/haukened/lbdns/internal/dns/common/rrdata"
	"github.com/haukened/lbdns/internal/dns/common/utils"
	"github.com/haukened/lbdns/internal/dns/domain"
)

// ErrDelegation is returned when a name-server or mail-exchange target would
// own a CNAME record.
var ErrDelegation = errors.New("NS and MX targets must not be aliases")

// Builder turns an active backend into a ZoneSnapshot. A Builder holds only
// static, validated parameters and is safe for concurrent use.
type Builder struct {
	apex        string
	mail        string
	nameServers []string
	alias       string
	ttl         uint32
	mxPref      uint16
	soa         rrdata.SOA
}

// NewBuilder validates params and resolves every label to a canonical name.
// An empty Alias disables the CNAME record.
func NewBuilder(params domain.ZoneParams) (*Builder, error) {
	apex := utils.CanonicalDNSName(params.Apex)
	if apex == "" {
		return nil, fmt.Errorf("zone apex must not be empty")
	}
	if len(params.NameServers) == 0 {
		return nil, fmt.Errorf("zone %s needs at least one name server", apex)
	}
	if strings.TrimSpace(params.Mail) == "" {
		return nil, fmt.Errorf("zone %s needs a mail label", apex)
	}

	b := &Builder{
		apex:   apex,
		mail:   utils.JoinLabel(params.Mail, apex),
		ttl:    params.TTL,
		mxPref: params.MXPreference,
	}

	// owners of address records; the alias must not collide with any of them
	owners := map[string]string{apex: "apex"}
	for _, label := range params.NameServers {
		ns := utils.JoinLabel(label, apex)
		if ns == apex {
			return nil, fmt.Errorf("name server label %q resolves to the apex", label)
		}
		if _, dup := owners[ns]; dup {
			return nil, fmt.Errorf("duplicate name server %s", ns)
		}
		owners[ns] = "name server"
		b.nameServers = append(b.nameServers, ns)
	}
	if kind, dup := owners[b.mail]; dup {
		return nil, fmt.Errorf("mail host %s collides with %s", b.mail, kind)
	}
	owners[b.mail] = "mail host"

	if strings.TrimSpace(params.Alias) != "" {
		b.alias = utils.JoinLabel(params.Alias, apex)
		if kind, dup := owners[b.alias]; dup {
			return nil, fmt.Errorf("%w: alias %s collides with %s", ErrDelegation, b.alias, kind)
		}
	}

	admin := params.SOA.Admin
	if strings.TrimSpace(admin) == "" {
		admin = "hostmaster"
	}
	b.soa = rrdata.SOA{
		MName:   b.nameServers[0],
		RName:   utils.JoinLabel(admin, apex),
		Serial:  params.SOA.Serial,
		Refresh: params.SOA.Refresh,
		Retry:   params.SOA.Retry,
		Expire:  params.SOA.Expire,
		Minimum: params.SOA.Minimum,
	}
	return b, nil
}

// Apex returns the canonical apex name.
func (b *Builder) Apex() string {
	return b.apex
}

// Build constructs a fresh snapshot in which every address record points at
// active. The returned snapshot is never modified afterwards.
func (b *Builder) Build(active string) (*domain.ZoneSnapshot, error) {
	addr, err := rrdata.NewA(active)
	if err != nil {
		return nil, fmt.Errorf("active backend: %w", err)
	}

	var records []domain.ResourceRecord
	add := func(name string, data domain.RData) error {
		rr, err := domain.NewResourceRecord(name, b.ttl, data)
		if err != nil {
			return err
		}
		records = append(records, rr)
		return nil
	}

	apexData := []domain.RData{
		addr,
		rrdata.UnspecifiedAAAA(),
		rrdata.MX{Preference: b.mxPref, Exchange: b.mail},
		b.soa,
	}
	for _, ns := range b.nameServers {
		apexData = append(apexData, rrdata.NS{Host: ns})
	}
	for _, d := range apexData {
		if err := add(b.apex, d); err != nil {
			return nil, err
		}
	}
	for _, ns := range b.nameServers {
		if err := add(ns, addr); err != nil {
			return nil, err
		}
	}
	if err := add(b.mail, addr); err != nil {
		return nil, err
	}
	if b.alias != "" {
		if err := add(b.alias, rrdata.CNAME{Target: b.apex}); err != nil {
			return nil, err
		}
	}

	if err := checkDelegation(records); err != nil {
		return nil, err
	}
	return domain.NewZoneSnapshot(b.apex, active, records), nil
}

// checkDelegation verifies that no NS or MX target owns a CNAME.
func checkDelegation(records []domain.ResourceRecord) error {
	aliases := make(map[string]struct{})
	for _, rr := range records {
		if rr.Type() == domain.RRTypeCNAME {
			aliases[rr.Name] = struct{}{}
		}
	}
	for _, rr := range records {
		var target string
		switch d := rr.Data.(type) {
		case rrdata.NS:
			target = d.Host
		case rrdata.MX:
			target = d.Exchange
		default:
			continue
		}
		if _, ok := aliases[utils.CanonicalDNSName(target)]; ok {
			return fmt.Errorf("%w: %s", ErrDelegation, target)
		}
	}
	return nil
}
