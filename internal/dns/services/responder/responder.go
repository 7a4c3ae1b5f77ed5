// Package responder matches queries against the managed zone and composes
// authoritative replies.
package responder

import (
	"context"
	"errors"
	"net"

	"github.com/haukened/lbdns/internal/dns/common/log"
	"github.com/haukened/lbdns/internal/dns/common/utils"
	"github.com/haukened/lbdns/internal/dns/domain"
)

// ErrNoSnapshot is returned when no zone has been published yet.
var ErrNoSnapshot = errors.New("no zone snapshot published")

// Responder composes replies from a SnapshotSource.
type Responder struct {
	zones  SnapshotSource
	logger log.Logger
}

// Options configures a Responder.
type Options struct {
	Zones  SnapshotSource
	Logger log.Logger
}

// New returns a Responder reading from opts.Zones.
func New(opts Options) *Responder {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Responder{zones: opts.Zones, logger: opts.Logger}
}

// HandleQuery builds the authoritative reply to query. The snapshot is read
// once, so a concurrent refresh cannot change the records of a reply midway.
//
// Names outside the zone get an empty reply with no authority or additional
// section. Names inside the zone always carry the SOA as authority and the
// apex NS records as additional data, with answers restricted to records
// owned by exactly the queried name.
func (r *Responder) HandleQuery(_ context.Context, query domain.Question, clientAddr net.Addr) (domain.DNSResponse, error) {
	snap := r.zones.Current()
	if snap == nil {
		return domain.DNSResponse{}, ErrNoSnapshot
	}

	resp := domain.NewAuthoritativeResponse(query)
	name := utils.CanonicalDNSName(query.Name)

	fields := map[string]any{
		"id":      query.ID,
		"name":    name,
		"type":    query.Type.String(),
		"backend": snap.Backend(),
	}
	if clientAddr != nil {
		fields["client"] = clientAddr.String()
	}

	if !utils.IsSubdomain(name, snap.Apex()) {
		fields["in_zone"] = false
		r.logger.Debug(fields, "query outside managed zone")
		return resp, nil
	}
	fields["in_zone"] = true

	for _, rr := range snap.Lookup(name) {
		if rr.Type().Matches(query.Type) {
			resp.Answers = append(resp.Answers, rr)
		}
	}
	if soa, ok := snap.SOA(); ok {
		resp.Authority = []domain.ResourceRecord{soa}
	}
	resp.Additional = snap.NameServers()

	fields["answers"] = len(resp.Answers)
	r.logger.Debug(fields, "composed reply")
	return resp, nil
}

// InZone reports whether resp answers a name inside the managed zone.
func InZone(resp domain.DNSResponse) bool {
	return resp.AuthorityCount() > 0
}

var _ DNSResponder = (*Responder)(nil)
