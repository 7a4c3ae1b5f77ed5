package responder

import (
	"context"
	"net"

	"github.com/haukened/lbdns/internal/dns/domain"
)

// SnapshotSource exposes the currently published zone snapshot.
type SnapshotSource interface {
	Current() *domain.ZoneSnapshot
}

// DNSResponder answers one parsed query. Transports handle all wire and
// network concerns and only see domain values through this interface.
type DNSResponder interface {
	HandleQuery(ctx context.Context, query domain.Question, clientAddr net.Addr) (domain.DNSResponse, error)
}
