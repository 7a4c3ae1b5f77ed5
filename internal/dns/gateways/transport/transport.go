// Package transport provides the datagram and stream listeners of the
// responder. Listeners convert between wire bytes and domain values so the
// service layer only deals with domain types.
package transport

import (
	"context"
	"time"

	"github.com/haukened/lbdns/internal/dns/common/log"
	"github.com/haukened/lbdns/internal/dns/gateways/wire"
	"github.com/haukened/lbdns/internal/dns/services/responder"
)

// ServerTransport defines the interface for DNS server transport implementations.
type ServerTransport interface {
	// Start binds the listener and begins handling requests with handler.
	Start(ctx context.Context, handler responder.DNSResponder) error

	// Stop closes the listener. Workers already running are not waited for.
	Stop() error

	// Address returns the bound address once started, or the configured one before.
	Address() string
}

// Refresher recomputes the active backend and zone snapshot. Listeners call
// it once per request, after the reply is built and before it is sent.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// TransportType represents the different types of DNS transport protocols supported.
type TransportType string

const (
	// TransportUDP is DNS over UDP, one message per datagram (RFC 1035 4.2.1)
	TransportUDP TransportType = "udp"

	// TransportTCP is DNS over TCP with a 2-byte length prefix (RFC 1035 4.2.2)
	TransportTCP TransportType = "tcp"
)

// Defaults applied by NewTransport.
const (
	DefaultWorkers     = 256
	DefaultReadTimeout = 5 * time.Second
)

// Options configures a listener.
type Options struct {
	Addr      string
	Codec     wire.DNSCodec
	Refresher Refresher
	Logger    log.Logger
	// Workers caps the number of requests handled at once; the read or
	// accept loop blocks while every worker is busy.
	Workers int
	// ReadTimeout bounds reading one stream request.
	ReadTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.NewNoopLogger()
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	return o
}
