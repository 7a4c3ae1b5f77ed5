package transport

import (
	"context"
	"net"

	"github.com/haukened/lbdns/internal/dns/common/log"
	"github.com/haukened/lbdns/internal/dns/common/metrics"
	"github.com/haukened/lbdns/internal/dns/domain"
	"github.com/haukened/lbdns/internal/dns/gateways/wire"
	"github.com/haukened/lbdns/internal/dns/services/responder"
)

// exchange is the request pipeline shared by both listeners:
// decode, respond, encode, refresh. Transmission is left to the caller.
type exchange struct {
	transport string
	codec     wire.DNSCodec
	refresher Refresher
	logger    log.Logger
}

// served describes a reply that is ready to be transmitted.
type served struct {
	query    domain.Question
	response domain.DNSResponse
	reply    []byte
}

// prepare turns query bytes into reply bytes. It returns false when the
// request must be dropped without a reply; the drop is already logged.
func (x *exchange) prepare(ctx context.Context, data []byte, client net.Addr, handler responder.DNSResponder) (served, bool) {
	query, err := x.codec.DecodeQuery(data)
	if err != nil {
		x.drop(client, metrics.ReasonParse, err)
		return served{}, false
	}
	log.Emit(x.logger, log.EventQueryReceived, map[string]any{
		"transport": x.transport,
		"client":    addrString(client),
		"id":        query.ID,
		"name":      query.Name,
		"type":      query.Type.String(),
	})

	resp, err := handler.HandleQuery(ctx, query, client)
	if err != nil {
		x.drop(client, metrics.ReasonRespond, err)
		return served{}, false
	}
	reply, err := x.codec.EncodeResponse(resp)
	if err != nil {
		x.drop(client, metrics.ReasonRespond, err)
		return served{}, false
	}

	// The reply is final; the refresh only affects later queries.
	if x.refresher != nil {
		if err := x.refresher.Refresh(ctx); err != nil {
			x.logger.Debug(map[string]any{
				"transport": x.transport,
				"error":     err.Error(),
			}, "refresh failed, replying with previous selection")
		}
	}
	return served{query: query, response: resp, reply: reply}, true
}

// sent records a transmitted reply.
func (x *exchange) sent(s served, client net.Addr) {
	zone := "in"
	if !responder.InZone(s.response) {
		zone = "out"
	}
	metrics.QueriesTotal.WithLabelValues(x.transport, zone).Inc()
	log.Emit(x.logger, log.EventQueryServed, map[string]any{
		"transport": x.transport,
		"client":    addrString(client),
		"id":        s.response.ID,
		"name":      s.query.Name,
		"answers":   s.response.AnswerCount(),
		"size":      len(s.reply),
	})
}

// drop records a request abandoned without reply.
func (x *exchange) drop(client net.Addr, reason string, err error) {
	metrics.RequestsDropped.WithLabelValues(x.transport, reason).Inc()
	fields := map[string]any{
		"transport": x.transport,
		"client":    addrString(client),
		"reason":    reason,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	log.Emit(x.logger, log.EventRequestDropped, fields)
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
