// Package wire converts between RFC 1035 messages and domain values. It is
// shared by the datagram and stream listeners; stream framing is handled by
// the transport.
package wire

import "github.com/haukened/lbdns/internal/dns/domain"

// DNSCodec parses queries and packs replies.
type DNSCodec interface {
	// DecodeQuery parses a query carrying exactly one question. Malformed
	// input yields an error wrapping domain.ErrParse.
	DecodeQuery(data []byte) (domain.Question, error)

	// EncodeResponse packs resp, echoing its question.
	EncodeResponse(resp domain.DNSResponse) ([]byte, error)
}
