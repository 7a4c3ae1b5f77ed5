package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/haukened/lbdns/internal/dns/common/log"
	"github.com/haukened/lbdns/internal/dns/common/utils"
	"github.com/haukened/lbdns/internal/dns/domain"
)

const (
	headerLen     = 12
	maxLabelLen   = 63
	maxNameLen    = 255
	maxPointers   = 16
	questionStart = headerLen
)

// Header flag bits.
const (
	flagQR = 1 << 15
	flagAA = 1 << 10
	flagRA = 1 << 7
)

// messageCodec implements DNSCodec for RFC 1035 messages.
type messageCodec struct {
	logger log.Logger
}

// NewCodec returns a DNSCodec that logs encoding steps at debug level.
func NewCodec(logger log.Logger) DNSCodec {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &messageCodec{logger: logger}
}

// DecodeQuery parses the header and the single question of a query. Records
// after the question, such as an EDNS OPT record, are ignored.
func (c *messageCodec) DecodeQuery(data []byte) (domain.Question, error) {
	if len(data) < headerLen {
		return domain.Question{}, fmt.Errorf("%w: message of %d bytes is shorter than a header", domain.ErrParse, len(data))
	}
	id := binary.BigEndian.Uint16(data[0:2])
	flags := binary.BigEndian.Uint16(data[2:4])
	if flags&flagQR != 0 {
		return domain.Question{}, fmt.Errorf("%w: message is a response", domain.ErrParse)
	}
	if qd := binary.BigEndian.Uint16(data[4:6]); qd != 1 {
		return domain.Question{}, fmt.Errorf("%w: expected exactly one question, got %d", domain.ErrParse, qd)
	}

	name, offset, err := decodeName(data, questionStart)
	if err != nil {
		return domain.Question{}, fmt.Errorf("%w: question name: %w", domain.ErrParse, err)
	}
	if offset+4 > len(data) {
		return domain.Question{}, fmt.Errorf("%w: truncated question", domain.ErrParse)
	}
	qtype := binary.BigEndian.Uint16(data[offset : offset+2])
	qclass := binary.BigEndian.Uint16(data[offset+2 : offset+4])

	q, err := domain.NewQuestion(id, name, domain.RRType(qtype), domain.RRClass(qclass))
	if err != nil {
		return domain.Question{}, fmt.Errorf("%w: %w", domain.ErrParse, err)
	}
	c.logger.Debug(map[string]any{
		"id":    q.ID,
		"name":  q.Name,
		"type":  q.Type.String(),
		"class": q.Class.String(),
	}, "decoded query")
	return q, nil
}

// decodeName reads a possibly compressed name starting at offset. It returns
// the name without a trailing dot ("." for the root) and the offset just past
// the name in the original position.
func decodeName(data []byte, offset int) (string, int, error) {
	var labels []string
	end := -1
	total := 0
	for hops := 0; ; {
		if offset >= len(data) {
			return "", 0, fmt.Errorf("name runs past end of message")
		}
		length := int(data[offset])
		switch {
		case length == 0:
			if end < 0 {
				end = offset + 1
			}
			if len(labels) == 0 {
				return ".", end, nil
			}
			return strings.Join(labels, "."), end, nil
		case length&0xC0 == 0xC0:
			if offset+1 >= len(data) {
				return "", 0, fmt.Errorf("compression pointer out of bounds")
			}
			ptr := int(binary.BigEndian.Uint16(data[offset:offset+2]) & 0x3FFF)
			if ptr >= offset {
				return "", 0, fmt.Errorf("compression pointer does not point backwards")
			}
			hops++
			if hops > maxPointers {
				return "", 0, fmt.Errorf("too many compression pointers")
			}
			if end < 0 {
				end = offset + 2
			}
			offset = ptr
		case length&0xC0 != 0:
			return "", 0, fmt.Errorf("unsupported label type 0x%02x", length&0xC0)
		default:
			offset++
			if offset+length > len(data) {
				return "", 0, fmt.Errorf("label length out of bounds")
			}
			total += length + 1
			if total+1 > maxNameLen {
				return "", 0, fmt.Errorf("name exceeds %d bytes", maxNameLen)
			}
			label := data[offset : offset+length]
			if bytes.IndexByte(label, '.') >= 0 {
				return "", 0, fmt.Errorf("label %q contains a dot", label)
			}
			labels = append(labels, string(label))
			offset += length
		}
	}
}

// appendName writes name in uncompressed wire form, preserving its case.
func appendName(buf *bytes.Buffer, name string) error {
	name = strings.TrimSpace(name)
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	if name == "" {
		buf.WriteByte(0)
		return nil
	}
	if len(name)+2 > maxNameLen {
		return fmt.Errorf("name too long: %s", name)
	}
	for _, label := range strings.Split(name, ".") {
		if len(label) == 0 || len(label) > maxLabelLen {
			return fmt.Errorf("invalid label %q in %s", label, name)
		}
		buf.WriteByte(byte(len(label)))
		buf.WriteString(label)
	}
	buf.WriteByte(0)
	return nil
}

// EncodeResponse serializes resp. Record owner names equal to the question
// name are written as a pointer to the question.
func (c *messageCodec) EncodeResponse(resp domain.DNSResponse) ([]byte, error) {
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	counts := []int{resp.AnswerCount(), resp.AuthorityCount(), resp.AdditionalCount()}
	for _, n := range counts {
		if n > 0xFFFF {
			return nil, fmt.Errorf("too many records in section: %d", n)
		}
	}

	var flags uint16 = flagQR
	if resp.Authoritative {
		flags |= flagAA
	}
	if resp.RecursionAvailable {
		flags |= flagRA
	}
	flags |= uint16(resp.RCode) & 0x000F

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, resp.ID)
	_ = binary.Write(&buf, binary.BigEndian, flags)
	_ = binary.Write(&buf, binary.BigEndian, uint16(1)) // QDCOUNT
	for _, n := range counts {
		_ = binary.Write(&buf, binary.BigEndian, uint16(n))
	}

	// Echo the question exactly as it was asked
	if err := appendName(&buf, resp.Question.Name); err != nil {
		return nil, fmt.Errorf("question: %w", err)
	}
	_ = binary.Write(&buf, binary.BigEndian, uint16(resp.Question.Type))
	_ = binary.Write(&buf, binary.BigEndian, uint16(resp.Question.Class))

	qname := utils.CanonicalDNSName(resp.Question.Name)
	for _, s := range [][]domain.ResourceRecord{resp.Answers, resp.Authority, resp.Additional} {
		for _, rr := range s {
			if err := c.appendRecord(&buf, rr, qname); err != nil {
				return nil, err
			}
		}
	}

	c.logger.Debug(map[string]any{
		"id":   resp.ID,
		"an":   counts[0],
		"ns":   counts[1],
		"ar":   counts[2],
		"size": buf.Len(),
	}, "encoded response")
	return buf.Bytes(), nil
}

func (c *messageCodec) appendRecord(buf *bytes.Buffer, rr domain.ResourceRecord, qname string) error {
	rdata, err := rr.Data.Pack()
	if err != nil {
		return fmt.Errorf("pack %s %s: %w", rr.Name, rr.Type(), err)
	}
	if len(rdata) > 0xFFFF {
		return fmt.Errorf("resource record data too large: %d bytes (max 65535)", len(rdata))
	}

	if qname != "" && utils.CanonicalDNSName(rr.Name) == qname {
		// Format: 0b11xxxxxx xxxxxxxx (pointer to offset in message)
		buf.Write([]byte{0xC0 | byte(questionStart>>8), byte(questionStart & 0xFF)})
	} else if err := appendName(buf, rr.Name); err != nil {
		return err
	}
	_ = binary.Write(buf, binary.BigEndian, uint16(rr.Type()))
	_ = binary.Write(buf, binary.BigEndian, uint16(rr.Class))
	_ = binary.Write(buf, binary.BigEndian, rr.TTL)
	_ = binary.Write(buf, binary.BigEndian, uint16(len(rdata)))
	buf.Write(rdata)
	return nil
}

var _ DNSCodec = (*messageCodec)(nil)
