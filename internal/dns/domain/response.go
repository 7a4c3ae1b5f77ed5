package domain

import "fmt"

// DNSResponse represents a complete DNS response with answers, authority, and additional sections.
// This follows RFC 1035 §4.1.1 structure for DNS response messages.
type DNSResponse struct {
	ID                 uint16
	RCode              RCode
	Question           Question
	Authoritative      bool
	RecursionAvailable bool
	Answers            []ResourceRecord
	Authority          []ResourceRecord
	Additional         []ResourceRecord
}

// NewAuthoritativeResponse returns an empty NOERROR reply to q with the
// authoritative and recursion-available flags set.
func NewAuthoritativeResponse(q Question) DNSResponse {
	return DNSResponse{
		ID:                 q.ID,
		RCode:              RCodeNoError,
		Question:           q,
		Authoritative:      true,
		RecursionAvailable: true,
	}
}

// Validate checks whether the DNSResponse fields are structurally valid.
func (resp DNSResponse) Validate() error {
	if !resp.RCode.IsValid() {
		return fmt.Errorf("invalid RCode: %d", resp.RCode)
	}

	sections := []struct {
		name    string
		records []ResourceRecord
	}{
		{"answer", resp.Answers},
		{"authority", resp.Authority},
		{"additional", resp.Additional},
	}
	for _, s := range sections {
		for i, rr := range s.records {
			if err := rr.Validate(); err != nil {
				return fmt.Errorf("invalid %s record at index %d: %w", s.name, i, err)
			}
		}
	}
	return nil
}

// AnswerCount returns the number of answer records in the response.
func (resp DNSResponse) AnswerCount() int {
	return len(resp.Answers)
}

// AuthorityCount returns the number of authority records in the response.
func (resp DNSResponse) AuthorityCount() int {
	return len(resp.Authority)
}

// AdditionalCount returns the number of additional records in the response.
func (resp DNSResponse) AdditionalCount() int {
	return len(resp.Additional)
}
