package transport

import (
	"context"
	"net"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/haukened/lbdns/internal/dns/domain"
)

// MockDNSCodec implements wire.DNSCodec for testing
type MockDNSCodec struct {
	mock.Mock
}

func (m *MockDNSCodec) DecodeQuery(data []byte) (domain.Question, error) {
	args := m.Called(data)
	return args.Get(0).(domain.Question), args.Error(1)
}

func (m *MockDNSCodec) EncodeResponse(resp domain.DNSResponse) ([]byte, error) {
	args := m.Called(resp)
	return args.Get(0).([]byte), args.Error(1)
}

// MockDNSResponder implements responder.DNSResponder for testing
type MockDNSResponder struct {
	mock.Mock
}

func (m *MockDNSResponder) HandleQuery(ctx context.Context, query domain.Question, clientAddr net.Addr) (domain.DNSResponse, error) {
	args := m.Called(ctx, query, clientAddr)
	return args.Get(0).(domain.DNSResponse), args.Error(1)
}

// countingRefresher counts calls and optionally blocks until released.
type countingRefresher struct {
	mu      sync.Mutex
	calls   int
	err     error
	entered chan struct{}
	release chan struct{}
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.entered != nil {
		r.entered <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}
	return r.err
}

func (r *countingRefresher) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

var testQuestion = domain.Question{ID: 0x1234, Name: "example.com.", Type: domain.RRTypeA, Class: domain.RRClassIN}

// stubPipeline wires a codec and responder that answer every request with reply.
func stubPipeline(reply []byte) (*MockDNSCodec, *MockDNSResponder) {
	codec := &MockDNSCodec{}
	handler := &MockDNSResponder{}
	resp := domain.NewAuthoritativeResponse(testQuestion)
	codec.On("DecodeQuery", mock.Anything).Return(testQuestion, nil)
	handler.On("HandleQuery", mock.Anything, testQuestion, mock.Anything).Return(resp, nil)
	codec.On("EncodeResponse", resp).Return(reply, nil)
	return codec, handler
}
